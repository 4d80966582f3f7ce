package phonebook

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/maruel/phonebook/internal/jsonldb"
	"github.com/maruel/phonebook/internal/models"
)

// setupService creates a service over an existing store holding content.
func setupService(t *testing.T, content string) (*Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultPath)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write store: %v", err)
	}
	svc, err := NewService(Config{Path: path})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc, path
}

func readStore(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read store: %v", err)
	}
	return string(data)
}

func names(contacts []*models.Contact) []string {
	out := make([]string, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, c.Name+"/"+c.Phone)
	}
	return out
}

const johnAnn = `{"name":"John","phone":"1234567890"}
{"name":"Ann","phone":"555"}
`

func TestNewService(t *testing.T) {
	if _, err := NewService(Config{}); err == nil {
		t.Error("NewService(empty) error = nil, want error")
	}
	svc, err := NewService(Config{Path: DefaultPath})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	if svc.Path() != DefaultPath {
		t.Errorf("Path() = %q, want %q", svc.Path(), DefaultPath)
	}
}

func TestService(t *testing.T) {
	t.Run("Add", func(t *testing.T) {
		t.Run("then GetByName", func(t *testing.T) {
			svc, _ := setupService(t, "")
			want := &models.Contact{Name: "John", Phone: "1234567890"}
			if err := svc.Add(want); err != nil {
				t.Fatalf("Add() error = %v", err)
			}
			got, err := svc.GetByName("John")
			if err != nil {
				t.Fatalf("GetByName() error = %v", err)
			}
			if *got != *want {
				t.Errorf("GetByName() = %+v, want %+v", got, want)
			}
		})

		t.Run("appends one line", func(t *testing.T) {
			svc, path := setupService(t, johnAnn)
			if err := svc.Add(&models.Contact{Name: "Bob", Phone: "+1 (555) 010"}); err != nil {
				t.Fatalf("Add() error = %v", err)
			}
			want := johnAnn + `{"name":"Bob","phone":"+1 (555) 010"}` + "\n"
			if got := readStore(t, path); got != want {
				t.Errorf("store =\n%s\nwant\n%s", got, want)
			}
		})

		t.Run("duplicate name is appended", func(t *testing.T) {
			svc, _ := setupService(t, johnAnn)
			if err := svc.Add(&models.Contact{Name: "John", Phone: "999"}); err != nil {
				t.Fatalf("Add() error = %v", err)
			}
			all, err := svc.GetAll()
			if err != nil {
				t.Fatal(err)
			}
			if want := []string{"John/1234567890", "Ann/555", "John/999"}; !slices.Equal(names(all), want) {
				t.Errorf("GetAll() = %v, want %v", names(all), want)
			}
			got, err := svc.GetByName("John")
			if err != nil || got.Phone != "1234567890" {
				t.Errorf("GetByName() = %+v, %v, want first John", got, err)
			}
		})

		t.Run("invalid UTF-8 is rejected", func(t *testing.T) {
			svc, path := setupService(t, johnAnn)
			err := svc.Add(&models.Contact{Name: "Jo\xffhn", Phone: "1"})
			var ee *jsonldb.EncodingError
			if !errors.As(err, &ee) {
				t.Fatalf("Add() error = %v, want *jsonldb.EncodingError", err)
			}
			if got := readStore(t, path); got != johnAnn {
				t.Errorf("store changed: %q", got)
			}
			_, err = svc.Update(&models.Contact{Name: "Ann", Phone: "5\xff5"})
			if !errors.As(err, &ee) {
				t.Fatalf("Update() error = %v, want *jsonldb.EncodingError", err)
			}
			if got := readStore(t, path); got != johnAnn {
				t.Errorf("store changed: %q", got)
			}
		})

		t.Run("validation", func(t *testing.T) {
			tests := []struct {
				name string
				c    *models.Contact
			}{
				{"nil", nil},
				{"empty", &models.Contact{}},
				{"no phone", &models.Contact{Name: "John"}},
				{"no name", &models.Contact{Phone: "1"}},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					// Validation precedes I/O: a missing store is not reported.
					svc, err := NewService(Config{Path: filepath.Join(t.TempDir(), "absent.txt")})
					if err != nil {
						t.Fatal(err)
					}
					if err := svc.Add(tt.c); !errors.Is(err, ErrValidation) {
						t.Errorf("Add() error = %v, want ErrValidation", err)
					}
				})
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("example", func(t *testing.T) {
			svc, path := setupService(t, johnAnn)
			got, err := svc.Update(&models.Contact{Name: "John", Phone: "0000"})
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			if got.Name != "John" || got.Phone != "0000" {
				t.Errorf("Update() = %+v, want John/0000", got)
			}
			all, err := svc.GetAll()
			if err != nil {
				t.Fatal(err)
			}
			if want := []string{"John/0000", "Ann/555"}; !slices.Equal(names(all), want) {
				t.Errorf("GetAll() = %v, want %v", names(all), want)
			}
			want := `{"name":"John","phone":"0000"}` + "\n" + `{"name":"Ann","phone":"555"}` + "\n"
			if got := readStore(t, path); got != want {
				t.Errorf("store = %q, want %q", got, want)
			}
		})

		t.Run("preserves others and order", func(t *testing.T) {
			svc, _ := setupService(t, "")
			for _, c := range []*models.Contact{{Name: "A", Phone: "1"}, {Name: "B", Phone: "2"}, {Name: "C", Phone: "3"}} {
				if err := svc.Add(c); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := svc.Update(&models.Contact{Name: "B", Phone: "22"}); err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			all, err := svc.GetAll()
			if err != nil {
				t.Fatal(err)
			}
			if want := []string{"A/1", "B/22", "C/3"}; !slices.Equal(names(all), want) {
				t.Errorf("GetAll() = %v, want %v", names(all), want)
			}
		})

		t.Run("first duplicate only", func(t *testing.T) {
			content := johnAnn + `{"name":"John","phone":"999"}` + "\n"
			svc, _ := setupService(t, content)
			if _, err := svc.Update(&models.Contact{Name: "John", Phone: "0"}); err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			all, err := svc.GetAll()
			if err != nil {
				t.Fatal(err)
			}
			if want := []string{"John/0", "Ann/555", "John/999"}; !slices.Equal(names(all), want) {
				t.Errorf("GetAll() = %v, want %v", names(all), want)
			}
		})

		t.Run("not found leaves store", func(t *testing.T) {
			svc, path := setupService(t, johnAnn)
			_, err := svc.Update(&models.Contact{Name: "Zzz", Phone: "1"})
			var nf *NotFoundError
			if !errors.As(err, &nf) {
				t.Fatalf("Update() error = %v, want *NotFoundError", err)
			}
			if nf.Name != "Zzz" {
				t.Errorf("NotFoundError.Name = %q, want Zzz", nf.Name)
			}
			if got := readStore(t, path); got != johnAnn {
				t.Errorf("store changed: %q", got)
			}
		})

		t.Run("name match is exact", func(t *testing.T) {
			svc, _ := setupService(t, johnAnn)
			var nf *NotFoundError
			if _, err := svc.Update(&models.Contact{Name: "john", Phone: "1"}); !errors.As(err, &nf) {
				t.Errorf("Update(john) error = %v, want *NotFoundError", err)
			}
		})

		t.Run("malformed line aborts", func(t *testing.T) {
			content := johnAnn + "garbage\n"
			svc, path := setupService(t, content)
			_, err := svc.Update(&models.Contact{Name: "John", Phone: "0"})
			var de *jsonldb.DecodingError
			if !errors.As(err, &de) {
				t.Fatalf("Update() error = %v, want *jsonldb.DecodingError", err)
			}
			if got := readStore(t, path); got != content {
				t.Errorf("store changed: %q", got)
			}
			entries, err := os.ReadDir(filepath.Dir(path))
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 1 {
				t.Errorf("directory has %d entries, want only the store", len(entries))
			}
		})

		t.Run("validation", func(t *testing.T) {
			svc, path := setupService(t, johnAnn)
			for _, c := range []*models.Contact{nil, {}, {Name: "John"}} {
				if _, err := svc.Update(c); !errors.Is(err, ErrValidation) {
					t.Errorf("Update(%+v) error = %v, want ErrValidation", c, err)
				}
			}
			if got := readStore(t, path); got != johnAnn {
				t.Errorf("store changed: %q", got)
			}
		})
	})

	t.Run("GetByName", func(t *testing.T) {
		svc, _ := setupService(t, johnAnn)

		got, err := svc.GetByName("Ann")
		if err != nil {
			t.Fatalf("GetByName() error = %v", err)
		}
		if got.Phone != "555" {
			t.Errorf("GetByName(Ann).Phone = %q, want 555", got.Phone)
		}

		_, err = svc.GetByName("Absent")
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("GetByName() error = %v, want *NotFoundError", err)
		}
		if nf.Name != "Absent" {
			t.Errorf("NotFoundError.Name = %q, want Absent", nf.Name)
		}
		if got, want := err.Error(), `contact "Absent" not found`; got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}

		if _, err := svc.GetByName(""); !errors.Is(err, ErrValidation) {
			t.Errorf("GetByName(\"\") error = %v, want ErrValidation", err)
		}
	})

	t.Run("GetByName malformed line", func(t *testing.T) {
		svc, _ := setupService(t, "{}\n"+johnAnn)
		var de *jsonldb.DecodingError
		if _, err := svc.GetByName("Ann"); !errors.As(err, &de) {
			t.Errorf("GetByName() error = %v, want *jsonldb.DecodingError", err)
		}
	})

	t.Run("GetAll", func(t *testing.T) {
		t.Run("empty", func(t *testing.T) {
			svc, _ := setupService(t, "")
			all, err := svc.GetAll()
			if err != nil {
				t.Fatalf("GetAll() error = %v", err)
			}
			if all == nil || len(all) != 0 {
				t.Errorf("GetAll() = %#v, want empty slice", all)
			}
		})

		t.Run("blank line", func(t *testing.T) {
			svc, _ := setupService(t, `{"name":"John","phone":"1"}`+"\n\n"+`{"name":"Ann","phone":"2"}`+"\n")
			all, err := svc.GetAll()
			var de *jsonldb.DecodingError
			if !errors.As(err, &de) || de.Line != 2 {
				t.Fatalf("GetAll() = %v, %v, want *jsonldb.DecodingError on line 2", names(all), err)
			}
		})

		t.Run("malformed line", func(t *testing.T) {
			svc, _ := setupService(t, johnAnn+`{"name":"NoPhone"}`+"\n")
			var de *jsonldb.DecodingError
			if _, err := svc.GetAll(); !errors.As(err, &de) {
				t.Errorf("GetAll() error = %v, want *jsonldb.DecodingError", err)
			}
		})
	})

	t.Run("missing store", func(t *testing.T) {
		svc, err := NewService(Config{Path: filepath.Join(t.TempDir(), "absent.txt")})
		if err != nil {
			t.Fatal(err)
		}
		c := &models.Contact{Name: "John", Phone: "1"}
		ops := map[string]func() error{
			"Add":       func() error { return svc.Add(c) },
			"Update":    func() error { _, err := svc.Update(c); return err },
			"GetByName": func() error { _, err := svc.GetByName("John"); return err },
			"GetAll":    func() error { _, err := svc.GetAll(); return err },
		}
		for name, op := range ops {
			t.Run(name, func(t *testing.T) {
				if err := op(); !errors.Is(err, ErrStoreNotFound) {
					t.Errorf("%s() error = %v, want ErrStoreNotFound", name, err)
				}
			})
		}
		if _, err := os.Stat(svc.Path()); !os.IsNotExist(err) {
			t.Errorf("store was created: %v", err)
		}
	})

	t.Run("Init", func(t *testing.T) {
		svc, err := NewService(Config{Path: filepath.Join(t.TempDir(), "data", DefaultPath)})
		if err != nil {
			t.Fatal(err)
		}
		if err := svc.Init(); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if err := svc.Add(&models.Contact{Name: "John", Phone: "1"}); err != nil {
			t.Fatalf("Add() after Init() error = %v", err)
		}
		if err := svc.Init(); err != nil {
			t.Fatalf("second Init() error = %v", err)
		}
		all, err := svc.GetAll()
		if err != nil || len(all) != 1 {
			t.Errorf("GetAll() = %v, %v, want one contact", names(all), err)
		}
	})

	t.Run("independent stores", func(t *testing.T) {
		a, _ := setupService(t, "")
		b, _ := setupService(t, "")
		if err := a.Add(&models.Contact{Name: "A", Phone: "1"}); err != nil {
			t.Fatal(err)
		}
		if all, err := b.GetAll(); err != nil || len(all) != 0 {
			t.Errorf("second store sees %v, %v", names(all), err)
		}
	})
}
