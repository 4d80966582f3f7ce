// Package phonebook implements the contact store on top of a JSONL file.
//
// Each operation reads the file again; nothing is cached between calls. Update
// rewrites the whole file through a temporary file and an atomic rename.
package phonebook

import (
	"fmt"

	"github.com/maruel/phonebook/internal/jsonldb"
	"github.com/maruel/phonebook/internal/models"
)

// DefaultPath is the store file used when none is configured.
const DefaultPath = "database.txt"

// Config configures a Service.
type Config struct {
	// Path is the store file. It must exist for any operation but Init to
	// succeed.
	Path string
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Path == "" {
		return errPathRequired
	}
	return nil
}

// Service handles contact storage.
type Service struct {
	file *jsonldb.File[*models.Contact]
}

// NewService creates a contact service. The store file is not accessed.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	file, err := jsonldb.NewFile[*models.Contact](cfg.Path)
	if err != nil {
		return nil, err
	}
	return &Service{file: file}, nil
}

// Path returns the store file path.
func (s *Service) Path() string {
	return s.file.Path()
}

// Init creates an empty store file if it does not exist.
func (s *Service) Init() error {
	return s.file.Create()
}

// Add appends c to the store.
//
// Add does not look for an existing contact with the same name.
func (s *Service) Add(c *models.Contact) error {
	if err := validateContact(c); err != nil {
		return err
	}
	return s.file.Append(c)
}

// Update replaces the first stored contact named c.Name with c, keeping its
// position, and returns the updated contact.
func (s *Service) Update(c *models.Contact) (*models.Contact, error) {
	if err := validateContact(c); err != nil {
		return nil, err
	}
	matched := false
	n, err := s.file.Rewrite(func(row *models.Contact) (*models.Contact, bool, error) {
		if matched || row.Name != c.Name {
			return row, false, nil
		}
		matched = true
		return c, true, nil
	})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, &NotFoundError{Name: c.Name}
	}
	return c.Clone(), nil
}

// GetByName returns the first contact whose name equals name exactly.
func (s *Service) GetByName(name string) (*models.Contact, error) {
	if name == "" {
		return nil, errNameRequired
	}
	for row, err := range s.file.Scan() {
		if err != nil {
			return nil, err
		}
		if row.Name == name {
			return row, nil
		}
	}
	return nil, &NotFoundError{Name: name}
}

// GetAll returns every contact in store order.
func (s *Service) GetAll() ([]*models.Contact, error) {
	return s.file.All()
}

func validateContact(c *models.Contact) error {
	if c == nil {
		return errContactRequired
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}
