// Package cli implements the phonebook command layer: one-shot commands and the
// interactive shell, both dispatching to the same cobra commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/maruel/phonebook/internal/history"
	"github.com/maruel/phonebook/internal/jsonldb"
	"github.com/maruel/phonebook/internal/phonebook"
)

// Options configures an App.
type Options struct {
	// DBPath is the contact store file.
	DBPath string
	// Git enables recording every change as a commit in the store directory.
	Git bool
	// Author is the commit author when Git is set.
	Author history.Author
}

// App holds the services the commands operate on.
type App struct {
	svc    *phonebook.Service
	hist   *history.Repo // nil when history is disabled
	author history.Author
	out    io.Writer
}

// NewApp creates an App writing shell output to out.
func NewApp(ctx context.Context, opts Options, out io.Writer) (*App, error) {
	a := &App{}
	if err := a.open(ctx, opts, out); err != nil {
		return nil, err
	}
	return a, nil
}

// open resolves the store path and opens the history repository if enabled.
func (a *App) open(ctx context.Context, opts Options, out io.Writer) error {
	path := opts.DBPath
	if path == "" {
		path = phonebook.DefaultPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	svc, err := phonebook.NewService(phonebook.Config{Path: abs})
	if err != nil {
		return err
	}
	var hist *history.Repo
	if opts.Git {
		if hist, err = history.Open(ctx, filepath.Dir(abs), "", ""); err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
	}
	*a = App{svc: svc, hist: hist, author: opts.Author, out: out}
	return nil
}

// mutate runs fn and, when history is enabled, commits the store file with msg.
func (a *App) mutate(ctx context.Context, msg string, fn func() error) error {
	if a.hist == nil {
		return fn()
	}
	return a.hist.CommitTx(ctx, a.author, func() (string, []string, error) {
		if err := fn(); err != nil {
			return "", nil, err
		}
		return msg, []string{a.storeRel()}, nil
	})
}

// storeRel returns the store path relative to the history repository.
func (a *App) storeRel() string {
	rel, err := filepath.Rel(a.hist.Dir(), a.svc.Path())
	if err != nil {
		rel = filepath.Base(a.svc.Path())
	}
	return filepath.ToSlash(rel)
}

// userError turns a store error into the message shown to the user. usage is
// shown for validation failures.
func (a *App) userError(err error, usage string) error {
	var nf *phonebook.NotFoundError
	var de *jsonldb.DecodingError
	var ee *jsonldb.EncodingError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, phonebook.ErrValidation):
		return &userError{msg: usage, err: err}
	case errors.As(err, &nf):
		return &userError{msg: fmt.Sprintf("Contact '%s' not found.", nf.Name), err: err}
	case errors.Is(err, phonebook.ErrStoreNotFound):
		return &userError{msg: fmt.Sprintf("Contact book %s does not exist. Run 'init' to create it.", a.svc.Path()), err: err}
	case errors.As(err, &ee):
		return &userError{msg: fmt.Sprintf("Contact cannot be stored: %v.", ee.Err), err: err}
	case errors.As(err, &de):
		return &userError{msg: fmt.Sprintf("Contact book %s is corrupted: %v", a.svc.Path(), de), err: err}
	default:
		return err
	}
}

// userError is an expected failure whose message is meant for the user.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string {
	return e.msg
}

func (e *userError) Unwrap() error {
	return e.err
}
