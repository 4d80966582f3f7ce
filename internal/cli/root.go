package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/maruel/phonebook/internal/history"
	"github.com/maruel/phonebook/internal/phonebook"
	"github.com/spf13/cobra"
)

// Config configures the root command.
type Config struct {
	// Env holds .env values. They apply to flags not set on the command line.
	Env map[string]string
	// Level is adjusted from --log-level. May be nil.
	Level *slog.LevelVar
	// Version is reported by --version.
	Version string
	In      io.Reader
	Out     io.Writer
}

// NewRootCommand returns the phonebook command tree.
//
// Without a subcommand it starts the interactive shell.
func NewRootCommand(cfg Config) *cobra.Command {
	// Filled in by PersistentPreRunE once flags are parsed.
	app := &App{}
	var dbPath, logLevel, authorName, authorEmail string
	var useGit bool

	root := &cobra.Command{
		Use:           "phonebook",
		Short:         "A contact book stored in a flat text file",
		Version:       cfg.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if !flags.Changed("db") {
				if v := cfg.Env["PHONEBOOK_DB"]; v != "" {
					dbPath = v
				}
			}
			if !flags.Changed("log-level") {
				if v := cfg.Env["LOG_LEVEL"]; v != "" {
					logLevel = v
				}
			}
			if !flags.Changed("git") {
				if v := cfg.Env["PHONEBOOK_GIT"]; v != "" {
					b, err := strconv.ParseBool(v)
					if err != nil {
						return fmt.Errorf("invalid PHONEBOOK_GIT %q: %w", v, err)
					}
					useGit = b
				}
			}
			if err := setLevel(cfg.Level, logLevel); err != nil {
				return err
			}
			opts := Options{
				DBPath: dbPath,
				Git:    useGit,
				Author: history.Author{Name: authorName, Email: authorEmail},
			}
			if err := app.open(cmd.Context(), opts, cmd.OutOrStdout()); err != nil {
				return err
			}
			slog.DebugContext(cmd.Context(), "Opened contact book", "path", app.svc.Path(), "git", useGit)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Shell(cmd.Context(), cmd.InOrStdin())
		},
	}
	if cfg.In != nil {
		root.SetIn(cfg.In)
	}
	if cfg.Out != nil {
		root.SetOut(cfg.Out)
	}

	pf := root.PersistentFlags()
	pf.StringVar(&dbPath, "db", phonebook.DefaultPath, "Contact book file")
	pf.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.BoolVar(&useGit, "git", false, "Record every change as a git commit next to the contact book")
	pf.StringVar(&authorName, "author", "", "Commit author name when --git is set")
	pf.StringVar(&authorEmail, "author-email", "", "Commit author email when --git is set")

	root.AddCommand(&cobra.Command{
		Use:   "shell",
		Short: "Start the interactive shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Shell(cmd.Context(), cmd.InOrStdin())
		},
	})
	root.AddCommand(app.commands()...)
	return root
}

func setLevel(lv *slog.LevelVar, level string) error {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return fmt.Errorf("unknown log level: %q", level)
	}
	if lv != nil {
		lv.Set(l)
	}
	return nil
}
