// Package main is the entry point for the phonebook command.
//
// phonebook keeps name and phone records in a flat text file, one JSON object
// per line. Without a subcommand it starts an interactive shell. Configuration
// comes from flags and a .env file in the working directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/maruel/phonebook/internal/cli"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "phonebook: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:       ll,
		TimeFormat:  "15:04:05.000",
		NoColor:     !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: dropEmpty,
	}))
	slog.SetDefault(logger)

	env, err := loadDotEnv(".")
	if err != nil {
		return err
	}
	root := cli.NewRootCommand(cli.Config{
		Env:     env,
		Level:   ll,
		Version: version(),
		In:      os.Stdin,
		Out:     os.Stdout,
	})
	return root.ExecuteContext(ctx)
}

// dropEmpty removes zero-valued attributes from log lines.
func dropEmpty(_ []string, a slog.Attr) slog.Attr {
	skip := false
	switch t := a.Value.Any().(type) {
	case string:
		skip = t == ""
	case bool:
		skip = !t
	case int64:
		skip = t == 0
	case time.Duration:
		skip = t == 0
	case nil:
		skip = true
	}
	if skip {
		return slog.Attr{}
	}
	return a
}

func version() string {
	v, goVersion, revision, dirty := getBuildInfo()
	s := fmt.Sprintf("%s (%s, revision %s", v, goVersion, revision)
	if dirty {
		s += ", modified"
	}
	return s + ")"
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

// loadDotEnv reads KEY=VALUE pairs from dir/.env. A missing file yields an
// empty map.
//
// The keys read by the root command are PHONEBOOK_DB, PHONEBOOK_GIT and
// LOG_LEVEL; they only apply to flags not given on the command line. Only the
// first "=" separates key from value, and double-quoted values are unquoted
// with Go syntax.
func loadDotEnv(dir string) (map[string]string, error) {
	env := make(map[string]string)
	envContent, err := os.ReadFile(filepath.Join(dir, ".env")) //nolint:gosec // G304: fixed name in the working directory
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return nil, err
	}
	for line := range strings.SplitSeq(string(envContent), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if strings.HasPrefix(val, "'") || strings.HasSuffix(val, "'") {
			return nil, fmt.Errorf("single quotes are not supported in .env: %s", line)
		}
		if strings.HasPrefix(val, "\"") {
			unquoted, err := strconv.Unquote(val)
			if err != nil {
				return nil, fmt.Errorf("failed to unquote %s: %w", key, err)
			}
			val = unquoted
		}
		env[key] = val
	}
	return env, nil
}
