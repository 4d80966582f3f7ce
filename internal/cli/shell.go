package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

const unknownCommand = "Unknown command. Please try one more time. Type 'help' for the list of commands."

// Shell reads commands from in, one per line, until EOF, "exit" or "close".
func (a *App) Shell(ctx context.Context, in io.Reader) error {
	stop, err := a.watchStore(ctx)
	if err != nil {
		// Watching is informational; the shell works without it.
		slog.WarnContext(ctx, "Cannot watch contact book", "err", err)
	} else {
		defer stop()
	}

	fmt.Fprintln(a.out, "Welcome to the contact book! Type 'help' for the list of commands.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(a.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(a.out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if a.Exec(ctx, scanner.Text()) {
			fmt.Fprintln(a.out, "Goodbye!")
			return nil
		}
	}
}

// Exec runs a single shell line and reports whether the shell should quit.
//
// The first word is matched case-insensitively. Failures are printed, never
// returned: the shell keeps going.
func (a *App) Exec(ctx context.Context, line string) bool {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}
	args[0] = strings.ToLower(args[0])
	switch args[0] {
	case "exit", "close":
		return true
	}

	root := &cobra.Command{
		Use:               "phonebook",
		SilenceErrors:     true,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}
	root.AddCommand(a.commands()...)
	root.InitDefaultHelpCmd()
	root.SetOut(a.out)
	root.SetErr(a.out)
	c, _, err := root.Find(args)
	if err != nil || c == root {
		fmt.Fprintln(a.out, unknownCommand)
		return false
	}
	if c.Annotations[contactArgs] != "" && !slices.Contains(args, "--") {
		args = append([]string{args[0], "--"}, args[1:]...)
	}
	root.SetArgs(args)
	slog.DebugContext(ctx, "Running", "cmd", args[0])
	if err := root.ExecuteContext(ctx); err != nil {
		var ue *userError
		if errors.As(err, &ue) {
			fmt.Fprintln(a.out, ue.msg)
		} else {
			slog.ErrorContext(ctx, "Command failed", "cmd", args[0], "err", err)
			fmt.Fprintf(a.out, "Error: %v\n", err)
		}
	}
	return false
}
