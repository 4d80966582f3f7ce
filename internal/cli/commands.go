package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/maruel/phonebook/internal/jsonldb"
	"github.com/maruel/phonebook/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	addUsage = "Give me a name and phone number please.\n" +
		"Usage: add <name> <phone>\n" +
		"Example: add John 1234567890"
	changeUsage = "Give me a name and phone number please.\n" +
		"Usage: change <name> <phone>\n" +
		"Example: change John 0987654321"
	phoneUsage = "Please provide the name.\n" +
		"Usage: phone <name>\n" +
		"Example: phone John"
)

// contactArgs marks commands whose arguments are contact fields. The shell
// passes them verbatim so phones like "-555-010" are not parsed as flags.
const contactArgs = "contact-args"

// commands returns a fresh set of contact book commands bound to a.
func (a *App) commands() []*cobra.Command {
	return []*cobra.Command{
		a.addCmd(),
		a.changeCmd(),
		a.phoneCmd(),
		a.allCmd(),
		a.helloCmd(),
		a.initCmd(),
		a.historyCmd(),
		a.schemaCmd(),
		a.exportCmd(),
	}
}

// contactFromArgs builds a contact from "<name> <phone...>". The phone may be
// split over several arguments ("+1 555 010"); they are joined with spaces.
func contactFromArgs(args []string) *models.Contact {
	c := &models.Contact{}
	if len(args) > 0 {
		c.Name = args[0]
	}
	if len(args) > 1 {
		c.Phone = strings.Join(args[1:], " ")
	}
	return c
}

func (a *App) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "add <name> <phone>",
		Annotations: map[string]string{contactArgs: "true"},
		Short:       "Add a contact",
		Example:     "  add John 1234567890\n  add John -- -555-010",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := contactFromArgs(args)
			err := a.mutate(cmd.Context(), fmt.Sprintf("Add %s", c.Name), func() error {
				return a.svc.Add(c)
			})
			if err != nil {
				return a.userError(err, addUsage)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Contact '%s' has been added.\n", c.Name)
			return nil
		},
	}
}

func (a *App) changeCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "change <name> <phone>",
		Annotations: map[string]string{contactArgs: "true"},
		Short:       "Change the phone number of an existing contact",
		Example:     "  change John 0987654321",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := contactFromArgs(args)
			err := a.mutate(cmd.Context(), fmt.Sprintf("Change %s", c.Name), func() error {
				_, err := a.svc.Update(c)
				return err
			})
			if err != nil {
				return a.userError(err, changeUsage)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Contact '%s' has been changed.\n", c.Name)
			return nil
		},
	}
}

func (a *App) phoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "phone <name>",
		Annotations: map[string]string{contactArgs: "true"},
		Short:       "Show the phone number of a contact",
		Example:     "  phone John",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return &userError{msg: phoneUsage}
			}
			c, err := a.svc.GetByName(args[0])
			if err != nil {
				return a.userError(err, phoneUsage)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Phone: '%s'.\n", c.Phone)
			return nil
		},
	}
}

func (a *App) allCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "List all contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			contacts, err := a.svc.GetAll()
			if err != nil {
				return a.userError(err, "")
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPHONE")
			for _, c := range contacts {
				fmt.Fprintf(w, "%s\t%s\n", c.Name, c.Phone)
			}
			return w.Flush()
		},
	}
}

func (a *App) helloCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hello",
		Short: "Greet",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "How can I help you?")
		},
	}
}

func (a *App) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty contact book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := a.mutate(cmd.Context(), "Create contact book", a.svc.Init)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Contact book ready at %s.\n", a.svc.Path())
			return nil
		},
	}
}

func (a *App) historyCmd() *cobra.Command {
	var n int
	var show string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the change history of the contact book (requires --git)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.hist == nil {
				return &userError{msg: "History is disabled. Run with --git to record changes."}
			}
			ctx := cmd.Context()
			if show != "" {
				data, err := a.hist.FileAt(ctx, show, a.storeRel())
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			commits, err := a.hist.Log(ctx, a.storeRel(), n)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "COMMIT\tDATE\tAUTHOR\tMESSAGE")
			for _, c := range commits {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Hash[:8], c.AuthorDate.Format("2006-01-02 15:04:05"), c.Author, c.Message)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&n, "number", "n", 20, "Maximum number of changes to show")
	cmd.Flags().StringVar(&show, "show", "", "Print the contact book as of this commit")
	return cmd
}

func (a *App) schemaCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Describe the fields of a contact book line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				s, err := jsonldb.Schema[*models.Contact]()
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			columns, err := jsonldb.Columns[*models.Contact]()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FIELD\tTYPE\tREQUIRED\tDESCRIPTION")
			for _, c := range columns {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", c.Name, c.Type, c.Required, c.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the JSON Schema instead of a table")
	return cmd
}

func (a *App) exportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print all contacts as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			contacts, err := a.svc.GetAll()
			if err != nil {
				return a.userError(err, "")
			}
			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(contacts)
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(contacts); err != nil {
					return err
				}
				return enc.Close()
			default:
				return &userError{msg: fmt.Sprintf("Unknown format %q. Use json or yaml.", format)}
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json, yaml)")
	return cmd
}
