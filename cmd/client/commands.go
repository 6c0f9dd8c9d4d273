package main

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/priyanshu-verma600/notekeeper/internal/address"
	"github.com/priyanshu-verma600/notekeeper/internal/client"
	"github.com/priyanshu-verma600/notekeeper/internal/keygen"
	"github.com/priyanshu-verma600/notekeeper/internal/models"
)

// rootOptions holds the global flags shared by all commands.
type rootOptions struct {
	Server    string
	KeyFile   string
	CAFile    string
	Namespace string
	History   string
}

func defaultOptions() *rootOptions {
	return &rootOptions{
		Server:    "https://localhost:8080",
		KeyFile:   "notekeeper.pem",
		CAFile:    "certs/server.crt",
		Namespace: address.DefaultNamespace,
		History:   ".notekeeper_history",
	}
}

// client builds an API client from the identity key and server flags.
func (o *rootOptions) client() (*client.Client, error) {
	key, err := keygen.LoadIdentity(o.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load identity (run keygen first?): %w", err)
	}
	httpClient, err := client.NewHTTPClient(o.CAFile)
	if err != nil {
		return nil, err
	}
	return client.New(o.Server, httpClient, key, address.New(o.Namespace)), nil
}

// newRootCommand creates the root command. Flag defaults are taken from
// opts, so commands created inside the shell inherit the outer flags.
func newRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "notekeeper",
		Short:         "NoteKeeper client",
		Long:          "Register a profile and manage notes on a NoteKeeper server.",
		Version:       fmt.Sprintf("%s (built %s)", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A")),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", opts.Server, "server base URL")
	cmd.PersistentFlags().StringVar(&opts.KeyFile, "key", opts.KeyFile, "identity key file")
	cmd.PersistentFlags().StringVar(&opts.CAFile, "ca", opts.CAFile, "server CA certificate (empty for system roots)")
	cmd.PersistentFlags().StringVar(&opts.Namespace, "namespace", opts.Namespace, "address namespace of the server")

	cmd.AddCommand(
		newKeygenCommand(opts),
		newRegisterCommand(opts),
		newProfileCommand(opts),
		newBalanceCommand(opts),
		newCreateCommand(opts),
		newGetCommand(opts),
		newUpdateCommand(opts),
		newDeleteCommand(opts),
		newShellCommand(opts),
	)
	return cmd
}

func newKeygenCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new identity key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, id, err := keygen.GenerateIdentity()
			if err != nil {
				return err
			}
			if err := keygen.SaveIdentity(opts.KeyFile, key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Identity: %s\nKey saved to %s\n", id, opts.KeyFile)
			return nil
		},
	}
}

func newRegisterCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "register <username>",
		Short: "Create your user profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			addr, err := c.Register(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile created at %s\n", addr)
			return nil
		},
	}
}

func newProfileCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profile [identity]",
		Short: "Show a user profile (yours by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			owner, err := ownerArg(c, args)
			if err != nil {
				return err
			}
			p, err := c.Profile(cmd.Context(), owner)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
}

func newBalanceCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [identity]",
		Short: "Show the net lamports paid for storage (yours by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			owner, err := ownerArg(c, args)
			if err != nil {
				return err
			}
			lamports, err := c.Balance(cmd.Context(), owner)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d lamports\n", lamports)
			return nil
		},
	}
}

func newCreateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <title> <content>",
		Short: "Create a note",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			id, addr, err := c.CreateNote(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note %d created at %s\n", id, addr)
			return nil
		},
	}
}

func newGetCommand(opts *rootOptions) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			id, err := parseNoteID(args[0])
			if err != nil {
				return err
			}
			ownerID := c.Identity()
			if owner != "" {
				if ownerID, err = models.ParseIdentity(owner); err != nil {
					return err
				}
			}
			n, err := c.Note(cmd.Context(), ownerID, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), n)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "identity of the note owner (yours by default)")
	return cmd
}

func newUpdateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <content>",
		Short: "Replace the content of one of your notes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			id, err := parseNoteID(args[0])
			if err != nil {
				return err
			}
			if err := c.UpdateNote(cmd.Context(), id, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note %d updated\n", id)
			return nil
		},
	}
}

func newDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of your notes and reclaim its deposit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			id, err := parseNoteID(args[0])
			if err != nil {
				return err
			}
			if err := c.DeleteNote(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note %d deleted\n", id)
			return nil
		},
	}
}

func ownerArg(c *client.Client, args []string) (models.Identity, error) {
	if len(args) == 0 {
		return c.Identity(), nil
	}
	return models.ParseIdentity(args[0])
}

func parseNoteID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid note id %q", s)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
