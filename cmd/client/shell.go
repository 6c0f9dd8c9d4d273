package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

func newShellCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "notekeeper> ",
				HistoryFile:     opts.History,
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return fmt.Errorf("init readline: %w", err)
			}
			defer rl.Close()
			return runShell(rl, rl.Stdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.History, "history", opts.History, "shell history file")
	return cmd
}

// lineReader is the part of readline.Instance the shell needs.
type lineReader interface {
	Readline() (string, error)
}

// runShell executes each line read from rl as a client command until
// exit or EOF.
func runShell(rl lineReader, out io.Writer, opts *rootOptions) error {
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			fmt.Fprintln(out, "Use 'exit' or 'quit' to exit the shell.")
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		args, err := splitArgs(line)
		if err != nil {
			fmt.Fprintln(out, "Error:", err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "exit", "quit":
			fmt.Fprintln(out, "Bye")
			return nil
		case "shell":
			fmt.Fprintln(out, "Already in the shell.")
			continue
		}

		cmd := newRootCommand(opts)
		cmd.SetArgs(args)
		cmd.SetOut(out)
		cmd.SetErr(out)
		if err := cmd.Execute(); err != nil {
			fmt.Fprintln(out, "Error:", err)
		}
	}
}

// splitArgs splits a shell line into words. Double quotes group words and
// a backslash escapes the next character.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quoted  bool
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped, inWord = true, true
		case r == '"':
			quoted, inWord = !quoted, true
		case !quoted && (r == ' ' || r == '\t'):
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if quoted || escaped {
		return nil, errors.New("unterminated quote or escape")
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}
