package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	shellbridge "github.com/tobgle/shellbridge"
)

// NewReplCommand creates the repl command: an interactive loop reading one
// command per line.
func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive SQL session",
		Long: `Start an interactive session against a single engine. Each input line
runs as one command. Type .quit (or press Ctrl-D) to leave.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd, rootOpts)
		},
	}

	return cmd
}

func runRepl(cmd *cobra.Command, rootOpts *RootOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	b, err := openBridge(ctx, rootOpts,
		shellbridge.WithStatusHandler(func(text string) {
			if strings.HasPrefix(text, "Exception:") {
				fmt.Fprintln(errOut, text)
			}
		}),
	)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	fmt.Fprintf(out, "session %s; .quit to leave\n", b.SessionID())

	scanner := bufio.NewScanner(cmd.InOrStdin())

	for {
		fmt.Fprint(out, "sql> ")

		if !scanner.Scan() {
			fmt.Fprintln(out)

			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case ".quit", ".exit":
			return nil
		}

		res, err := b.Run(ctx, line)
		if errors.Is(err, shellbridge.ErrEngineDead) {
			if res != nil {
				for _, bundle := range res.Stderr {
					for _, l := range bundle {
						fmt.Fprintln(errOut, l)
					}
				}
			}

			return &ExitError{Code: ExitEngineDead, Err: err}
		}
		if err != nil {
			return &ExitError{Code: ExitUsageError, Err: err}
		}

		for _, bundle := range res.Stdout {
			for _, l := range bundle {
				fmt.Fprintln(out, l)
			}
		}
		for _, bundle := range res.Stderr {
			for _, l := range bundle {
				fmt.Fprintln(errOut, l)
			}
		}
	}
}
