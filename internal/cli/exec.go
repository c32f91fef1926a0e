package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	shellbridge "github.com/tobgle/shellbridge"
)

// NewExecCommand creates the exec command: run each argument as one
// command against a single engine session and exit.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <sql> [sql...]",
		Short: "Execute SQL commands and exit",
		Long: `Execute one or more SQL commands against a fresh engine session.

All commands share the session, so earlier statements are visible to later
ones:

  shellbridge exec "CREATE TABLE t (n INT)" "INSERT INTO t VALUES (1)" "SELECT * FROM t"

A single "-" argument reads one command per line from stdin instead.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			commands, err := gatherCommands(cmd, args)
			if err != nil {
				return err
			}

			return runExec(cmd, rootOpts, commands)
		},
	}

	return cmd
}

// gatherCommands expands the argument list. A lone "-" reads one command
// per line from stdin instead.
func gatherCommands(cmd *cobra.Command, args []string) ([]string, error) {
	if len(args) != 1 || args[0] != "-" {
		return args, nil
	}

	var commands []string

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			commands = append(commands, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}

	if len(commands) == 0 {
		return nil, errors.New("no commands on stdin")
	}

	return commands, nil
}

func runExec(cmd *cobra.Command, rootOpts *RootOptions, args []string) error {
	ctx := cmd.Context()

	b, err := openBridge(ctx, rootOpts)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	var failed bool

	for _, text := range args {
		res, err := b.Run(ctx, text)
		if errors.Is(err, shellbridge.ErrEngineDead) {
			if res != nil {
				printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)
			}

			return &ExitError{Code: ExitEngineDead, Err: fmt.Errorf("run %q: %w", text, err)}
		}
		if err != nil {
			return &ExitError{Code: ExitUsageError, Err: fmt.Errorf("run %q: %w", text, err)}
		}

		printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)

		if len(res.Stderr) > 0 {
			failed = true
		}
	}

	if failed {
		return &ExitError{Code: ExitCommandError, Err: errors.New("one or more commands failed")}
	}

	return nil
}
