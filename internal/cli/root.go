// Package cli implements the shellbridge command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	shellbridge "github.com/tobgle/shellbridge"
	"github.com/tobgle/shellbridge/internal/config"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	Database   string
	SeedFile   string
	Buffer     int
	Verbose    bool
}

// NewRootCommand creates the root command for the shellbridge CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "shellbridge",
		Short: "Run SQL against a bridged single-session engine",
		Long: `shellbridge hosts a SQLite engine behind the bridge protocol and lets
you execute commands against it, either one-shot (exec) or interactively
(repl).`,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default in-memory)")
	cmd.PersistentFlags().StringVar(&opts.SeedFile, "seed", "", "path to SQL script run during bootstrap")
	cmd.PersistentFlags().IntVar(&opts.Buffer, "buffer", 0, "envelope send buffer (0 uses the default)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewReplCommand(opts))

	return cmd
}

// resolve merges the config file with command-line flags. Flags win.
func (o *RootOptions) resolve() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}

	if o.Database != "" {
		cfg.Database = o.Database
	}
	if o.SeedFile != "" {
		cfg.SeedFile = o.SeedFile
	}
	if o.Buffer > 0 {
		cfg.SendBuffer = o.Buffer
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, nil
}

// bridgeOptions turns the resolved config into bridge options.
func bridgeOptions(cfg *config.Config) ([]shellbridge.Option, error) {
	opts := []shellbridge.Option{
		shellbridge.WithDatabase(cfg.Database),
		shellbridge.WithBuffer(cfg.SendBuffer),
	}

	if cfg.SeedFile != "" {
		seed, err := os.ReadFile(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}

		opts = append(opts, shellbridge.WithSeed(string(seed)))
	}

	if cfg.LogLevel != "" {
		level, err := cfg.Level()
		if err != nil {
			return nil, err
		}

		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		opts = append(opts, shellbridge.WithLogger(slog.New(handler)))
	}

	return opts, nil
}

// openBridge builds and starts a bridge from the resolved options, blocking
// until the engine is ready.
func openBridge(ctx context.Context, rootOpts *RootOptions, extra ...shellbridge.Option) (*shellbridge.Bridge, error) {
	cfg, err := rootOpts.resolve()
	if err != nil {
		return nil, err
	}

	opts, err := bridgeOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)

	b := shellbridge.New(opts...)

	if err := b.Start(ctx); err != nil {
		_ = b.Close()

		return nil, err
	}

	if err := b.WaitReady(ctx); err != nil {
		_ = b.Close()

		return nil, fmt.Errorf("engine failed to load: %w", err)
	}

	return b, nil
}
