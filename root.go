package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/anaplan-sdk/anaplan-go/internal/config"
	"github.com/anaplan-sdk/anaplan-go/pkg/anaplan"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagWorkspace  string
	flagModel      string
	flagAuth       string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// CLIFlags is the snapshot of global flags a command runs with.
type CLIFlags struct {
	JSON    bool
	Verbose bool
	Quiet   bool
}

// CLIContext carries what every subcommand needs: the resolved config, the
// logger built from it, and the global flags.
type CLIContext struct {
	Cfg    *config.Resolved
	Logger *slog.Logger
	Flags  CLIFlags
}

type cliContextKey struct{}

func withCLIContext(ctx context.Context, cc *CLIContext) context.Context {
	return context.WithValue(ctx, cliContextKey{}, cc)
}

// mustCLIContext returns the CLIContext stored by the root pre-run. Its
// absence is a programming error.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("CLIContext missing from command context")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "anaplan-go",
		Short:   "Anaplan command line client",
		Long:    "Run Anaplan actions, move model files and query workspaces from the terminal.",
		Version: version,
		// We print errors ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagWorkspace, "workspace", "", "workspace id")
	cmd.PersistentFlags().StringVar(&flagModel, "model", "", "model id")
	cmd.PersistentFlags().StringVar(&flagAuth, "auth", "", "auth method: basic, certificate, token or oauth")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWorkspacesCmd())
	cmd.AddCommand(newModelsCmd())
	cmd.AddCommand(newFilesCmd())
	cmd.AddCommand(newActionsCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newTasksCmd())
	cmd.AddCommand(newUsersCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer
// override chain and stores a CLIContext on the command.
func loadConfig(cmd *cobra.Command) error {
	flags := CLIFlags{JSON: flagJSON, Verbose: flagVerbose, Quiet: flagQuiet}

	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
		LogLevel:   flagLogLevel(flags),
	}

	// Only pass flags the user explicitly set.
	if cmd.Flags().Changed("workspace") {
		cli.WorkspaceID = &flagWorkspace
	}

	if cmd.Flags().Changed("model") {
		cli.ModelID = &flagModel
	}

	if cmd.Flags().Changed("auth") {
		cli.AuthMethod = &flagAuth
	}

	bootstrap := buildLogger("", flags)

	resolved, err := config.Resolve(config.ReadEnvOverrides(bootstrap), cli, bootstrap)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cc := &CLIContext{
		Cfg:    resolved,
		Logger: buildLogger(resolved.LogLevel, flags),
		Flags:  flags,
	}

	cmd.SetContext(withCLIContext(cmd.Context(), cc))

	return nil
}

// flagLogLevel maps --verbose and --quiet onto a config log level. Empty
// means the flags say nothing.
func flagLogLevel(f CLIFlags) string {
	switch {
	case f.Quiet:
		return "error"
	case f.Verbose:
		return "debug"
	default:
		return ""
	}
}

// buildLogger creates a text logger on stderr. The config level provides
// the baseline; --verbose and --quiet override it.
func buildLogger(configLevel string, f CLIFlags) *slog.Logger {
	level := slog.LevelWarn

	switch configLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}

	if f.Verbose {
		level = slog.LevelDebug
	}

	if f.Quiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newClient authenticates a client from the resolved configuration.
func newClient(ctx context.Context, cc *CLIContext) (*anaplan.Client, error) {
	if err := config.ValidateResolved(cc.Cfg); err != nil {
		return nil, fmt.Errorf("incomplete credentials: %w", err)
	}

	creds, err := buildCredentials(cc.Cfg, interactive(), cc.Logger)
	if err != nil {
		return nil, err
	}

	r := cc.Cfg

	c, err := anaplan.New(ctx, anaplan.Options{
		WorkspaceID:       r.WorkspaceID,
		ModelID:           r.ModelID,
		Credentials:       creds,
		Timeouts:          &anaplan.Timeouts{Total: r.Timeout, Connect: r.ConnectTimeout},
		RetryCount:        r.RetryCount,
		Backoff:           r.Backoff,
		BackoffFactor:     r.BackoffFactor,
		PageSize:          r.PageSize,
		PollDelay:         r.StatusPollDelay,
		UploadChunkSize:   int(r.UploadChunkSize),
		BatchSize:         r.BatchSize,
		AllowFileCreation: r.AllowFileCreation,
		Concurrency:       r.Concurrency,
		Logger:            cc.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to Anaplan: %w", err)
	}

	return c, nil
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	var remote *anaplan.RemoteError
	if errors.As(err, &remote) && flagVerbose {
		fmt.Fprintf(os.Stderr, "Response body: %s\n", remote.Body)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
