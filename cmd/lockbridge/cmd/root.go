package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/anthr76/lockbridge/internal/config"
	"github.com/anthr76/lockbridge/internal/convert"
	"github.com/anthr76/lockbridge/internal/registry"
)

const Version = "0.1.0"

var (
	verbose     bool
	registryURL string
	concurrency int
	noCache     bool
)

var rootCmd = &cobra.Command{
	Use:   "lockbridge",
	Short: "Translate between package-lock.json and yarn.lock",
	Long: `lockbridge converts a project's npm package-lock.json into a yarn.lock and
back, without installing anything.

Metadata one format records and the other lacks, such as yarn's sha1 or a
git dependency's version, is looked up in the npm registry or on GitHub.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := log.InfoLevel
		if verbose {
			level = log.DebugLevel
		}
		cmd.SetContext(withLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), level)))
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&registryURL, "registry", "", "npm registry URL (default from config or "+config.DefaultRegistry+")")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "parallel registry lookups (default from config)")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "do not read or write the metadata cache")
}

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// projectDir returns the directory argument or the working directory.
func projectDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// newConverter wires a converter for dir from its config file, the
// environment and the command line, in that order of precedence.
func newConverter(cmd *cobra.Command, dir string) (*convert.Converter, error) {
	logger := loggerFromContext(cmd.Context())

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if registryURL != "" {
		cfg.Registry = registryURL
	}
	if concurrency > 0 {
		cfg.Concurrency = concurrency
	}
	if noCache {
		cfg.NoCache = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	netrc, err := registry.LoadNetrc()
	if err != nil {
		return nil, err
	}

	opts := registry.Options{
		Registry:  cfg.Registry,
		GitHubRaw: cfg.GitHubRaw,
		GitHubAPI: cfg.GitHubAPI,
		Timeout:   cfg.Timeout,
		Netrc:     netrc,
		Logger:    logger,
	}
	if !cfg.NoCache {
		opts.CacheDir = cfg.CacheDir
	}
	client, err := registry.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("creating registry client: %w", err)
	}

	logger.Debug("configured", "registry", cfg.Registry, "concurrency", cfg.Concurrency, "cache", opts.CacheDir)
	return convert.New(client, convert.WithLogger(logger), convert.WithConcurrency(cfg.Concurrency)), nil
}
