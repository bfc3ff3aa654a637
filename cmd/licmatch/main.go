package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/chriscorrea/licmatch/internal/app"
	"github.com/chriscorrea/licmatch/internal/config"
	"github.com/chriscorrea/licmatch/internal/spinner"
)

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"licenses":  "licenses_dir",
	"artifacts": "artifacts_dir",
	"stopwords": "stopwords_file",
	"rank":      "rank",
	"top":       "top",
	"workers":   "workers",
}

// loadConfig merges defaults, the config file, LICMATCH_* variables and the
// flags set on cmd, in increasing order of precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.New()
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag %q: %w", flag, err)
			}
		}
	}
	path, _ := cmd.Flags().GetString("config")
	return config.Load(v, path)
}

// setupLogger configures the default slog logger based on debug mode
func setupLogger(debug bool) {
	level := slog.LevelError
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func outputFormat(cmd *cobra.Command) app.OutputFormat {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return app.JSON
	}
	return app.Text
}

// progress returns stderr when a spinner should be drawn.
func progress(cmd *cobra.Command) io.Writer {
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet || !spinner.IsTerminal(os.Stderr) {
		return nil
	}
	return os.Stderr
}

func printBuild(cmd *cobra.Command, r *app.BuildReport) {
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d licenses (%d terms, rank %d) into %s\n",
		r.Documents, r.Terms, r.Rank, r.Artifacts.Index)
}

var rootCmd = &cobra.Command{
	Use:   "licmatch",
	Short: "Identify a license text by semantic similarity",
	Long: `licmatch matches an unknown license text against a catalog of known licenses
and prints the rules paired with the closest one.

Examples:
  licmatch build --licenses Licenses
  licmatch match LICENSE
  curl -s https://example.com/LICENSE | licmatch match --json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		setupLogger(debug)
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the vocabulary, matrix, model and index from the license catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		report, err := app.Build(cmd.Context(), cfg, app.BuildOptions{Progress: progress(cmd)})
		if err != nil {
			return fmt.Errorf("build failed: %w", err)
		}
		printBuild(cmd, report)
		return nil
	},
}

var refitCmd = &cobra.Command{
	Use:   "refit",
	Short: "Re-fit the model and rebuild the index from the stored corpus",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		report, err := app.Refit(cmd.Context(), cfg, app.BuildOptions{Progress: progress(cmd)})
		if err != nil {
			return fmt.Errorf("refit failed: %w", err)
		}
		printBuild(cmd, report)
		return nil
	},
}

var matchCmd = &cobra.Command{
	Use:   "match [source]",
	Short: "Rank the catalog against a license text from a file, URL or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		source := "-"
		if len(args) == 1 {
			source = args[0]
		}
		selector, _ := cmd.Flags().GetString("selector")
		includeAll, _ := cmd.Flags().GetBool("include-all")

		report, err := app.Match(cmd.Context(), cfg, app.MatchOptions{
			Source:     source,
			Selector:   selector,
			IncludeAll: includeAll,
		})
		if err != nil {
			return fmt.Errorf("match failed: %w", err)
		}
		return app.WriteMatch(cmd.OutOrStdout(), report, outputFormat(cmd))
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show corpus statistics and check that the stores agree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		in, err := app.Inspect(cfg)
		if err != nil {
			return fmt.Errorf("inspect failed: %w", err)
		}
		return app.WriteInspection(cmd.OutOrStdout(), in, outputFormat(cmd))
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (yaml, toml or json)")
	pf.StringP("licenses", "l", "Licenses", "Directory of license and rules .txt files")
	pf.StringP("artifacts", "a", ".", "Directory holding the built stores")
	pf.String("stopwords", "", "Stop word list replacing the built-in one")
	pf.BoolP("quiet", "q", false, "Suppress progress and summary messages")
	pf.BoolP("debug", "D", false, "Enable debug logging")
	_ = pf.MarkHidden("debug")

	for _, c := range []*cobra.Command{buildCmd, refitCmd} {
		c.Flags().IntP("rank", "k", 0, "Latent dimension (0 picks min(50, documents, terms))")
		c.Flags().IntP("workers", "w", 4, "Documents normalized concurrently")
	}

	matchCmd.Flags().IntP("top", "n", 5, "Number of ranked licenses to print")
	matchCmd.Flags().StringP("selector", "s", "", "CSS selector for HTML sources")
	matchCmd.Flags().BoolP("include-all", "i", false, "Use the whole HTML page without readability filtering")
	matchCmd.Flags().Bool("json", false, "Output in JSON format")
	inspectCmd.Flags().Bool("json", false, "Output in JSON format")

	rootCmd.AddCommand(buildCmd, refitCmd, matchCmd, inspectCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
