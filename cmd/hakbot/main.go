// Package main provides the hakbot binary entry point.
// hakbot runs the scheduled X bots: the IT job fortune, the observance
// bot "나날" and the weather fairy.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	// Register LLM providers via init()
	_ "github.com/hk-410/hakyng-bots/llm/providers"

	"github.com/hk-410/hakyng-bots/config"
	"github.com/hk-410/hakyng-bots/saju"
	"github.com/hk-410/hakyng-bots/twitter"
	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "hakbot"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Scheduled X bots",
		Long: `hakbot runs the daily X bots:

- fortune: ranks five IT job personas by today's day pillar (일진)
- nanal: tweets about today's holidays and observances
- weatherfairy: posts today's forecast for Seoul, Busan and Pyongyang

Trigger them from a scheduler with "hakbot run <bot>" or through the HTTP
server started by "hakbot serve".`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		serveCmd(flags),
		runCmd(flags),
		shipshinCmd(),
		configCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /api/{bot}/daily, /healthz and /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if addr == "" {
				addr = app.cfg.Server.Addr
			}
			if app.cfg.Server.CronSecret == "" {
				app.logger.Warn("CRON_SECRET is not set, only public dry runs are accepted")
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			app.logger.Info("hakbot ready", "version", Version, "bots", app.BotNames())
			return app.Server().ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func runCmd(flags *globalFlags) *cobra.Command {
	var (
		dryRun  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:       "run <fortune|nanal|weatherfairy>",
		Short:     "Run one bot once",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"fortune", "nanal", "weatherfairy"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			b, err := app.Bot(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			res, err := app.runner.Run(ctx, b, dryRun)
			if err != nil {
				if twitter.IsAPIError(err, http.StatusForbidden) {
					app.logger.Warn("X refused the tweet: duplicate text, or the app lacks write permission")
				}
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(map[string]any{
				"success": true,
				"dryRun":  res.DryRun,
				"runId":   res.RunID,
				"tweet":   res.Tweet,
				"thread":  res.Thread,
				"ids":     res.TweetIDs,
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log the tweets instead of posting them")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Abort the run after this long")
	return cmd
}

func shipshinCmd() *cobra.Command {
	var date, stem string

	cmd := &cobra.Command{
		Use:   "shipshin",
		Short: "Print today's day pillar and every persona's Shipshin",
		RunE: func(cmd *cobra.Command, args []string) error {
			if stem != "" {
				s, err := saju.ParseStem(stem)
				if err != nil {
					return err
				}
				return printStemReadings(cmd.OutOrStdout(), s)
			}

			day := time.Now().In(saju.KST)
			if date != "" {
				parsed, err := time.ParseInLocation("2006-01-02", date, saju.KST)
				if err != nil {
					return fmt.Errorf("invalid --date %q: %w", date, err)
				}
				day = parsed
			}
			return printShipshin(cmd.OutOrStdout(), day)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date in KST (YYYY-MM-DD), default today")
	cmd.Flags().StringVar(&stem, "stem", "", "Classify against a heavenly stem (갑..계) instead of a date")
	cmd.MarkFlagsMutuallyExclusive("date", "stem")
	return cmd
}

func printShipshin(w io.Writer, day time.Time) error {
	pillar := saju.DayPillarOf(day)
	sig := pillar.Stem.Signature()

	if _, err := fmt.Fprintf(w, "%s %s #%d/60 (%s, %s/%s)\n", saju.FormatKoreanDate(day), pillar,
		pillar.Index()+1, pillar.Stem.Hanja(), sig.Element, sig.Polarity); err != nil {
		return err
	}
	return printReadings(w, pillar.Stem)
}

func printStemReadings(w io.Writer, stem saju.Stem) error {
	sig := stem.Signature()
	if _, err := fmt.Fprintf(w, "%s (%s, %s/%s)\n", stem, stem.Hanja(), sig.Element, sig.Polarity); err != nil {
		return err
	}
	return printReadings(w, stem)
}

func printReadings(w io.Writer, stem saju.Stem) error {
	for _, r := range saju.ReadAll(saju.Personas, stem) {
		if _, err := fmt.Fprintf(w, "%-22s %s  %s\n", r.Persona.Name, r.Shipshin, r.Shipshin.BaseTier()); err != nil {
			return err
		}
	}
	return nil
}

func configCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default user config if none exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.NewLoader(newLogger(flags.logLevel, cmd.ErrOrStderr())).EnsureUserConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	return cmd
}

// setup configures logging, loads configuration and wires the app.
func setup(flags *globalFlags, logOut io.Writer) (*App, error) {
	logger := newLogger(flags.logLevel, logOut)
	slog.SetDefault(logger)

	var opts []config.LoaderOption
	if flags.configPath != "" {
		opts = append(opts, config.WithConfigFile(flags.configPath))
	}
	cfg, err := config.NewLoader(logger, opts...).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewApp(cfg, logger)
}

func newLogger(logLevel string, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
