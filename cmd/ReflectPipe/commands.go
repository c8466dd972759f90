package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/BTreeMap/ReflectPipe/internal/analysis"
	"github.com/BTreeMap/ReflectPipe/internal/catalog"
	"github.com/BTreeMap/ReflectPipe/internal/cli"
	"github.com/BTreeMap/ReflectPipe/internal/flow"
	"github.com/BTreeMap/ReflectPipe/internal/genai"
	"github.com/BTreeMap/ReflectPipe/internal/models"
	"github.com/BTreeMap/ReflectPipe/internal/store"
	"github.com/BTreeMap/ReflectPipe/internal/util"
)

// Flags holds command line flag values
type Flags struct {
	stateDir     string
	storeDSN     string
	storeDriver  string
	scenarios    string
	fallbackType string
	allowRepeat  bool
	openaiKey    string
	openaiModel  string
	logLevel     string
}

// app is the wiring shared by every subcommand.
type app struct {
	catalog  *catalog.Catalog
	engine   *flow.Engine
	analyzer *analysis.Analyzer
	sessions *store.SessionStore
	now      func() time.Time
}

func newRootCmd(config Config) *cobra.Command {
	flags := &Flags{}
	rootCmd := &cobra.Command{
		Use:           "reflectpipe",
		Short:         "ReflectPipe - guided daily self-reflection check-ins",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initializeLogger(flags.logLevel)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.stateDir, "state-dir", config.StateDir, "state directory (overrides $REFLECT_STATE_DIR)")
	pf.StringVar(&flags.storeDSN, "store-dsn", config.StoreDSN, "session store DSN; defaults to <state-dir>/sessions.json (overrides $REFLECT_STORE_DSN)")
	pf.StringVar(&flags.storeDriver, "store-driver", config.StoreDriver, "force a store driver instead of detecting it from the DSN (overrides $REFLECT_STORE_DRIVER)")
	pf.StringVar(&flags.scenarios, "scenarios", config.Scenarios, "YAML scenario catalog; built-in scenarios when empty (overrides $REFLECT_SCENARIOS)")
	pf.StringVar(&flags.fallbackType, "fallback-type", config.FallbackType, "session type used for unknown types (overrides $REFLECT_FALLBACK_TYPE)")
	pf.BoolVar(&flags.allowRepeat, "allow-repeat", config.AllowRepeat, "allow a session type already completed today (overrides $REFLECT_ALLOW_REPEAT)")
	pf.StringVar(&flags.openaiKey, "openai-api-key", config.OpenAIKey, "OpenAI API key; enables written reflections (overrides $OPENAI_API_KEY)")
	pf.StringVar(&flags.openaiModel, "openai-model", config.OpenAIModel, "OpenAI chat model (overrides $OPENAI_MODEL)")
	pf.StringVar(&flags.logLevel, "log-level", config.LogLevel, "log level: debug, info, warn, error (overrides $REFLECT_LOG_LEVEL)")

	rootCmd.AddCommand(startCmd(flags))
	rootCmd.AddCommand(todayCmd(flags))
	rootCmd.AddCommand(historyCmd(flags))
	rootCmd.AddCommand(scenariosCmd(flags))
	rootCmd.AddCommand(validateCmd())
	return rootCmd
}

// loadCatalog returns the configured scenario catalog.
func loadCatalog(flags *Flags) (*catalog.Catalog, error) {
	var opts []catalog.Option
	if flags.fallbackType != "" {
		opts = append(opts, catalog.WithFallback(models.SessionType(flags.fallbackType)))
	}
	if flags.scenarios != "" {
		return catalog.LoadFile(flags.scenarios, opts...)
	}
	return catalog.Default(opts...)
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags *Flags) []store.Option {
	dsn := resolveStoreDSN(flags.storeDSN, flags.stateDir)
	storeOpts := []store.Option{store.WithDSN(dsn)}
	if flags.storeDriver != "" {
		storeOpts = append(storeOpts, store.WithDriver(flags.storeDriver))
	}
	slog.Debug("Store options built", "driver", flags.storeDriver, "detected", store.DetectDSNType(dsn))
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags *Flags) []genai.Option {
	var genaiOpts []genai.Option
	if flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(flags.openaiKey))
	}
	if flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(flags.openaiModel))
	}
	return genaiOpts
}

func newApp(ctx context.Context, flags *Flags) (*app, error) {
	c, err := loadCatalog(flags)
	if err != nil {
		return nil, err
	}
	repo, err := store.NewRepository(ctx, buildStoreOptions(flags)...)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	var analyzerOpts []analysis.Option
	if rules := c.Recommendations(); rules != nil {
		analyzerOpts = append(analyzerOpts, analysis.WithRules(rules))
	}
	return &app{
		catalog:  c,
		engine:   flow.NewEngine(c),
		analyzer: analysis.NewAnalyzer(c, analyzerOpts...),
		sessions: store.NewSessionStore(repo),
		now:      time.Now,
	}, nil
}

func (a *app) Close() {
	if err := a.sessions.Close(); err != nil {
		slog.Warn("Failed to close session store", "error", err)
	}
}

// suggestedType picks a session type for the time of day when the user did not
// name one.
func suggestedType(now time.Time) models.SessionType {
	switch h := now.Hour(); {
	case h < 11:
		return models.SessionTypeMorning
	case h < 17:
		return models.SessionTypeMidday
	default:
		return models.SessionTypeEvening
	}
}

func startCmd(flags *Flags) *cobra.Command {
	var plain, accessible bool
	cmd := &cobra.Command{
		Use:   "start [type]",
		Short: "Start a reflection session",
		Long: `Start a guided reflection session. Without a type, the session is picked
by time of day: morning before 11:00, midday before 17:00, evening after.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			t := suggestedType(a.now())
			if len(args) == 1 {
				t = models.SessionType(args[0])
			}

			var prompter cli.Prompter = cli.NewHuhPrompter(accessible)
			if plain {
				prompter = cli.NewLinePrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			}
			opts := []cli.RunnerOption{cli.WithOutput(cmd.OutOrStdout()), cli.WithAllowRepeat(flags.allowRepeat)}
			if flags.openaiKey != "" {
				client, err := genai.NewClient(buildGenAIOptions(flags)...)
				if err != nil {
					slog.Warn("Reflections disabled", "error", err)
				} else {
					opts = append(opts, cli.WithReflector(genai.NewReflectionWriter(client)))
				}
			}

			runner := cli.NewRunner(a.engine, a.analyzer, a.sessions, prompter, opts...)
			_, err = runner.Run(ctx, t)
			switch {
			case errors.Is(err, cli.ErrAborted):
				fmt.Fprintln(cmd.OutOrStdout(), "Session cancelled. Nothing was saved.")
				return nil
			case errors.Is(err, cli.ErrAlreadyDoneToday):
				fmt.Fprintf(cmd.OutOrStdout(), "You already completed a %s session today. Use --allow-repeat to do another.\n", t)
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "use plain line prompts instead of interactive forms")
	cmd.Flags().BoolVar(&accessible, "accessible", util.ParseBoolEnv("ACCESSIBLE", false), "use screen-reader friendly forms")
	return cmd
}

func todayCmd(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show which sessions are done and available today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			used := a.sessions.TypesUsedToday(ctx)
			writeToday(cmd.OutOrStdout(), a.catalog, used)
			return nil
		},
	}
}

func writeToday(w io.Writer, c *catalog.Catalog, used map[models.SessionType]bool) {
	for _, t := range c.Types() {
		status := "available"
		if used[t] {
			status = "done"
		}
		fmt.Fprintf(w, "%-10s %s\n", t, status)
	}
}

func historyCmd(flags *Flags) *cobra.Command {
	var limit int
	var todayOnly bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved sessions, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			sessions := a.sessions.ListAll(ctx)
			if todayOnly {
				sessions = a.sessions.ListToday(ctx)
			}
			if limit > 0 && len(sessions) > limit {
				sessions = sessions[len(sessions)-limit:]
			}
			writeHistory(cmd.OutOrStdout(), sessions)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the most recent n sessions")
	cmd.Flags().BoolVar(&todayOnly, "today", false, "show only today's sessions")
	return cmd
}

func writeHistory(w io.Writer, sessions []*models.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions yet.")
		return
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  %-10s %s  %d answers\n", s.StartedAt.Local().Format("2006-01-02 15:04"), s.SessionType, s.ID, len(s.Responses))
	}
}

func scenariosCmd(flags *Flags) *cobra.Command {
	var export bool
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List the scenario catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCatalog(flags)
			if err != nil {
				return err
			}
			var scenarios []models.Scenario
			for _, t := range c.Types() {
				sc, err := c.Scenario(t)
				if err != nil {
					return err
				}
				scenarios = append(scenarios, *sc)
			}

			if export {
				rules := c.Recommendations()
				if rules == nil {
					rules = analysis.DefaultRules()
				}
				return catalog.Encode(cmd.OutOrStdout(), scenarios, rules)
			}
			for _, sc := range scenarios {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-22s %d questions, %d follow-ups\n", sc.Type, sc.Title, len(sc.Questions), len(sc.FollowUps))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&export, "export", false, "print the catalog as a YAML document")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a YAML scenario catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, %d scenarios %v, %d recommendation rules\n", args[0], len(c.Types()), c.Types(), len(c.Recommendations()))
			return nil
		},
	}
}
