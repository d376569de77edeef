package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/vaxdash/internal/domain/model"
	"github.com/okian/vaxdash/pkg/logger"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	baseURL   string
	timeout   time.Duration
	retries   int
	logLevel  string
	logFormat string
}

// controlFlags mirror the dashboard controls.
type controlFlags struct {
	mode      string
	detail    string
	criterion string
	direction string
	show      int
	lag       int
}

func (c *controlFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.mode, "mode", "", "weekly category mode (vaccine_type|age_group)")
	cmd.Flags().StringVar(&c.detail, "detail", "", "detail breakdown (vaccine_type|age_group)")
	cmd.Flags().StringVar(&c.criterion, "criterion", "", "ranking criterion (series_complete|covid_rate)")
	cmd.Flags().StringVar(&c.direction, "direction", "", "ranking direction (descending|ascending)")
	cmd.Flags().IntVar(&c.show, "show", 0, "number of ranked states to show (0 = server default)")
	cmd.Flags().IntVar(&c.lag, "lag", 0, "weeks to shift cases")
}

func (c *controlFlags) apply(cfg *Config) {
	cfg.Mode, cfg.Detail = c.mode, c.detail
	cfg.Criterion, cfg.Direction = c.criterion, c.direction
	cfg.Show, cfg.Lag = c.show, c.lag
}

// NewRootCommand builds the vaxdash-probe command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "vaxdash-probe",
		Short:         "Exercise a running vaxdash server",
		Long:          `Fetches dashboard views from a running vaxdash server and checks ranking order, show limits, weekly bucket keys and cumulative totals.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := logger.InitWithFormat(g.logFormat); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return logger.SetLevelString(g.logLevel)
		},
	}
	root.PersistentFlags().StringVar(&g.baseURL, "url", DefaultBaseURL, "base URL of the service")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", DefaultTimeout, "per-request timeout")
	root.PersistentFlags().IntVar(&g.retries, "retries", DefaultRetries, "retries on transport errors and 5xx")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", logger.FormatText, "log format (text|json)")

	root.AddCommand(newSweepCommand(g), newViewsCommand(g))
	return root
}

func (g *globalFlags) client() (*Client, error) {
	if g.timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidConfig, g.timeout)
	}
	return NewClient(g.baseURL, g.timeout, g.retries, nil), nil
}

func newSweepCommand(g *globalFlags) *cobra.Command {
	var (
		from, to    string
		step        int
		concurrency int
		output      string
		controls    controlFlags
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Fetch views for a range of dates and verify them",
		Example: `  vaxdash-probe sweep --from 2021-01-04 --to 2022-04-14
  vaxdash-probe sweep --from 2021-06-01 --to 2021-12-31 --step 1 --criterion covid_rate --direction asc -o report.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := &Config{
				BaseURL:     g.baseURL,
				StepDays:    step,
				Concurrency: concurrency,
				Timeout:     g.timeout,
				Retries:     g.retries,
				Output:      output,
			}
			var err error
			if cfg.From, err = model.ParseDate(from); err != nil {
				return fmt.Errorf("%w: --from: %w", ErrInvalidConfig, err)
			}
			if cfg.To, err = model.ParseDate(to); err != nil {
				return fmt.Errorf("%w: --to: %w", ErrInvalidConfig, err)
			}
			controls.apply(cfg)

			client, err := g.client()
			if err != nil {
				return err
			}
			report, err := Sweep(cmd.Context(), cfg, client)
			if report != nil {
				if cfg.Output != "" {
					if werr := WriteReport(cfg.Output, report); werr != nil {
						return errors.Join(err, werr)
					}
				} else if werr := printJSON(cmd, report); werr != nil {
					return errors.Join(err, werr)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&step, "step", DefaultStepDays, "days between sweep dates")
	cmd.Flags().IntVar(&concurrency, "concurrency", DefaultConcurrency, "concurrent requests")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the JSON report to this file instead of stdout")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	controls.register(cmd)
	return cmd
}

func newViewsCommand(g *globalFlags) *cobra.Command {
	var (
		date     string
		controls controlFlags
	)
	cmd := &cobra.Command{
		Use:   "views",
		Short: "Print one recomputation pass",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := &Config{}
			controls.apply(cfg)
			q := cfg.query(model.Date{})
			q.Del("date")
			if date != "" {
				d, err := model.ParseDate(date)
				if err != nil {
					return fmt.Errorf("%w: --date: %w", ErrInvalidConfig, err)
				}
				q.Set("date", d.String())
			}

			client, err := g.client()
			if err != nil {
				return err
			}
			v, err := client.Views(cmd.Context(), q)
			if err != nil {
				return err
			}
			if issues := VerifyViews(v); len(issues) > 0 {
				for _, is := range issues {
					logger.Get().Warn(cmd.Context(), "check failed",
						logger.String("check", is.Check),
						logger.String("message", is.Message))
				}
			}
			return printJSON(cmd, v)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD); server default when empty")
	controls.register(cmd)
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, cmd *cobra.Command) int {
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "vaxdash-probe:", err)
		if errors.Is(err, ErrViolations) {
			return 2
		}
		return 1
	}
	return 0
}
