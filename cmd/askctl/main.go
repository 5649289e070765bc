package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/kailas-cloud/askdex/internal/config"
	"github.com/kailas-cloud/askdex/internal/version"
	askdex "github.com/kailas-cloud/askdex/pkg/sdk"
)

// client is the slice of the SDK the commands use.
type client interface {
	Ask(ctx context.Context, question string) (askdex.Answer, error)
	Partitions() []askdex.PartitionInfo
	Health(ctx context.Context) askdex.HealthStatus
	Usage(ctx context.Context, period askdex.UsagePeriod) askdex.UsageReport
	EnsureIndexes(ctx context.Context, recreate bool) ([]askdex.IndexStatus, error)
	Close()
}

// connect builds a client from the loaded configuration. Replaced in tests.
var connect = func(ctx context.Context, cfg *config.Config) (client, error) {
	return askdex.New(ctx, sdkOptions(cfg)...) //nolint:wrapcheck // SDK errors are already prefixed
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "askctl",
		Usage:   "Ask questions and manage partition indexes of an askdex deployment",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Environment whose config/<env>.yaml is loaded",
				EnvVars: []string{"ENV"},
				Value:   "local",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Explicit config file path (overrides --env)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print machine-readable JSON",
			},
		},
		Before: func(*cli.Context) error {
			// .env is optional; real environment variables win.
			_ = godotenv.Load()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Answer a question",
				ArgsUsage: "<question>",
				Action:    askCommand,
			},
			{
				Name:   "partitions",
				Usage:  "List configured partitions in search order",
				Action: partitionsCommand,
			},
			{
				Name:   "health",
				Usage:  "Check database and provider health",
				Action: healthCommand,
			},
			{
				Name:   "usage",
				Usage:  "Show embedding token usage of this process",
				Action: usageCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "period",
						Usage: "Accounting period: day or month",
						Value: "day",
					},
				},
			},
			{
				Name:  "indexes",
				Usage: "Manage partition vector indexes",
				Subcommands: []*cli.Command{
					{
						Name:   "ensure",
						Usage:  "Create missing partition indexes",
						Action: ensureIndexesCommand,
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "recreate",
								Usage: "Drop and rebuild existing indexes (documents are kept)",
							},
						},
					},
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.LoadFile(path) //nolint:wrapcheck // carries the path
	}
	return config.Load(c.String("env")) //nolint:wrapcheck // carries the path
}

// withClient loads configuration, connects and runs fn.
func withClient(c *cli.Context, fn func(ctx context.Context, cl client) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	cl, err := connect(ctx, &cfg)
	if err != nil {
		return err
	}
	defer cl.Close()
	return fn(ctx, cl)
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return errors.New("question is required")
	}
	return withClient(c, func(ctx context.Context, cl client) error {
		ans, err := cl.Ask(ctx, question)
		if err != nil {
			return fmt.Errorf("ask: %w", err)
		}
		if c.Bool("json") {
			return writeJSON(c.App.Writer, ans)
		}
		printAnswer(c.App.Writer, &ans)
		return nil
	})
}

func partitionsCommand(c *cli.Context) error {
	return withClient(c, func(_ context.Context, cl client) error {
		parts := cl.Partitions()
		if c.Bool("json") {
			return writeJSON(c.App.Writer, parts)
		}
		printPartitions(c.App.Writer, parts)
		return nil
	})
}

func healthCommand(c *cli.Context) error {
	return withClient(c, func(ctx context.Context, cl client) error {
		h := cl.Health(ctx)
		if c.Bool("json") {
			if err := writeJSON(c.App.Writer, h); err != nil {
				return err
			}
		} else {
			printHealth(c.App.Writer, h)
		}
		if h.Status != "ok" {
			return cli.Exit("", 1)
		}
		return nil
	})
}

func usageCommand(c *cli.Context) error {
	period := askdex.UsagePeriod(c.String("period"))
	if period != askdex.PeriodDay && period != askdex.PeriodMonth {
		return fmt.Errorf("period must be %q or %q, got %q", askdex.PeriodDay, askdex.PeriodMonth, period)
	}
	return withClient(c, func(ctx context.Context, cl client) error {
		r := cl.Usage(ctx, period)
		if c.Bool("json") {
			return writeJSON(c.App.Writer, r)
		}
		limit := "unlimited"
		if r.TokensLimit > 0 {
			limit = fmt.Sprintf("%d", r.TokensLimit)
		}
		fmt.Fprintf(c.App.Writer, "%s %s .. %s: %d tokens used, limit %s\n",
			r.Period, r.PeriodStart.Format("2006-01-02"), r.PeriodEnd.Format("2006-01-02"), r.TokensUsed, limit)
		return nil
	})
}

func ensureIndexesCommand(c *cli.Context) error {
	return withClient(c, func(ctx context.Context, cl client) error {
		statuses, err := cl.EnsureIndexes(ctx, c.Bool("recreate"))
		if c.Bool("json") {
			if jerr := writeJSON(c.App.Writer, statuses); jerr != nil {
				return jerr
			}
		} else {
			for _, st := range statuses {
				state := "exists"
				if st.Created {
					state = "created"
				}
				fmt.Fprintf(c.App.Writer, "%-10s %-28s %s\n", st.Partition, st.Index, state)
			}
		}
		if err != nil {
			return fmt.Errorf("indexes ensure: %w", err)
		}
		return nil
	})
}

// sdkOptions maps the server configuration onto SDK options so the CLI behaves
// like the deployment it points at.
func sdkOptions(cfg *config.Config) []askdex.Option {
	opts := []askdex.Option{
		askdex.WithOpenAI(cfg.Embedding.APIKey, cfg.Embedding.BaseURL),
		askdex.WithEmbeddingModel(cfg.Embedding.Model, cfg.Embedding.Dimensions),
		askdex.WithChatModel(cfg.Synthesis.Model),
		askdex.WithGeneration(cfg.Synthesis.Temperature, cfg.Synthesis.MaxTokens),
		askdex.WithHNSW(cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct),
		askdex.WithEFRuntime(cfg.Retrieval.EFRuntime),
		askdex.WithTokenBudget(cfg.Embedding.Budget.DailyTokenLimit, cfg.Embedding.Budget.MonthlyTokenLimit,
			cfg.Embedding.Budget.Action == "reject"),
	}
	if len(cfg.Database.Addrs) > 0 {
		opts = append(opts, askdex.WithRedis(cfg.Database.Addrs[0], cfg.Database.Password))
	}
	if cfg.Database.Username != "" {
		opts = append(opts, askdex.WithACLUser(cfg.Database.Username))
	}
	if cfg.Embedding.QueryInstruction != "" {
		opts = append(opts, askdex.WithQueryInstruction(cfg.Embedding.QueryInstruction))
	}
	for _, pc := range cfg.Partitions {
		opts = append(opts, askdex.WithPartition(askdex.PartitionConfig{
			Name:        pc.Name,
			Weight:      pc.Weight,
			TopK:        pc.TopK,
			Description: pc.Description,
		}))
	}
	return opts
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func printAnswer(w io.Writer, a *askdex.Answer) {
	fmt.Fprintln(w, a.Text)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "confidence: %s (%.3f)  elapsed: %s\n", a.Confidence.Level, a.Confidence.Score, a.Elapsed)
	if !a.Found {
		fmt.Fprintf(w, "reason: %s\n", a.Reason)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tID\tSCORE\tWEIGHTED")
	for _, m := range a.Matches {
		fmt.Fprintf(tw, "%s\t%s\t%.3f\t%.3f\n", m.Source, m.ID, m.Score, m.WeightedScore)
	}
	_ = tw.Flush()
	if len(a.ConceptIDs) > 0 {
		fmt.Fprintf(w, "concepts: %s\n", strings.Join(a.ConceptIDs, ", "))
	}
}

func printPartitions(w io.Writer, parts []askdex.PartitionInfo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tWEIGHT\tTOP_K\tDESCRIPTION")
	for _, p := range parts {
		fmt.Fprintf(tw, "%s\t%.2f\t%d\t%s\n", p.Name, p.Weight, p.TopK, p.Description)
	}
	_ = tw.Flush()
}

func printHealth(w io.Writer, h askdex.HealthStatus) {
	fmt.Fprintf(w, "status: %s\n", h.Status)
	for _, name := range []string{"database", "embedding", "synthesis"} {
		if v, ok := h.Checks[name]; ok {
			fmt.Fprintf(w, "  %-10s %s\n", name, v)
		}
	}
}
