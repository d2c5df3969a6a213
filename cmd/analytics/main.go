// Command analytics runs one pipeline over a table and prints the result.
//
//	analytics campaign  [flags] <input>
//	analytics sentiment [flags] <input>
//	analytics rfm       [flags] <input>
//	analytics cluster   [flags] <input>
//
// <input> is a local CSV path, s3://bucket/key, an http(s) URL, or
// postgres:<query> / snowflake:<query> when those backends are configured.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-gota/gota/dataframe"
	"github.com/ignite/marketing-analytics/internal/app"
	"github.com/ignite/marketing-analytics/internal/config"
	"github.com/ignite/marketing-analytics/internal/dataset"
	"github.com/ignite/marketing-analytics/internal/service/analytics"
)

const usage = `usage: analytics <campaign|sentiment|rfm|cluster> [flags] <input>

Run "analytics <pipeline> -h" for the flags of a pipeline.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "analytics: %v\n", err)
		os.Exit(1)
	}
}

// common are the flags every pipeline accepts.
type common struct {
	configPath string
	out        string
	email      bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", os.Getenv("CONFIG_PATH"), "YAML config file (defaults and env vars otherwise)")
	fs.StringVar(&c.out, "out", "", "write the result table as CSV to this path instead of stdout")
	fs.BoolVar(&c.email, "email", false, "email the report to the configured recipients")
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing pipeline\n%s", usage)
	}
	pipeline, args := args[0], args[1:]

	fs := flag.NewFlagSet(pipeline, flag.ContinueOnError)
	var c common
	c.register(fs)

	var (
		textCol, ratingCol           string
		threshold, testSize          float64
		customerCol, dateCol, amount string
		refDate                      string
		clusters, nInit              int
		seed                         int64
	)
	switch pipeline {
	case "campaign":
	case "sentiment":
		fs.StringVar(&textCol, "text-column", "", "review text column")
		fs.StringVar(&ratingCol, "rating-column", "", "rating column")
		fs.Float64Var(&threshold, "threshold", 0, "ratings at or above this are positive")
		fs.Float64Var(&testSize, "test-size", 0, "held-out fraction")
		fs.Int64Var(&seed, "seed", 0, "random seed for the split")
	case "rfm", "cluster":
		fs.StringVar(&customerCol, "customer-column", "", "customer id column")
		fs.StringVar(&dateCol, "date-column", "", "invoice date column")
		fs.StringVar(&amount, "amount-column", "", "amount column")
		fs.StringVar(&refDate, "reference-date", "", "YYYY-MM-DD; default is the day after the latest transaction")
		if pipeline == "cluster" {
			fs.IntVar(&clusters, "clusters", 0, "number of clusters")
			fs.IntVar(&nInit, "n-init", 0, "k-means restarts")
			fs.Int64Var(&seed, "seed", 0, "k-means seed")
		}
	default:
		return fmt.Errorf("unknown pipeline %q\n%s", pipeline, usage)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one input, got %d\n%s", fs.NArg(), usage)
	}
	// Only flags given on the command line override the config; 0 is a valid seed and threshold.
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	input := fs.Arg(0)

	cfg, err := config.LoadFromEnv(c.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a, err := app.New(ctx, cfg, stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	src, err := a.Source(ctx, input)
	if err != nil {
		return err
	}
	df, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading %s: %w", input, err)
	}
	in := analytics.Input{Source: input, Table: df, Email: c.email}
	svc := a.Service

	var (
		runID, report, messageID string
		table                    dataframe.DataFrame
	)
	switch pipeline {
	case "campaign":
		res, err := svc.CampaignMetrics(ctx, in)
		if err != nil {
			return err
		}
		runID, table, report, messageID = res.RunID, res.Table, res.Report, res.MessageID

	case "sentiment":
		opts := svc.SentimentOptions()
		setString(&opts.TextColumn, textCol)
		setString(&opts.RatingColumn, ratingCol)
		if set["threshold"] {
			opts.Threshold = threshold
		}
		if set["test-size"] {
			opts.TestSize = testSize
		}
		if set["seed"] {
			opts.Seed = seed
		}
		// The evaluation was already printed through the service output.
		res, err := svc.TrainSentiment(ctx, in, opts)
		if err != nil {
			return err
		}
		runID, report, messageID = res.RunID, res.Report, res.MessageID

	case "rfm", "cluster":
		rfmOpts := svc.RFMOptions()
		setString(&rfmOpts.CustomerColumn, customerCol)
		setString(&rfmOpts.DateColumn, dateCol)
		setString(&rfmOpts.AmountColumn, amount)
		rfmOpts.ReferenceDate = refDate

		if pipeline == "rfm" {
			res, err := svc.ComputeRFM(ctx, in, rfmOpts)
			if err != nil {
				return err
			}
			runID, table = res.RunID, res.Table
			break
		}

		opts := svc.ClusterOptions()
		if set["clusters"] {
			opts.Clusters = clusters
		}
		if set["n-init"] {
			opts.NInit = nInit
		}
		if set["seed"] {
			opts.Seed = seed
		}
		res, err := svc.ClusterRFM(ctx, in, rfmOpts, opts)
		if err != nil {
			return err
		}
		runID, table, report, messageID = res.RunID, res.Table, res.Report, res.MessageID
		if res.Cached {
			fmt.Fprintln(stdout, "(clusters served from cache)")
		}
	}

	if table.Ncol() > 0 {
		if err := writeTable(stdout, c.out, table); err != nil {
			return err
		}
	}
	if report != "" {
		fmt.Fprintf(stdout, "\n%s\n", report)
	}
	fmt.Fprintf(stdout, "run: %s\n", runID)
	if messageID != "" {
		fmt.Fprintf(stdout, "report emailed: %s\n", messageID)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func writeTable(stdout io.Writer, path string, df dataframe.DataFrame) error {
	if path == "" {
		return dataset.WriteCSV(stdout, df)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dataset.WriteCSV(f, df); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d rows to %s\n", df.Nrow(), path)
	return nil
}
