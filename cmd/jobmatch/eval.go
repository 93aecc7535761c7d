package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/jobmatch/internal/domain/search/result"
	evaluationuc "github.com/kailas-cloud/jobmatch/internal/usecase/evaluation"
)

var (
	evalFile string
	evalK    int
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Score recommendations against labeled queries",
	Long: `Runs each query of a JSON Lines file (id, resume_text, domain_hint, relevant)
through the live pipeline and reports precision, recall and nDCG at k.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return evaluate(cmd.OutOrStdout())
	},
}

func init() {
	evalCmd.Flags().StringVarP(&evalFile, "file", "f", "", "JSON Lines query file, - for stdin")
	evalCmd.Flags().IntVarP(&evalK, "k", "k", result.MaxResults, "cutoff for the ranking metrics")
	_ = evalCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(evalCmd)
}

func evaluate(out io.Writer) error {
	cfg, logger, _, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	in, closeIn, err := openInput(evalFile)
	if err != nil {
		return err
	}
	defer closeIn()

	queries, err := evaluationuc.ReadQueries(in)
	if err != nil {
		return fmt.Errorf("read queries: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	p, err := d.buildPipeline()
	if err != nil {
		return err
	}
	if _, err := p.refresher.Refresh(ctx); err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	report, err := evaluationuc.New(p.recommend, logger).Run(ctx, queries, evalK)
	if err != nil {
		return err
	}
	return writeReport(out, report)
}
