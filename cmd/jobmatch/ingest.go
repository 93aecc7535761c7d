package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	repocorpus "github.com/kailas-cloud/jobmatch/internal/repository/corpus"
	corpusuc "github.com/kailas-cloud/jobmatch/internal/usecase/corpus"
)

var ingestFile string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Embed a JSON Lines job corpus and publish it as a new version",
	Long: `Reads postings as JSON Lines (job_id, company_id, title, description, industry),
embeds them, stores them under a fresh version and publishes it. Running API
servers pick the version up on their next refresh. Use --file - for stdin.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return ingest(cmd.OutOrStdout())
	},
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "JSON Lines corpus file, - for stdin")
	_ = ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}

func ingest(out io.Writer) error {
	cfg, logger, _, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	in, closeIn, err := openInput(ingestFile)
	if err != nil {
		return err
	}
	defer closeIn()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	// Rows without a known industry can only be labeled by a remote classifier;
	// centroids do not exist before the first corpus.
	var classifier corpusuc.Classifier
	if c := d.httpClassifier(); c != nil {
		classifier = c
	}

	svc := corpusuc.New(d.corpus, d.docEmbedder, classifier, corpusuc.Options{
		Backend:           cfg.Index.Backend,
		BatchSize:         cfg.Ingest.BatchSize,
		RequestsPerSecond: cfg.Ingest.RequestsPerSecond,
		HNSW: repocorpus.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		},
		Model: cfg.Embedding.Model,
	}, logger)

	report, err := svc.Ingest(ctx, in)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", ingestFile, err)
	}
	logger.Info("Corpus published",
		zap.String("version", report.Version),
		zap.Int("ingested", report.Ingested),
		zap.Int("skipped", len(report.Skipped)),
	)
	return writeReport(out, report)
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}

func writeReport(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
