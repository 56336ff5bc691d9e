package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/Yashshah0502/Expense-AI/internal/bootstrap"
	"github.com/Yashshah0502/Expense-AI/internal/config"
	"github.com/Yashshah0502/Expense-AI/internal/core/usecase"
	"github.com/Yashshah0502/Expense-AI/internal/observability/logging"
)

func main() {
	goldPath := flag.String("gold", "eval/gold.jsonl", "path to the JSONL gold set")
	k := flag.Int("k", 5, "evaluation cutoff (top K results per query)")
	candidateK := flag.Int("candidates", 0, "candidate pool size before reranking (0 = configured default)")
	flag.Parse()

	cfg := config.Load()
	slog.SetDefault(logging.NewTextLogger(os.Stderr, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *goldPath, *k, *candidateK); err != nil {
		slog.Error("evaluation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, goldPath string, k, candidateK int) error {
	f, err := os.Open(goldPath)
	if err != nil {
		return fmt.Errorf("open gold set: %w", err)
	}
	defer f.Close()

	examples, err := usecase.ParseGold(f)
	if err != nil {
		return err
	}
	slog.Info("gold set loaded", "examples", len(examples), "k", k)

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := usecase.NewEvaluator(app.SearchUC).Run(ctx, examples, k, candidateK)
	if err != nil {
		return err
	}

	printReport(os.Stdout, report)
	return nil
}

func printReport(w io.Writer, report *usecase.EvalReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUERY\tEXPECTED\tHITS\tRECALL\tRR")
	for _, m := range report.PerQuery {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.4f\t%.4f\n", truncateQuery(m.Query), m.Expected, m.Hits, m.Recall, m.ReciprocalRank)
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\nEvaluation results (N=%d, K=%d)\n", len(report.PerQuery), report.K)
	fmt.Fprintf(w, "Mean Recall@%d: %.4f\n", report.K, report.MeanRecall)
	fmt.Fprintf(w, "Mean Reciprocal Rank (MRR): %.4f\n", report.MeanMRR)
}

func truncateQuery(q string) string {
	const limit = 48
	runes := []rune(q)
	if len(runes) <= limit {
		return q
	}
	return string(runes[:limit-3]) + "..."
}
