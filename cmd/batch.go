package main

import (
	"context"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matextract/thermo-cli/internal/checkpoint"
	"github.com/matextract/thermo-cli/internal/pipeline"
	anthropicpkg "github.com/matextract/thermo-cli/pkg/anthropic"
)

var batchLimit int

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process article folders under the corpus directory",
	Long:  "Walks the corpus directory sequentially, skipping folders already recorded in the checkpoint logs, and throttles between service-backed runs. Safe to interrupt and re-run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ckpt, err := checkpoint.Load(cfg.Batch.CompletedLog, cfg.Batch.FailedLog)
		if err != nil {
			return eris.Wrap(err, "load checkpoints")
		}

		anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
		p := pipeline.New(cfg, anthropicClient)

		limit := cfg.Batch.MaxNewUnits
		if batchLimit > 0 {
			limit = batchLimit
		}

		return processBatch(ctx, cfg.Batch.BaseDir, ckpt, limit, cfg.Batch.ThrottleMinSecs, cfg.Batch.ThrottleMaxSecs, p.Run)
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of new folders to complete (0 uses the configured limit)")
	rootCmd.AddCommand(batchCmd)
}

// runFunc is the callback signature for processing one document folder.
type runFunc func(ctx context.Context, dir string) (pipeline.State, error)

// processBatch walks baseDir in lexical order and processes every folder
// not already recorded in the checkpoint log. Individual failures are
// logged to the failed checkpoint and do not abort the batch; context
// cancellation does, without marking the interrupted unit.
func processBatch(ctx context.Context, baseDir string, ckpt *checkpoint.Log, limit, throttleMin, throttleMax int, run runFunc) error {
	units, err := listUnits(baseDir)
	if err != nil {
		return err
	}
	if len(units) == 0 {
		zap.L().Info("no document folders found", zap.String("base_dir", baseDir))
		return nil
	}

	batchID := uuid.NewString()
	log := zap.L().With(zap.String("batch_id", batchID))
	log.Info("processing batch",
		zap.Int("folders", len(units)),
		zap.Int("already_completed", ckpt.CompletedCount()),
		zap.Int("already_failed", ckpt.FailedCount()),
		zap.Int("limit", limit),
	)

	var attempted, succeeded, failed, skipped int
	for _, dir := range units {
		id := filepath.Base(dir)
		if ckpt.Seen(id) {
			continue
		}
		// The limit counts completed units only; failures don't consume it.
		if limit > 0 && succeeded >= limit {
			log.Info("new-unit limit reached", zap.Int("limit", limit))
			break
		}

		// Pace service-backed runs; never before the first one.
		if attempted > 0 {
			if err := throttle(ctx, throttleMin, throttleMax); err != nil {
				return eris.Wrap(err, "batch: interrupted")
			}
		}
		attempted++

		state, err := run(ctx, dir)
		if err != nil {
			if ctx.Err() != nil {
				return eris.Wrap(ctx.Err(), "batch: interrupted")
			}
			failed++
			log.Error("document failed", zap.String("unit", id), zap.Error(err))
			if mErr := ckpt.MarkFailed(id); mErr != nil {
				return mErr
			}
			continue
		}

		// A skipped document is still done: record it so re-runs don't
		// pay for the candidate call again.
		if state.Skip {
			skipped++
		}
		succeeded++
		if mErr := ckpt.MarkCompleted(id); mErr != nil {
			return mErr
		}
	}

	log.Info("batch complete",
		zap.Int("attempted", attempted),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.Int("skipped", skipped),
	)
	return nil
}

// listUnits returns the subdirectories of baseDir in lexical order.
func listUnits(baseDir string) ([]string, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, eris.Wrap(err, "batch: read corpus dir")
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(baseDir, e.Name()))
		}
	}
	return dirs, nil
}

// throttle sleeps a random duration in [minSecs, maxSecs] seconds, or
// returns early when the context is done. A non-positive maxSecs
// disables the pause.
func throttle(ctx context.Context, minSecs, maxSecs int) error {
	if maxSecs <= 0 || maxSecs < minSecs {
		return nil
	}
	d := time.Duration(minSecs+rand.IntN(maxSecs-minSecs+1)) * time.Second

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
