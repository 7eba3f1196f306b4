// Package cleanup deletes an explicit list of now-orphaned files, typically
// the old paths a rename pass left behind. It never expands globs and never
// deletes anything outside the given list.
package cleanup

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/modelworks/refit/pkg/report"
)

// Cleaner deletes files one by one, recording per-file outcomes
type Cleaner struct{}

// NewCleaner creates a new Cleaner
func NewCleaner() *Cleaner {
	return &Cleaner{}
}

// Delete removes each listed path. A missing or locked file is a per-item
// failure; the batch itself never raises.
func (c *Cleaner) Delete(ctx context.Context, paths []string) *report.BatchReport {
	logger := zerolog.Ctx(ctx)
	r := report.New()

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			logger.Warn().Msg("cleanup cancelled, returning partial report")
			return r.Finish()
		}
		if err := os.Remove(path); err != nil {
			r.AddFailed(path, report.ClassifyError(err), err.Error())
			continue
		}
		r.AddProcessed(path)
	}

	logger.Info().
		Int("deleted", len(r.Processed)).
		Int("failed", len(r.Failed)).
		Msg("cleanup complete")
	return r.Finish()
}
