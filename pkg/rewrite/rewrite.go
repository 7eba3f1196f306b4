// Package rewrite edits the stored reference list inside a document so it
// points at renamed child paths. Matching is by resolved-path equality, not
// string equality, because stored references may be relative or absolute.
package rewrite

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/pkg/cadhost"
	"github.com/modelworks/refit/pkg/graph"
)

// Mapping is the slice of a rename plan the rewriter needs. *plan.Plan
// satisfies it; executors may wrap it to hide entries whose move failed.
type Mapping interface {
	// Changed reports whether the mapping moves the given source path
	Changed(path string) bool
	// TargetFor returns the mapped path for a source path
	TargetFor(path string) (string, bool)
}

// Rewriter rewrites references in open documents against a plan
type Rewriter struct{}

// NewRewriter creates a new Rewriter
func NewRewriter() *Rewriter {
	return &Rewriter{}
}

// Rewrite replaces every raw reference whose resolved target the plan moves
// with the target's new path, preserving the reference's relative or
// absolute form. References outside the plan are never touched. The document
// is left dirty; saving is the caller's job.
//
// References resolve against originDir, the directory the references were
// stored relative to. Renames never change a document's directory, so this
// is the document's own directory both before and after a rename.
func (r *Rewriter) Rewrite(ctx context.Context, doc cadhost.Document, p Mapping, originDir string) (int, error) {
	if doc == nil {
		return 0, errors.Errorf("document is required")
	}
	if p == nil {
		return 0, errors.Errorf("plan is required")
	}

	updated := 0
	for _, raw := range doc.References() {
		resolved, err := resolveAgainst(originDir, raw)
		if err != nil {
			continue
		}
		if !p.Changed(resolved) {
			continue
		}
		target, _ := p.TargetFor(resolved)

		newRef, err := rewriteForm(raw, originDir, target)
		if err != nil {
			return updated, errors.Errorf("deriving new reference for %s: %w", raw, err)
		}
		if doc.RewriteReference(raw, newRef) {
			updated++
		}
	}

	if updated > 0 {
		zerolog.Ctx(ctx).Debug().
			Str("document", doc.Path()).
			Int("updated", updated).
			Msg("references rewritten")
	}
	return updated, nil
}

func resolveAgainst(originDir, ref string) (string, error) {
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref), nil
	}
	return graph.Canonical(filepath.Join(originDir, ref))
}

// rewriteForm keeps an absolute reference absolute and a relative one relative
func rewriteForm(raw, originDir, target string) (string, error) {
	if filepath.IsAbs(raw) {
		return target, nil
	}
	rel, err := filepath.Rel(originDir, target)
	if err != nil {
		return "", errors.Errorf("relativizing %s against %s: %w", target, originDir, err)
	}
	return rel, nil
}
