// Copyright 2026 modelworks
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rename executes a rename plan bottom-up: children move before
// parents, so by the time a parent's references are rewritten every child
// already exists at its final path. There is no rollback across the batch;
// the contract is per-item atomicity plus explicit partial-state reporting.
package rename

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/pkg/cadhost"
	"github.com/modelworks/refit/pkg/graph"
	"github.com/modelworks/refit/pkg/plan"
	"github.com/modelworks/refit/pkg/report"
	"github.com/modelworks/refit/pkg/rewrite"
)

// 🏃 Executor runs rename plans through the host
type Executor struct {
	host     cadhost.Host
	rewriter *rewrite.Rewriter
}

// 🏭 NewExecutor creates an executor over the given host
func NewExecutor(host cadhost.Host) (*Executor, error) {
	if host == nil {
		return nil, errors.Errorf("host is required")
	}
	return &Executor{host: host, rewriter: rewrite.NewRewriter()}, nil
}

// Execute processes the tree in post-order. Per node: save the document
// under its new name (the old file stays behind and is scheduled for
// cleanup), rewrite its child references against the plan, save again.
// A node whose rename fails keeps its subtree's parents pointed at the old
// path, recorded as a partial failure rather than silently corrected. A node
// that renamed but whose reference rewrite failed appears in renamed but not
// in updatedReferences, so inconsistent trees are detectable.
func (e *Executor) Execute(ctx context.Context, tree *graph.Tree, p *plan.Plan) (*report.BatchReport, error) {
	if tree == nil {
		return nil, errors.Errorf("tree is required")
	}
	if p == nil {
		return nil, errors.Errorf("plan is required")
	}
	logger := zerolog.Ctx(ctx)
	r := report.New()

	// Planning failures surface on the execution report so every node
	// appears in exactly one list per phase.
	for _, f := range p.Failures {
		r.AddFailed(f.Path, f.Reason, f.Detail)
	}
	for _, w := range tree.Warnings {
		r.AddWarning(w.Path, report.ReasonCycle, w.Message)
	}

	renameFailed := map[string]bool{}

	for _, node := range tree.Order {
		if node.Kind == cadhost.KindDrawing || node.Unresolved {
			continue
		}
		if err := ctx.Err(); err != nil {
			logger.Warn().Msg("rename pass cancelled, returning partial report")
			return r.Finish(), nil
		}

		target, ok := p.TargetFor(node.Path)
		if !ok {
			continue
		}

		doc, err := e.host.Open(ctx, node.Path)
		if err != nil {
			// A node the plan never moves cannot fail a rename; an open
			// failure there is a processing failure.
			if p.Changed(node.Path) {
				r.AddFailedRename(node.Path, report.ClassifyError(err), err.Error())
				renameFailed[graph.Fold(node.Path)] = true
			} else {
				r.AddFailed(node.Path, report.ClassifyError(err), err.Error())
			}
			continue
		}

		moved := false
		if p.Changed(node.Path) {
			if err := doc.SaveAs(ctx, target); err != nil {
				r.AddFailedRename(node.Path, report.ClassifyError(err), err.Error())
				renameFailed[graph.Fold(node.Path)] = true
				_ = doc.Close(ctx)
				continue
			}
			moved = true
			r.AddRenamed(target)
			r.AddFileToDelete(node.Path)
		}

		r.AddProcessed(node.Path)

		// Children that failed to move must keep their old reference; the
		// parent is flagged instead of silently corrected.
		stale := 0
		for _, child := range node.Children {
			if renameFailed[graph.Fold(child.Path)] && p.Changed(child.Path) {
				stale++
			}
		}
		if stale > 0 {
			r.AddFailed(node.Path, report.ReasonStaleReferences,
				"references to children that failed to rename were left in place")
		}

		mapping := &withoutFailed{Plan: p, failed: renameFailed}
		updated, err := e.rewriter.Rewrite(ctx, doc, mapping, filepath.Dir(node.Path))
		if err == nil && doc.Dirty() {
			err = doc.Save(ctx)
		}
		if err != nil {
			r.AddFailed(node.Path, report.ReasonHostFailure, err.Error())
			_ = doc.Close(ctx)
			continue
		}
		if updated > 0 {
			r.AddUpdatedReferences(docReportPath(node.Path, target, moved))
		}
		_ = doc.Close(ctx)
	}

	logger.Info().
		Int("processed", len(r.Processed)).
		Int("renamed", len(r.Renamed)).
		Int("failed_renames", len(r.FailedRenames)).
		Msg("rename pass complete")
	return r.Finish(), nil
}

func docReportPath(oldPath, newPath string, moved bool) string {
	if moved {
		return newPath
	}
	return oldPath
}

// withoutFailed hides plan entries whose source failed to rename, so parents
// keep referencing the old (still existing) path.
type withoutFailed struct {
	*plan.Plan
	failed map[string]bool
}

func (m *withoutFailed) Changed(path string) bool {
	if m.failed[graph.Fold(path)] {
		return false
	}
	return m.Plan.Changed(path)
}

// Surviving returns a view of the plan that hides every entry whose rename
// failed during execution, per the report's failedRenames list. Later passes
// (drawings) must rewrite against this view, never the raw plan: a model
// that failed to move still lives at its old path, and repointing references
// at its never-created target would break them.
func Surviving(p *plan.Plan, rep *report.BatchReport) rewrite.Mapping {
	failed := map[string]bool{}
	for _, e := range rep.FailedRenames {
		failed[graph.Fold(e.Path)] = true
	}
	return &withoutFailed{Plan: p, failed: failed}
}
