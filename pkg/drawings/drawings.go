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

// Package drawings locates drawing documents that reference a renamed model
// tree and repairs them. Drawings unrelated to the tree are left untouched
// and never reported.
package drawings

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/pkg/cadhost"
	"github.com/modelworks/refit/pkg/graph"
	"github.com/modelworks/refit/pkg/plan"
	"github.com/modelworks/refit/pkg/report"
	"github.com/modelworks/refit/pkg/rewrite"
)

// Options describes one drawing-update pass
type Options struct {
	// DrawingsPath is the directory walked for .idw/.dwg files
	DrawingsPath string
	// ModelPath is the directory the renamed models live under; references
	// resolving outside it are ignored
	ModelPath string
	// ProjectPath optionally names a project file to apply the same prefix
	// substitution to
	ProjectPath string
	// OldPrefix / NewPrefix drive drawing self-renames and, when Plan is
	// nil, the reference substitution itself
	OldPrefix string
	NewPrefix string
	// Plan is the mapping the model pass actually applied, the ground truth
	// for reference rewriting. Callers that executed a rename must pass the
	// surviving view (failed moves hidden), not the raw plan. When nil the
	// updater verifies each substituted target on disk instead (for
	// repairing drawings after the models already moved).
	Plan rewrite.Mapping
	// RenameRule, when set, renames related drawing files whose base name
	// the rule changes
	RenameRule plan.Rule
}

// 🔧 Updater walks drawings and repairs their model references
type Updater struct {
	host cadhost.Host
}

// 🏭 NewUpdater creates an updater over the given host
func NewUpdater(host cadhost.Host) (*Updater, error) {
	if host == nil {
		return nil, errors.Errorf("host is required")
	}
	return &Updater{host: host}, nil
}

// Update runs one pass. Every drawing that references the model directory
// ends up processed (updated or no-change-needed) or failed with a reason;
// the walk never aborts on a single drawing's failure. Cancellation is
// checked between files and returns the partial report built so far.
func (u *Updater) Update(ctx context.Context, opts Options) (*report.BatchReport, error) {
	logger := zerolog.Ctx(ctx)
	r := report.New()

	modelDir, err := graph.Canonical(opts.ModelPath)
	if err != nil {
		return nil, err
	}

	paths, err := doublestar.FilepathGlob(
		filepath.Join(opts.DrawingsPath, "**", "*.{idw,dwg}"),
		doublestar.WithFilesOnly(),
	)
	if err != nil {
		return nil, errors.Errorf("enumerating drawings under %s: %w", opts.DrawingsPath, err)
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			logger.Warn().Msg("drawing pass cancelled, returning partial report")
			return r.Finish(), nil
		}
		u.updateOne(ctx, r, path, modelDir, opts)
	}

	if opts.ProjectPath != "" {
		u.updateProject(ctx, r, opts)
	}

	logger.Info().
		Int("drawings", len(paths)).
		Int("updated", len(r.UpdatedReferences)).
		Int("failed", len(r.Failed)).
		Msg("drawing pass complete")
	return r.Finish(), nil
}

func (u *Updater) updateOne(ctx context.Context, r *report.BatchReport, path, modelDir string, opts Options) {
	canonical, err := graph.Canonical(path)
	if err != nil {
		r.AddFailed(path, report.ReasonIOError, err.Error())
		return
	}

	doc, err := u.host.Open(ctx, canonical)
	if err != nil {
		// Only report drawings we cannot even inspect; they may be related.
		r.AddFailed(canonical, report.ClassifyError(err), err.Error())
		return
	}
	defer doc.Close(ctx)

	// A drawing is related only when the rename actually concerns one of
	// its references; merely pointing into the model directory is not
	// enough, and such drawings stay unreported.
	related := false
	updated := 0
	for _, raw := range doc.References() {
		resolved, err := graph.ResolveReference(canonical, raw)
		if err != nil || !underDir(resolved, modelDir) {
			continue
		}

		target, ok, reason := u.targetFor(resolved, opts)
		if reason != "" {
			r.AddFailed(canonical, reason, raw)
			return
		}
		if !ok {
			continue
		}
		related = true

		newRef := target
		if !filepath.IsAbs(raw) {
			rel, err := filepath.Rel(filepath.Dir(canonical), target)
			if err != nil {
				r.AddFailed(canonical, report.ReasonIOError, err.Error())
				return
			}
			newRef = rel
		}
		if doc.RewriteReference(raw, newRef) {
			updated++
		}
	}

	if !related {
		return
	}

	r.AddProcessed(canonical)
	if updated > 0 {
		if err := doc.Save(ctx); err != nil {
			r.AddFailed(canonical, report.ReasonHostFailure, err.Error())
			return
		}
		r.AddUpdatedReferences(canonical)
	}

	if opts.RenameRule != nil {
		base := filepath.Base(canonical)
		if newBase := opts.RenameRule.Rename(base); newBase != base {
			target := filepath.Join(filepath.Dir(canonical), newBase)
			if err := doc.SaveAs(ctx, target); err != nil {
				r.AddFailedRename(canonical, report.ClassifyError(err), err.Error())
				return
			}
			r.AddRenamed(target)
			r.AddFileToDelete(canonical)
		}
	}
}

// targetFor decides where a model reference should point. With a plan the
// plan is authoritative; without one the prefix substitution is verified
// against the filesystem so partial name matches never produce bogus
// references.
func (u *Updater) targetFor(resolved string, opts Options) (string, bool, report.Reason) {
	if opts.Plan != nil {
		if !opts.Plan.Changed(resolved) {
			return "", false, ""
		}
		target, _ := opts.Plan.TargetFor(resolved)
		return target, true, ""
	}

	base := filepath.Base(resolved)
	if opts.OldPrefix == "" || !strings.Contains(base, opts.OldPrefix) {
		return "", false, ""
	}
	target := filepath.Join(filepath.Dir(resolved),
		strings.Replace(base, opts.OldPrefix, opts.NewPrefix, 1))
	if !fileExists(target) {
		// The old name matched the prefix but no renamed model exists;
		// rewriting would point the drawing into the void.
		return "", false, report.ReasonAmbiguousReference
	}
	return target, true, ""
}

func underDir(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
