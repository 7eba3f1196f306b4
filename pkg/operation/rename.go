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

package operation

import (
	"context"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/pkg/drawings"
	"github.com/modelworks/refit/pkg/graph"
	"github.com/modelworks/refit/pkg/plan"
	"github.com/modelworks/refit/pkg/rename"
	"github.com/modelworks/refit/pkg/report"
)

// rootAssemblies finds the top-level assembly documents under a model
// directory; the traversal reaches everything else through references.
func rootAssemblies(modelPath string) ([]string, error) {
	roots, err := doublestar.FilepathGlob(
		filepath.Join(modelPath, "*.iam"),
		doublestar.WithFilesOnly(),
	)
	if err != nil {
		return nil, errors.Errorf("enumerating assemblies under %s: %w", modelPath, err)
	}
	if len(roots) == 0 {
		return nil, errors.Errorf("no assembly documents found under %s", modelPath)
	}
	return roots, nil
}

// buildPlan builds the tree for the given roots and plans it against a rule
func (o *operator) buildPlan(ctx context.Context, roots []string, rule plan.Rule, opts plan.Options) (*graph.Tree, *plan.Plan, error) {
	tree, err := o.builder.BuildAll(ctx, roots)
	if err != nil {
		return nil, nil, err
	}
	p, err := plan.Build(tree, rule, opts)
	if err != nil {
		return nil, nil, err
	}
	return tree, p, nil
}

// Analyze implements Operator.Analyze. It produces exactly the mapping an
// execution on the same inputs would use, with zero filesystem mutation.
// The dry run still opens documents through the host, so it holds the gate
// like every other pipeline.
func (o *operator) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	release, err := o.session.Gate().Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	tree, p, err := o.buildPlan(ctx, req.AssemblyList,
		plan.PrefixRule{Prefix: req.PartPrefix}, plan.Options{})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Int("nodes", len(tree.Nodes)).
		Int("moves", len(p.Moves())).
		Int("failures", len(p.Failures)).
		Msg("analysis complete")
	return &Analysis{
		Moves:    p.Moves(),
		Failures: p.Failures,
		Warnings: tree.Warnings,
	}, nil
}

// Rename implements Operator.Rename
func (o *operator) Rename(ctx context.Context, req RenameRequest) (*report.BatchReport, error) {
	release, err := o.session.Gate().Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	// An explicit table must cover every member; a node the table leaves
	// unnamed is a planning failure, not a silent keep.
	tree, p, err := o.buildPlan(ctx, req.AssemblyDocuments,
		plan.TableRule{Names: req.FileNames}, plan.Options{RequireComplete: true})
	if err != nil {
		return nil, err
	}
	return o.executor.Execute(ctx, tree, p)
}

// RenameWithPrefix implements Operator.RenameWithPrefix
func (o *operator) RenameWithPrefix(ctx context.Context, req PrefixRequest) (*report.BatchReport, error) {
	release, err := o.session.Gate().Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	roots, err := rootAssemblies(req.ModelPath)
	if err != nil {
		return nil, err
	}
	tree, p, err := o.buildPlan(ctx, roots, plan.PrefixRule{Prefix: req.Prefix}, plan.Options{})
	if err != nil {
		return nil, err
	}
	return o.executor.Execute(ctx, tree, p)
}

// RenameWithPrefixAndDrawings implements Operator.RenameWithPrefixAndDrawings
func (o *operator) RenameWithPrefixAndDrawings(ctx context.Context, req FullRenameRequest) (*report.BatchReport, error) {
	release, err := o.session.Gate().Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	roots, err := rootAssemblies(req.ModelPath)
	if err != nil {
		return nil, err
	}
	rule := plan.SubstituteRule{OldPrefix: req.OldPrefix, NewPrefix: req.NewPrefix}
	tree, p, err := o.buildPlan(ctx, roots, rule, plan.Options{})
	if err != nil {
		return nil, err
	}

	modelReport, err := o.executor.Execute(ctx, tree, p)
	if err != nil {
		return nil, err
	}

	// Drawings rewrite against what actually moved, not against the plan:
	// a model whose rename failed stays at its old path.
	drawingReport, err := o.drawings.Update(ctx, drawings.Options{
		DrawingsPath: req.DrawingsPath,
		ModelPath:    req.ModelPath,
		ProjectPath:  req.ProjectPath,
		OldPrefix:    req.OldPrefix,
		NewPrefix:    req.NewPrefix,
		Plan:         rename.Surviving(p, modelReport),
		RenameRule:   rule,
	})
	if err != nil {
		return nil, err
	}

	return report.Merge(modelReport, drawingReport), nil
}

// UpdateDrawingReferences implements Operator.UpdateDrawingReferences
func (o *operator) UpdateDrawingReferences(ctx context.Context, req DrawingUpdateRequest) (*report.BatchReport, error) {
	release, err := o.session.Gate().Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return o.drawings.Update(ctx, drawings.Options{
		DrawingsPath: req.DrawingsPath,
		ModelPath:    req.ModelPath,
		ProjectPath:  req.ProjectPath,
		OldPrefix:    req.OldPrefix,
		NewPrefix:    req.NewPrefix,
		RenameRule:   plan.SubstituteRule{OldPrefix: req.OldPrefix, NewPrefix: req.NewPrefix},
	})
}

// DesignAssistRename implements Operator.DesignAssistRename
func (o *operator) DesignAssistRename(ctx context.Context, req LegacyRenameRequest) (*report.BatchReport, error) {
	release, err := o.session.Gate().Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rule := plan.PrefixRule{Prefix: req.PartPrefix}
	tree, p, err := o.buildPlan(ctx, req.AssemblyList, rule, plan.Options{})
	if err != nil {
		return nil, err
	}

	modelReport, err := o.executor.Execute(ctx, tree, p)
	if err != nil {
		return nil, err
	}

	// All listed assemblies share one model directory by convention.
	modelPath := filepath.Dir(req.AssemblyList[0])
	drawingReport, err := o.drawings.Update(ctx, drawings.Options{
		DrawingsPath: req.DrawingsPath,
		ModelPath:    modelPath,
		Plan:         rename.Surviving(p, modelReport),
		RenameRule:   rule,
	})
	if err != nil {
		return nil, err
	}

	return report.Merge(modelReport, drawingReport), nil
}
