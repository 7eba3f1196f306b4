// Package operation wires the rename pipeline together: graph builder,
// planner, executor, drawing updater, and report aggregation.
package operation

import (
	"context"

	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/pkg/cadhost"
	"github.com/modelworks/refit/pkg/drawings"
	"github.com/modelworks/refit/pkg/graph"
	"github.com/modelworks/refit/pkg/plan"
	"github.com/modelworks/refit/pkg/rename"
	"github.com/modelworks/refit/pkg/report"
	"github.com/modelworks/refit/pkg/session"
)

// 🎯 Operator defines the design-assist operations
type Operator interface {
	// Analyze builds the tree and plan a DesignAssistRename on the same
	// inputs would execute, without touching anything on disk
	Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error)
	// Rename renames tree members by explicit name table
	Rename(ctx context.Context, req RenameRequest) (*report.BatchReport, error)
	// RenameWithPrefix prepends a prefix to every tree member's name
	RenameWithPrefix(ctx context.Context, req PrefixRequest) (*report.BatchReport, error)
	// RenameWithPrefixAndDrawings substitutes a prefix across the tree and
	// repairs the drawings and project file pointing into it
	RenameWithPrefixAndDrawings(ctx context.Context, req FullRenameRequest) (*report.BatchReport, error)
	// UpdateDrawingReferences repairs drawings against models that were
	// already renamed on disk
	UpdateDrawingReferences(ctx context.Context, req DrawingUpdateRequest) (*report.BatchReport, error)
	// DesignAssistRename prepends a part prefix to the listed assembly
	// trees and their drawings
	DesignAssistRename(ctx context.Context, req LegacyRenameRequest) (*report.BatchReport, error)
}

// AnalyzeRequest mirrors LegacyRenameRequest without the mutation
type AnalyzeRequest struct {
	PartPrefix   string
	AssemblyList []string
}

// Analysis is the dry-run payload: the exact mapping an execution would use
type Analysis struct {
	Moves    []plan.Move     `json:"moves"`
	Failures []plan.Failure  `json:"failures"`
	Warnings []graph.Warning `json:"warnings"`
}

// RenameRequest renames by explicit old-name to new-name table
type RenameRequest struct {
	AssemblyDocuments []string
	FileNames         map[string]string
}

// PrefixRequest prepends Prefix to every member of the trees under ModelPath
type PrefixRequest struct {
	ModelPath string
	Prefix    string
}

// FullRenameRequest is the whole pipeline: models, drawings, project file
type FullRenameRequest struct {
	ModelPath    string
	DrawingsPath string
	ProjectPath  string
	OldPrefix    string
	NewPrefix    string
}

// DrawingUpdateRequest repairs drawings without renaming models
type DrawingUpdateRequest struct {
	DrawingsPath string
	ModelPath    string
	ProjectPath  string
	OldPrefix    string
	NewPrefix    string
}

// LegacyRenameRequest is the original design-assist entry point
type LegacyRenameRequest struct {
	DrawingsPath string
	PartPrefix   string
	AssemblyList []string
}

// 🔧 Options contains the operator's collaborators
type Options struct {
	// Host is the CAD host provider
	Host cadhost.Host
	// Session owns the host automation session; every pipeline run holds
	// its gate end to end
	Session *session.Session
}

// 🏭 New creates a new operator with the given options
func New(opts Options) (Operator, error) {
	if opts.Host == nil {
		return nil, errors.Errorf("host is required")
	}
	if opts.Session == nil {
		return nil, errors.Errorf("session is required")
	}
	builder, err := graph.NewBuilder(opts.Host)
	if err != nil {
		return nil, err
	}
	executor, err := rename.NewExecutor(opts.Host)
	if err != nil {
		return nil, err
	}
	updater, err := drawings.NewUpdater(opts.Host)
	if err != nil {
		return nil, err
	}
	return &operator{
		host:     opts.Host,
		session:  opts.Session,
		builder:  builder,
		executor: executor,
		drawings: updater,
	}, nil
}

// 🎮 operator implements the Operator interface
type operator struct {
	host     cadhost.Host
	session  *session.Session
	builder  *graph.Builder
	executor *rename.Executor
	drawings *drawings.Updater
}
