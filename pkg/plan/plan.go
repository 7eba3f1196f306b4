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

// Package plan derives a validated old-path to new-path mapping from a
// naming rule. Validation failures exclude the offending nodes and leave
// the rest of the plan usable, so the caller can choose to abort or proceed.
package plan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/pkg/cadhost"
	"github.com/modelworks/refit/pkg/graph"
	"github.com/modelworks/refit/pkg/report"
)

// Rule maps a document base name to its renamed base name. Returning the
// input unchanged means the document keeps its name.
type Rule interface {
	Rename(base string) string
}

// PrefixRule prepends a prefix to every base name. A name already carrying
// the prefix is left alone, which makes re-running the rule a no-op.
type PrefixRule struct {
	Prefix string
}

func (r PrefixRule) Rename(base string) string {
	if strings.HasPrefix(base, r.Prefix) {
		return base
	}
	return r.Prefix + base
}

// SubstituteRule replaces the first occurrence of OldPrefix in a base name
// with NewPrefix. Names not carrying OldPrefix keep their name.
type SubstituteRule struct {
	OldPrefix string
	NewPrefix string
}

func (r SubstituteRule) Rename(base string) string {
	if r.OldPrefix == "" || !strings.Contains(base, r.OldPrefix) {
		return base
	}
	return strings.Replace(base, r.OldPrefix, r.NewPrefix, 1)
}

// TableRule renames by explicit base-name lookup. Names absent from the
// table keep their name.
type TableRule struct {
	Names map[string]string
}

func (r TableRule) Rename(base string) string {
	if target, ok := r.Names[base]; ok && target != "" {
		return target
	}
	return base
}

// Failure is a node excluded from the plan during validation
type Failure struct {
	Path   string        `json:"path"`
	Reason report.Reason `json:"reason"`
	Detail string        `json:"detail,omitempty"`
}

// entry is one planned mapping
type entry struct {
	source  string
	target  string
	changed bool
}

// Plan is the validated mapping driving a rename pass. It is total over the
// traversed part/assembly node set: excluded and unchanged nodes carry
// identity entries, and the set of changed targets is injective.
type Plan struct {
	entries map[string]*entry // canonical source -> entry
	folded  map[string]string // folded source -> canonical source
	// Failures are the nodes excluded during validation
	Failures []Failure
}

func (p *Plan) lookup(path string) (*entry, bool) {
	if e, ok := p.entries[path]; ok {
		return e, true
	}
	// Stored references may differ in case from the on-disk name.
	if source, ok := p.folded[graph.Fold(path)]; ok {
		return p.entries[source], true
	}
	return nil, false
}

// TargetFor returns the planned path for a canonical source path
func (p *Plan) TargetFor(path string) (string, bool) {
	e, ok := p.lookup(path)
	if !ok {
		return "", false
	}
	return e.target, true
}

// Changed reports whether the plan actually moves the given source
func (p *Plan) Changed(path string) bool {
	e, ok := p.lookup(path)
	return ok && e.changed
}

// Len returns the number of planned entries, identity ones included
func (p *Plan) Len() int { return len(p.entries) }

// Move is one planned rename
type Move struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Moves returns the non-identity entries, sorted by source path
func (p *Plan) Moves() []Move {
	moves := []Move{}
	for _, e := range p.entries {
		if e.changed {
			moves = append(moves, Move{From: e.source, To: e.target})
		}
	}
	sort.Slice(moves, func(i, j int) bool { return moves[i].From < moves[j].From })
	return moves
}

// Options tunes plan validation
type Options struct {
	// RequireComplete fails nodes the rule leaves unnamed, for callers that
	// demand a total rename table.
	RequireComplete bool
	// Stat is the existence probe for target-collision checks; defaults to
	// os.Stat so tests can substitute.
	Stat func(string) (os.FileInfo, error)
}

// Build maps every part and assembly node of the tree through the rule and
// validates the result: no two sources may collapse onto one target under
// case-insensitive folding, and no target may land on a path already
// occupied by an unrelated file. Violating nodes are excluded with an
// identity entry and a Failure; the rest of the plan stays usable.
func Build(tree *graph.Tree, rule Rule, opts Options) (*Plan, error) {
	if tree == nil {
		return nil, errors.Errorf("tree is required")
	}
	if rule == nil {
		return nil, errors.Errorf("rule is required")
	}
	stat := opts.Stat
	if stat == nil {
		stat = os.Stat
	}

	p := &Plan{
		entries: map[string]*entry{},
		folded:  map[string]string{},
	}

	// First pass: propose a target per node.
	proposed := map[string]string{} // source -> proposed target
	byTarget := map[string][]string{}
	for _, node := range tree.Order {
		if node.Kind == cadhost.KindDrawing {
			continue
		}
		p.folded[graph.Fold(node.Path)] = node.Path
		if node.Unresolved {
			p.exclude(node.Path, report.ReasonUnresolved, node.Detail)
			continue
		}
		target := filepath.Join(filepath.Dir(node.Path), rule.Rename(node.Base()))
		proposed[node.Path] = target
		byTarget[graph.Fold(target)] = append(byTarget[graph.Fold(target)], node.Path)
	}

	// Second pass: validate and commit.
	for source, target := range proposed {
		identity := graph.Fold(target) == graph.Fold(source)

		if sources := byTarget[graph.Fold(target)]; len(sources) > 1 {
			// Every source collapsing onto this target fails; none renames.
			sort.Strings(sources)
			p.exclude(source, report.ReasonCollision,
				"targets collide: "+strings.Join(sources, ", "))
			continue
		}
		if !identity {
			if _, err := stat(target); err == nil {
				p.exclude(source, report.ReasonTargetExists, target)
				continue
			} else if !os.IsNotExist(err) {
				p.exclude(source, report.ClassifyError(err), err.Error())
				continue
			}
		}
		if identity && opts.RequireComplete {
			p.exclude(source, report.ReasonUnmapped, "no rename entry for "+filepath.Base(source))
			continue
		}

		p.entries[source] = &entry{source: source, target: target, changed: !identity}
	}

	return p, nil
}

// exclude records a planning failure and pins the node to an identity entry
func (p *Plan) exclude(source string, reason report.Reason, detail string) {
	p.entries[source] = &entry{source: source, target: source, changed: false}
	p.Failures = append(p.Failures, Failure{Path: source, Reason: reason, Detail: detail})
}
