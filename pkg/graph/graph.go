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

// Package graph resolves a document's full reference tree. Nodes are held in
// a registry keyed by canonical path so a document referenced from two
// parents is one entity, and cycle detection is a visited-set check.
package graph

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/pkg/cadhost"
)

// Node is one document in the reference tree
type Node struct {
	// Path is the canonical absolute path
	Path string
	// Kind is the document kind
	Kind cadhost.Kind
	// Children are the referenced documents in bill-of-materials order
	Children []*Node
	// RawReferences are the reference strings literally stored in the document
	RawReferences []string
	// Unresolved marks a child that could not be opened; it stays in the
	// tree as a leaf instead of aborting the traversal
	Unresolved bool
	// Detail carries the open failure for unresolved nodes
	Detail string
}

// Base returns the node's file base name
func (n *Node) Base() string { return filepath.Base(n.Path) }

// Warning records a dropped cycle edge or similar non-fatal traversal issue
type Warning struct {
	Path    string
	Edge    string
	Message string
}

// Tree is the result of a traversal: one or more roots over a shared registry
type Tree struct {
	Roots []*Node
	// Nodes indexes every node by canonical path
	Nodes map[string]*Node
	// Order lists nodes in post-order (children before parents), the order
	// a bottom-up rename pass must follow
	Order []*Node
	// Warnings are dropped cycle edges
	Warnings []Warning
}

// Canonical resolves a path to its absolute cleaned form
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Errorf("resolving path %s: %w", path, err)
	}
	return filepath.Clean(abs), nil
}

// Fold normalizes a canonical path for collision comparison. CAD trees are
// typically served to case-insensitive filesystems, so two paths differing
// only in case count as the same target.
func Fold(path string) string {
	return strings.ToLower(path)
}

// ResolveReference resolves a raw reference string against the directory of
// the document that stores it.
func ResolveReference(docPath, ref string) (string, error) {
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref), nil
	}
	return Canonical(filepath.Join(filepath.Dir(docPath), ref))
}

// 🌲 Builder walks reference edges through the host
type Builder struct {
	host cadhost.Host
}

// 🏭 NewBuilder creates a builder over the given host
func NewBuilder(host cadhost.Host) (*Builder, error) {
	if host == nil {
		return nil, errors.Errorf("host is required")
	}
	return &Builder{host: host}, nil
}

// Build traverses the tree reachable from a single root document
func (b *Builder) Build(ctx context.Context, rootPath string) (*Tree, error) {
	return b.BuildAll(ctx, []string{rootPath})
}

// BuildAll traverses the union of the trees reachable from each root,
// sharing one node registry so overlapping subtrees resolve to the same
// nodes. The root documents themselves must be openable.
func (b *Builder) BuildAll(ctx context.Context, rootPaths []string) (*Tree, error) {
	if len(rootPaths) == 0 {
		return nil, errors.Errorf("at least one root document is required")
	}

	t := &Tree{Nodes: map[string]*Node{}}
	w := &walker{builder: b, tree: t, onPath: map[string]bool{}}

	for _, rootPath := range rootPaths {
		canonical, err := Canonical(rootPath)
		if err != nil {
			return nil, err
		}
		root, err := w.visit(ctx, canonical)
		if err != nil {
			return nil, errors.Errorf("building tree for %s: %w", rootPath, err)
		}
		if root.Unresolved {
			return nil, errors.Errorf("opening root document %s: %s", canonical, root.Detail)
		}
		t.Roots = append(t.Roots, root)
	}

	zerolog.Ctx(ctx).Debug().
		Int("nodes", len(t.Nodes)).
		Int("roots", len(t.Roots)).
		Int("warnings", len(t.Warnings)).
		Msg("reference tree built")
	return t, nil
}

type walker struct {
	builder *Builder
	tree    *Tree
	onPath  map[string]bool // DFS stack membership, for cycle detection
}

// visit returns the registry node for a canonical path, expanding it on
// first sight. Children are visited depth-first in stored (BOM) order.
func (w *walker) visit(ctx context.Context, canonical string) (*Node, error) {
	key := canonical
	if node, ok := w.tree.Nodes[key]; ok {
		return node, nil
	}

	node := &Node{Path: canonical, Kind: cadhost.KindOf(canonical)}
	w.tree.Nodes[key] = node

	doc, err := w.builder.host.Open(ctx, canonical)
	if err != nil {
		node.Unresolved = true
		node.Detail = err.Error()
		w.tree.Order = append(w.tree.Order, node)
		return node, nil
	}
	node.RawReferences = doc.References()
	if err := doc.Close(ctx); err != nil {
		return nil, errors.Errorf("closing document %s: %w", canonical, err)
	}

	w.onPath[key] = true
	for _, raw := range node.RawReferences {
		childPath, err := ResolveReference(canonical, raw)
		if err != nil {
			w.tree.Warnings = append(w.tree.Warnings, Warning{
				Path: canonical, Edge: raw, Message: err.Error(),
			})
			continue
		}
		if w.onPath[childPath] {
			// Cycle: drop the edge, keep going.
			w.tree.Warnings = append(w.tree.Warnings, Warning{
				Path: canonical, Edge: raw,
				Message: "reference cycle detected, edge dropped",
			})
			continue
		}
		child, err := w.visit(ctx, childPath)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	delete(w.onPath, key)

	w.tree.Order = append(w.tree.Order, node)
	return node, nil
}
