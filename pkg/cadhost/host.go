// Package cadhost abstracts the CAD authoring application behind a small
// capability interface so the rename engine never assumes a concrete
// automation technology.
package cadhost

import (
	"context"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
)

var registry = map[string]Host{}

// RegisterHost registers a host provider under a name
func RegisterHost(name string, host Host) {
	registry[name] = host
}

// GetHost returns the host provider registered under name
func GetHost(name string) (Host, error) {
	host, ok := registry[name]
	if !ok {
		options := []string{}
		for k := range registry {
			options = append(options, k)
		}
		return nil, errors.Errorf("host %s not found, options: %s", name, strings.Join(options, ", "))
	}
	return host, nil
}

// Host is the primary interface for opening and creating CAD documents
type Host interface {
	// Name returns the name of the host provider (e.g. "filehost")
	Name() string
	// Open opens an existing document for reading and writing
	Open(ctx context.Context, path string) (Document, error)
	// Create creates a new empty document of the given kind
	Create(ctx context.Context, path string, kind Kind) (Document, error)
}

// Document is a single open CAD document. Mutations mark the document dirty;
// nothing reaches disk until Save or SaveAs.
type Document interface {
	// Path returns the canonical path the document was opened from,
	// or last saved to
	Path() string
	// Kind returns the document kind
	Kind() Kind

	// References returns the raw reference strings exactly as stored
	References() []string
	// RewriteReference replaces one stored reference string with another,
	// reporting whether anything matched
	RewriteReference(old, new string) bool

	// IProperty returns the named metadata value
	IProperty(key string) (Value, bool)
	// SetIProperty sets the named metadata value
	SetIProperty(key string, v Value)

	// Parameters returns the document's model parameters
	Parameters() []Parameter
	// SetParameter updates a parameter by name
	SetParameter(name string, v Value) error

	// Components returns the positioned component occurrences, in
	// bill-of-materials order
	Components() []Component
	// SetSuppression toggles suppression on a named component
	SetSuppression(name string, suppressed bool) error

	// ModelState returns the active model state name
	ModelState() string
	// SetModelState activates a model state by name
	SetModelState(name string)
	// Representations returns the active representation names
	Representations() []string
	// SetRepresentations activates representations by name
	SetRepresentations(names []string)

	// FactoryRows returns the iPart/iAssembly member table
	FactoryRows() []FactoryRow
	// SetFactoryCell updates one member-table cell
	SetFactoryCell(member, column string, v Value) error

	// Dirty reports whether the document has unsaved changes
	Dirty() bool
	// Save writes the document back to its current path
	Save(ctx context.Context) error
	// SaveAs writes the document to a new path, leaving the file at the
	// old path behind, and repoints the document at the new path
	SaveAs(ctx context.Context, path string) error
	// Close releases the document without saving
	Close(ctx context.Context) error
}

// Kind classifies a document
type Kind int

const (
	KindUnknown Kind = iota
	KindPart
	KindAssembly
	KindDrawing
)

// String returns a string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindPart:
		return "part"
	case KindAssembly:
		return "assembly"
	case KindDrawing:
		return "drawing"
	default:
		return "unknown"
	}
}

// KindOf infers the document kind from a file extension
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ipt":
		return KindPart
	case ".iam":
		return KindAssembly
	case ".idw", ".dwg":
		return KindDrawing
	default:
		return KindUnknown
	}
}

// Parameter is one named model parameter
type Parameter struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
	Units string `json:"units,omitempty"`
}

// Component is one positioned occurrence inside an assembly
type Component struct {
	Name       string `json:"name"`
	Suppressed bool   `json:"suppressed"`
}

// FactoryRow is one member row of an iPart/iAssembly table
type FactoryRow struct {
	Member string           `json:"member"`
	Cells  map[string]Value `json:"cells"`
}
