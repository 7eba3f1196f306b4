// Package testutils provides helpers for building file-backed CAD document
// trees inside test temp dirs.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/modelworks/refit/pkg/cadhost"
)

// Doc is a writable document image. The msgpack layout matches what the
// filehost provider reads back.
type Doc struct {
	Kind            string            `msgpack:"kind"`
	References      []string          `msgpack:"references"`
	IProperties     map[string]any    `msgpack:"iproperties"`
	Parameters      []Parameter       `msgpack:"parameters"`
	Components      []Component       `msgpack:"components"`
	ModelState      string            `msgpack:"model_state"`
	Representations []string          `msgpack:"representations"`
	FactoryRows     []FactoryRow      `msgpack:"factory_rows"`
}

// Parameter is one named parameter in a Doc
type Parameter struct {
	Name  string `msgpack:"name"`
	Value any    `msgpack:"value"`
	Units string `msgpack:"units"`
}

// Component is one occurrence in a Doc
type Component struct {
	Name       string `msgpack:"name"`
	Suppressed bool   `msgpack:"suppressed"`
}

// FactoryRow is one member-table row in a Doc
type FactoryRow struct {
	Member string         `msgpack:"member"`
	Cells  map[string]any `msgpack:"cells"`
}

// WriteDoc writes a document image to path, creating parent directories
func WriteDoc(t *testing.T, path string, doc Doc) string {
	t.Helper()
	if doc.Kind == "" {
		doc.Kind = cadhost.KindOf(path).String()
	}
	data, err := msgpack.Marshal(&doc)
	require.NoError(t, err, "encoding test document")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755), "creating test directories")
	require.NoError(t, os.WriteFile(path, data, 0644), "writing test document")
	return path
}

// WriteTree writes a set of documents keyed by path relative to dir,
// returning the absolute path for each key.
func WriteTree(t *testing.T, dir string, docs map[string]Doc) map[string]string {
	t.Helper()
	paths := map[string]string{}
	for rel, doc := range docs {
		paths[rel] = WriteDoc(t, filepath.Join(dir, rel), doc)
	}
	return paths
}
