package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelworks/refit/pkg/cadhost/filehost"
	"github.com/modelworks/refit/pkg/operation"
	"github.com/modelworks/refit/pkg/session"
	"github.com/modelworks/refit/pkg/testutils"
)

func newTestServer(t *testing.T) (*httptest.Server, *session.Session) {
	t.Helper()
	host := filehost.New()
	sess, err := session.New(host, session.NewGate(100*time.Millisecond))
	require.NoError(t, err)
	op, err := operation.New(operation.Options{Host: host, Session: sess})
	require.NoError(t, err)
	srv, err := New(Options{
		Host:     host,
		Session:  sess,
		Operator: op,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, sess
}

func post(t *testing.T, ts *httptest.Server, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded), "every response is a JSON envelope")
	return resp, decoded
}

func TestValidationNamesTheField(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name  string
		path  string
		body  any
		field string
	}{
		{
			name:  "open_assembly_missing_path",
			path:  "/api/v1/open-assembly",
			body:  map[string]any{"assemblyPath": ""},
			field: "assemblyPath",
		},
		{
			name:  "open_assembly_relative_path",
			path:  "/api/v1/open-assembly",
			body:  map[string]any{"assemblyPath": "relative/a.iam"},
			field: "assemblyPath",
		},
		{
			name:  "rename_with_prefix_bad_prefix",
			path:  "/api/v1/design-assist-recursive-rename-with-prefix",
			body:  map[string]any{"modelPath": os.TempDir(), "prefix": "../evil"},
			field: "prefix",
		},
		{
			name:  "delete_files_empty",
			path:  "/api/v1/delete-files",
			body:  map[string]any{"filePaths": []string{}},
			field: "filePaths",
		},
		{
			name:  "unknown_body_field",
			path:  "/api/v1/change-parameters",
			body:  map[string]any{"surprise": true},
			field: "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, ts, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "validation failures are 400")
			assert.Equal(t, tt.field, body["field"], "the offending field is named")
			assert.Equal(t, "validation", body["reason"], "reason is validation")
			assert.NotEmpty(t, body["message"], "a message is always present")
		})
	}
}

func TestOpenAndCloseAssembly(t *testing.T) {
	ts, sess := newTestServer(t)
	dir := t.TempDir()
	path := testutils.WriteDoc(t, filepath.Join(dir, "a.iam"), testutils.Doc{})

	resp, body := post(t, ts, "/api/v1/open-assembly", map[string]any{"assemblyPath": path})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "assembly opened", body["message"])

	doc, ok := sess.Current()
	require.True(t, ok, "the session holds the opened assembly")
	assert.Equal(t, path, doc.Path())

	resp, body = post(t, ts, "/api/v1/close-assembly", map[string]any{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "assembly closed", body["message"])

	_, ok = sess.Current()
	assert.False(t, ok, "close clears the session")
}

func TestDeleteFilesEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	dir := t.TempDir()

	a := filepath.Join(dir, "a.ipt")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0644))
	missing := filepath.Join(dir, "missing.ipt")

	resp, body := post(t, ts, "/api/v1/delete-files", map[string]any{
		"filePaths": []string{a, missing},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode, "partial failures stay itemized inside a 200")

	summary, ok := body["summary"].(map[string]any)
	require.True(t, ok, "summary should be present")
	assert.Equal(t, float64(1), summary["processed"], "one file deleted")
	assert.Equal(t, float64(1), summary["failed"], "one file failed")
	assert.Equal(t, false, summary["success"], "overall failure is flagged")
	assert.NoFileExists(t, a)
}

func TestAnalyzeEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	dir := t.TempDir()

	assembly := filepath.Join(dir, "A.iam")
	testutils.WriteTree(t, dir, map[string]testutils.Doc{
		"P1.ipt": {},
		"A.iam":  {References: []string{"P1.ipt"}},
	})

	resp, body := post(t, ts, "/api/v1/design-assist-analyze", map[string]any{
		"drawingsPath": "",
		"partPrefix":   "NEW-",
		"assemblyList": []string{assembly},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["message"], "nothing was modified")

	analysis, ok := body["analysis"].(map[string]any)
	require.True(t, ok, "analysis payload should be present")
	moves, ok := analysis["moves"].([]any)
	require.True(t, ok)
	assert.Len(t, moves, 2, "both members plan a move")

	// Nothing moved on disk.
	assert.FileExists(t, assembly)
	assert.NoFileExists(t, filepath.Join(dir, "NEW-A.iam"))
}

func TestFullRenameEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	modelDir := t.TempDir()
	drawingsDir := t.TempDir()

	testutils.WriteTree(t, modelDir, map[string]testutils.Doc{
		"OLD-P1.ipt": {},
		"OLD-A.iam":  {References: []string{"OLD-P1.ipt"}},
	})
	testutils.WriteTree(t, drawingsDir, map[string]testutils.Doc{
		"OLD-D1.idw": {References: []string{filepath.Join(modelDir, "OLD-A.iam")}},
	})

	resp, body := post(t, ts, "/api/v1/design-assist-recursive-rename-with-prefix-and-drawings", map[string]any{
		"modelPath":    modelDir,
		"drawingsPath": drawingsDir,
		"oldPrefix":    "OLD-",
		"newPrefix":    "NEW-",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	files, ok := body["filesToDelete"].([]any)
	require.True(t, ok, "filesToDelete should be listed")
	assert.Len(t, files, 3, "two models and one drawing left old files behind")

	assert.FileExists(t, filepath.Join(modelDir, "NEW-A.iam"))
	assert.FileExists(t, filepath.Join(drawingsDir, "NEW-D1.idw"))
}

func TestBusySessionMapsToConflict(t *testing.T) {
	ts, sess := newTestServer(t)
	dir := t.TempDir()
	testutils.WriteTree(t, dir, map[string]testutils.Doc{
		"P1.ipt": {},
		"A.iam":  {References: []string{"P1.ipt"}},
	})

	release, err := sess.Gate().Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	resp, body := post(t, ts, "/api/v1/design-assist-recursive-rename-with-prefix", map[string]any{
		"modelPath": dir,
		"prefix":    "NEW",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "busy session is 409")
	assert.Equal(t, "session-busy", body["reason"])
}

func TestUpdateAllPropertiesEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	dir := t.TempDir()
	path := testutils.WriteDoc(t, filepath.Join(dir, "p1.ipt"), testutils.Doc{})

	resp, body := post(t, ts, "/api/v1/update-all-properties", map[string]any{
		"directoryPath": dir,
		"iProperties":   map[string]any{"Project": "X-100", "Revision": 2},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"], "legacy success flag is kept")

	report, ok := body["report"].(map[string]any)
	require.True(t, ok, "per-file report accompanies the flag")
	processed, ok := report["processed"].([]any)
	require.True(t, ok)
	assert.Len(t, processed, 1)

	// The property landed.
	host := filehost.New()
	doc, err := host.Open(context.Background(), path)
	require.NoError(t, err)
	defer doc.Close(context.Background())
	v, ok := doc.IProperty("Project")
	require.True(t, ok)
	assert.Equal(t, "X-100", v.AsString())
}

func TestSuppressComponentEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	dir := t.TempDir()
	path := testutils.WriteDoc(t, filepath.Join(dir, "a.iam"), testutils.Doc{
		Components: []testutils.Component{{Name: "Bolt:1"}},
	})

	// Requires an open assembly.
	resp, _ := post(t, ts, "/api/v1/open-assembly", map[string]any{"assemblyPath": path})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := post(t, ts, "/api/v1/suppress-component", map[string]any{
		"assemblyFilePath": path,
		"componentName":    "Bolt:1",
		"suppress":         true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "suppression changed", body["message"])
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/close-assembly")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, "endpoints are POST only")
}
