package operation

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelworks/refit/pkg/cadhost/filehost"
	"github.com/modelworks/refit/pkg/report"
	"github.com/modelworks/refit/pkg/session"
	"github.com/modelworks/refit/pkg/testutils"
)

func newOperator(t *testing.T) Operator {
	t.Helper()
	host := filehost.New()
	sess, err := session.New(host, session.NewGate(time.Second))
	require.NoError(t, err)
	op, err := New(Options{Host: host, Session: sess})
	require.NoError(t, err)
	return op
}

func entryPaths(entries []report.Entry) []string {
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	return paths
}

func snapshot(t *testing.T, dir string) map[string]time.Time {
	t.Helper()
	files := map[string]time.Time{}
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		files[path] = info.ModTime()
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestAnalyzeMatchesExecutionAndMutatesNothing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	testutils.WriteTree(t, dir, map[string]testutils.Doc{
		"P1.ipt": {},
		"A.iam":  {References: []string{"P1.ipt"}},
	})

	op := newOperator(t)
	before := snapshot(t, dir)

	analysis, err := op.Analyze(ctx, AnalyzeRequest{
		PartPrefix:   "NEW-",
		AssemblyList: []string{filepath.Join(dir, "A.iam")},
	})
	require.NoError(t, err)

	require.Len(t, analysis.Moves, 2, "both members plan a move")
	assert.Empty(t, analysis.Failures)
	assert.Empty(t, analysis.Warnings)

	moves := map[string]string{}
	for _, m := range analysis.Moves {
		moves[m.From] = m.To
	}
	assert.Equal(t, filepath.Join(dir, "NEW-P1.ipt"), moves[filepath.Join(dir, "P1.ipt")])
	assert.Equal(t, filepath.Join(dir, "NEW-A.iam"), moves[filepath.Join(dir, "A.iam")])

	assert.Equal(t, before, snapshot(t, dir), "analysis must not touch the filesystem")
}

func TestRenameByTable(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	testutils.WriteTree(t, dir, map[string]testutils.Doc{
		"P1.ipt": {},
		"A.iam":  {References: []string{"P1.ipt"}},
	})

	op := newOperator(t)
	rep, err := op.Rename(ctx, RenameRequest{
		AssemblyDocuments: []string{filepath.Join(dir, "A.iam")},
		FileNames: map[string]string{
			"P1.ipt": "bracket.ipt",
			"A.iam":  "frame.iam",
		},
	})
	require.NoError(t, err)
	require.True(t, rep.Success())

	assert.ElementsMatch(t, entryPaths(rep.Renamed), []string{
		filepath.Join(dir, "bracket.ipt"),
		filepath.Join(dir, "frame.iam"),
	})
	assert.ElementsMatch(t, rep.FilesToDelete, []string{
		filepath.Join(dir, "P1.ipt"),
		filepath.Join(dir, "A.iam"),
	}, "old paths are reported for cleanup")
}

func TestRenameByTableReportsUnmappedMembers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	testutils.WriteTree(t, dir, map[string]testutils.Doc{
		"P1.ipt": {},
		"P2.ipt": {},
		"A.iam":  {References: []string{"P1.ipt", "P2.ipt"}},
	})

	op := newOperator(t)
	rep, err := op.Rename(ctx, RenameRequest{
		AssemblyDocuments: []string{filepath.Join(dir, "A.iam")},
		FileNames: map[string]string{
			"P1.ipt": "bracket.ipt",
			"A.iam":  "frame.iam",
		},
	})
	require.NoError(t, err)

	assert.False(t, rep.Success(), "a member the table leaves unnamed is a failure")
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, filepath.Join(dir, "P2.ipt"), rep.Failed[0].Path)
	assert.Equal(t, report.ReasonUnmapped, rep.Failed[0].Reason)

	// The mapped members still rename; the unmapped one keeps its name.
	assert.FileExists(t, filepath.Join(dir, "bracket.ipt"))
	assert.FileExists(t, filepath.Join(dir, "frame.iam"))
	assert.NotContains(t, rep.FilesToDelete, filepath.Join(dir, "P2.ipt"),
		"the unmapped member never moved, so there is nothing to clean")
}

func TestRenameWithPrefixFindsRoots(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	testutils.WriteTree(t, dir, map[string]testutils.Doc{
		"P1.ipt": {},
		"A.iam":  {References: []string{"P1.ipt"}},
	})

	op := newOperator(t)
	rep, err := op.RenameWithPrefix(ctx, PrefixRequest{ModelPath: dir, Prefix: "NEW-"})
	require.NoError(t, err)
	require.True(t, rep.Success())

	assert.FileExists(t, filepath.Join(dir, "NEW-A.iam"))
	assert.FileExists(t, filepath.Join(dir, "NEW-P1.ipt"))
}

func TestRenameWithPrefixNoAssemblies(t *testing.T) {
	op := newOperator(t)
	_, err := op.RenameWithPrefix(context.Background(), PrefixRequest{
		ModelPath: t.TempDir(),
		Prefix:    "NEW-",
	})
	require.Error(t, err, "a model directory without assemblies is an error")
	assert.Contains(t, err.Error(), "no assembly documents")
}

func TestRenameWithPrefixAndDrawings(t *testing.T) {
	ctx := context.Background()
	modelDir := t.TempDir()
	drawingsDir := t.TempDir()
	projectDir := t.TempDir()

	testutils.WriteTree(t, modelDir, map[string]testutils.Doc{
		"OLD-P1.ipt": {},
		"OLD-A.iam":  {References: []string{"OLD-P1.ipt"}},
	})
	testutils.WriteTree(t, drawingsDir, map[string]testutils.Doc{
		"OLD-D1.idw": {References: []string{filepath.Join(modelDir, "OLD-A.iam")}},
	})
	projectPath := filepath.Join(projectDir, "OLD-job.ipj")
	require.NoError(t, os.WriteFile(projectPath, []byte("OLD-A.iam\n"), 0644))

	op := newOperator(t)
	rep, err := op.RenameWithPrefixAndDrawings(ctx, FullRenameRequest{
		ModelPath:    modelDir,
		DrawingsPath: drawingsDir,
		ProjectPath:  projectPath,
		OldPrefix:    "OLD-",
		NewPrefix:    "NEW-",
	})
	require.NoError(t, err)
	require.True(t, rep.Success(), "full pipeline should succeed")

	// Models renamed and repaired.
	assert.FileExists(t, filepath.Join(modelDir, "NEW-A.iam"))
	assert.FileExists(t, filepath.Join(modelDir, "NEW-P1.ipt"))

	// Drawing renamed and repointed.
	newDrawing := filepath.Join(drawingsDir, "NEW-D1.idw")
	assert.FileExists(t, newDrawing)
	host := filehost.New()
	doc, err := host.Open(ctx, newDrawing)
	require.NoError(t, err)
	defer doc.Close(ctx)
	assert.Equal(t, []string{filepath.Join(modelDir, "NEW-A.iam")}, doc.References())

	// Project renamed and substituted.
	newProject := filepath.Join(projectDir, "NEW-job.ipj")
	content, err := os.ReadFile(newProject)
	require.NoError(t, err)
	assert.Equal(t, "NEW-A.iam\n", string(content))

	// One merged report, all old files scheduled.
	assert.Contains(t, rep.FilesToDelete, filepath.Join(modelDir, "OLD-A.iam"))
	assert.Contains(t, rep.FilesToDelete, filepath.Join(drawingsDir, "OLD-D1.idw"))
	assert.Contains(t, rep.FilesToDelete, projectPath)
}

func TestDesignAssistRename(t *testing.T) {
	ctx := context.Background()
	modelDir := t.TempDir()
	drawingsDir := t.TempDir()

	testutils.WriteTree(t, modelDir, map[string]testutils.Doc{
		"P1.ipt": {},
		"A.iam":  {References: []string{"P1.ipt"}},
	})
	testutils.WriteTree(t, drawingsDir, map[string]testutils.Doc{
		"D1.idw": {References: []string{filepath.Join(modelDir, "A.iam")}},
	})

	op := newOperator(t)
	rep, err := op.DesignAssistRename(ctx, LegacyRenameRequest{
		DrawingsPath: drawingsDir,
		PartPrefix:   "NEW-",
		AssemblyList: []string{filepath.Join(modelDir, "A.iam")},
	})
	require.NoError(t, err)
	require.True(t, rep.Success())

	assert.FileExists(t, filepath.Join(modelDir, "NEW-A.iam"))
	assert.FileExists(t, filepath.Join(drawingsDir, "NEW-D1.idw"), "drawings gain the prefix too")

	host := filehost.New()
	doc, err := host.Open(ctx, filepath.Join(drawingsDir, "NEW-D1.idw"))
	require.NoError(t, err)
	defer doc.Close(ctx)
	assert.Equal(t, []string{filepath.Join(modelDir, "NEW-A.iam")}, doc.References(),
		"the drawing points at the prefixed assembly")
}

func TestUpdateDrawingReferencesVerifiesOnDisk(t *testing.T) {
	ctx := context.Background()
	modelDir := t.TempDir()
	drawingsDir := t.TempDir()

	// Models already carry the new names.
	testutils.WriteTree(t, modelDir, map[string]testutils.Doc{
		"NEW-A.iam": {},
	})
	testutils.WriteTree(t, drawingsDir, map[string]testutils.Doc{
		"D1.idw": {References: []string{filepath.Join(modelDir, "OLD-A.iam")}},
	})

	op := newOperator(t)
	rep, err := op.UpdateDrawingReferences(ctx, DrawingUpdateRequest{
		DrawingsPath: drawingsDir,
		ModelPath:    modelDir,
		OldPrefix:    "OLD-",
		NewPrefix:    "NEW-",
	})
	require.NoError(t, err)
	require.True(t, rep.Success())
	assert.Contains(t, entryPaths(rep.UpdatedReferences), filepath.Join(drawingsDir, "D1.idw"))
}

func TestOperationsHoldTheGate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	testutils.WriteTree(t, dir, map[string]testutils.Doc{
		"P1.ipt": {},
		"A.iam":  {References: []string{"P1.ipt"}},
	})

	host := filehost.New()
	gate := session.NewGate(30 * time.Millisecond)
	sess, err := session.New(host, gate)
	require.NoError(t, err)
	op, err := New(Options{Host: host, Session: sess})
	require.NoError(t, err)

	release, err := gate.Acquire(ctx)
	require.NoError(t, err)
	defer release()

	_, err = op.RenameWithPrefix(ctx, PrefixRequest{ModelPath: dir, Prefix: "NEW-"})
	require.Error(t, err, "a held gate blocks mutating operations")
	assert.ErrorIs(t, err, session.ErrBusy)

	// The dry run opens documents through the host, so it contends too.
	_, err = op.Analyze(ctx, AnalyzeRequest{
		PartPrefix:   "NEW-",
		AssemblyList: []string{filepath.Join(dir, "A.iam")},
	})
	require.Error(t, err, "analysis holds the gate like every pipeline")
	assert.ErrorIs(t, err, session.ErrBusy)
}
