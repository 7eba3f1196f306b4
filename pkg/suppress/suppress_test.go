package suppress

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelworks/refit/pkg/cadhost/filehost"
	"github.com/modelworks/refit/pkg/session"
	"github.com/modelworks/refit/pkg/testutils"
)

func newController(t *testing.T) (*Controller, *session.Session) {
	t.Helper()
	sess, err := session.New(filehost.New(), session.NewGate(time.Second))
	require.NoError(t, err)
	c, err := NewController(sess)
	require.NoError(t, err)
	return c, sess
}

func TestSuppressOnOpenAssembly(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := testutils.WriteDoc(t, filepath.Join(dir, "a.iam"), testutils.Doc{
		Components: []testutils.Component{{Name: "Bolt:1"}, {Name: "Nut:1"}},
	})

	c, sess := newController(t)
	require.NoError(t, sess.Open(ctx, path))

	require.NoError(t, c.Suppress(ctx, path, "Bolt:1", true), "suppress should succeed")

	// The change was saved to disk.
	host := filehost.New()
	doc, err := host.Open(ctx, path)
	require.NoError(t, err)
	defer doc.Close(ctx)
	comps := doc.Components()
	require.Len(t, comps, 2)
	assert.True(t, comps[0].Suppressed, "Bolt:1 should be suppressed")
	assert.False(t, comps[1].Suppressed, "Nut:1 stays untouched")
}

func TestSuppressRequiresOpenAssembly(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := testutils.WriteDoc(t, filepath.Join(dir, "a.iam"), testutils.Doc{
		Components: []testutils.Component{{Name: "Bolt:1"}},
	})

	c, _ := newController(t)
	err := c.Suppress(ctx, path, "Bolt:1", true)
	require.Error(t, err, "no open assembly is a precondition failure")
	assert.Contains(t, err.Error(), "no assembly is open")
}

func TestSuppressWrongAssembly(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := testutils.WriteDoc(t, filepath.Join(dir, "a.iam"), testutils.Doc{
		Components: []testutils.Component{{Name: "Bolt:1"}},
	})
	b := testutils.WriteDoc(t, filepath.Join(dir, "b.iam"), testutils.Doc{})

	c, sess := newController(t)
	require.NoError(t, sess.Open(ctx, b))

	err := c.Suppress(ctx, a, "Bolt:1", true)
	require.Error(t, err, "the open assembly must match the request")
	assert.Contains(t, err.Error(), "open assembly is")
}

func TestSuppressUnknownComponent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := testutils.WriteDoc(t, filepath.Join(dir, "a.iam"), testutils.Doc{
		Components: []testutils.Component{{Name: "Bolt:1"}},
	})

	c, sess := newController(t)
	require.NoError(t, sess.Open(ctx, path))

	err := c.Suppress(ctx, path, "Ghost:1", true)
	require.Error(t, err, "unknown component should error")
}

func TestSuppressBatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := testutils.WriteDoc(t, filepath.Join(dir, "a.iam"), testutils.Doc{
		Components: []testutils.Component{{Name: "Bolt:1"}, {Name: "Nut:1"}},
	})
	b := testutils.WriteDoc(t, filepath.Join(dir, "b.iam"), testutils.Doc{
		Components: []testutils.Component{{Name: "Plate:1"}},
	})

	c, _ := newController(t)
	r, err := c.SuppressBatch(ctx, []Action{
		{AssemblyPath: a, Components: []string{"Bolt:1", "Nut:1"}, Suppress: true},
		{AssemblyPath: b, Components: []string{"Plate:1", "Ghost:1"}, Suppress: true},
	})
	require.NoError(t, err)

	assert.Len(t, r.Processed, 3, "each applied component is itemized")
	require.Len(t, r.Failed, 1, "the unknown component fails independently")
	assert.Equal(t, b+"#Ghost:1", r.Failed[0].Path, "the subject names assembly and component")
	assert.False(t, r.Success())

	// The successes landed despite the failure.
	host := filehost.New()
	doc, err := host.Open(ctx, b)
	require.NoError(t, err)
	defer doc.Close(ctx)
	assert.True(t, doc.Components()[0].Suppressed, "Plate:1 was applied before the failure")
}
