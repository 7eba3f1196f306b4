package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/pkg/cadhost"
	"github.com/modelworks/refit/pkg/cadhost/filehost"
	"github.com/modelworks/refit/pkg/testutils"
)

func TestGateSerializes(t *testing.T) {
	gate := NewGate(50 * time.Millisecond)

	release, err := gate.Acquire(context.Background())
	require.NoError(t, err, "first acquire should succeed")

	// A second acquire while held must fail with ErrBusy once the wait
	// window runs out.
	_, err = gate.Acquire(context.Background())
	require.Error(t, err, "second acquire should fail while held")
	assert.True(t, errors.Is(err, ErrBusy), "failure should be ErrBusy")

	release()

	release2, err := gate.Acquire(context.Background())
	require.NoError(t, err, "acquire should succeed after release")
	release2()
}

func TestGateReleaseIsIdempotent(t *testing.T) {
	gate := NewGate(50 * time.Millisecond)

	release, err := gate.Acquire(context.Background())
	require.NoError(t, err)
	release()
	release() // must not panic or over-release

	release2, err := gate.Acquire(context.Background())
	require.NoError(t, err, "gate should still work after double release")
	release2()
}

func TestGateWaitsForHolder(t *testing.T) {
	gate := NewGate(2 * time.Second)

	release, err := gate.Acquire(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		r, err := gate.Acquire(context.Background())
		if err == nil {
			r()
		}
		done <- err
	}()

	// Release within the waiter's window; the waiter should get through.
	time.Sleep(20 * time.Millisecond)
	release()

	select {
	case err := <-done:
		require.NoError(t, err, "waiter inside the window should acquire")
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the gate")
	}
}

func TestSessionOpenClose(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	testutils.WriteTree(t, dir, map[string]testutils.Doc{
		"a.iam": {},
		"b.iam": {},
		"p.ipt": {},
	})

	sess, err := New(filehost.New(), NewGate(time.Second))
	require.NoError(t, err)

	_, ok := sess.Current()
	assert.False(t, ok, "no assembly open initially")

	require.NoError(t, sess.Open(ctx, filepath.Join(dir, "a.iam")), "open should succeed")
	doc, ok := sess.Current()
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "a.iam"), doc.Path())

	// Opening another assembly replaces the current one.
	require.NoError(t, sess.Open(ctx, filepath.Join(dir, "b.iam")))
	doc, ok = sess.Current()
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "b.iam"), doc.Path())

	require.NoError(t, sess.Close(ctx), "close should succeed")
	_, ok = sess.Current()
	assert.False(t, ok, "close clears the current assembly")

	require.NoError(t, sess.Close(ctx), "closing with nothing open is a no-op")
}

func TestSessionOpenRejectsNonAssembly(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	testutils.WriteTree(t, dir, map[string]testutils.Doc{"p.ipt": {}})

	sess, err := New(filehost.New(), NewGate(time.Second))
	require.NoError(t, err)

	err = sess.Open(ctx, filepath.Join(dir, "p.ipt"))
	require.Error(t, err, "a part is not an assembly")
	assert.Contains(t, err.Error(), "not an assembly")
}

func TestWithDocumentSavesWhenDirty(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := testutils.WriteDoc(t, filepath.Join(dir, "p.ipt"), testutils.Doc{})

	sess, err := New(filehost.New(), NewGate(time.Second))
	require.NoError(t, err)

	err = sess.WithDocument(ctx, path, func(doc cadhost.Document) error {
		doc.SetIProperty("Material", cadhost.String("steel"))
		return nil
	})
	require.NoError(t, err)

	// The change reached disk.
	host := filehost.New()
	doc, err := host.Open(ctx, path)
	require.NoError(t, err)
	defer doc.Close(ctx)
	v, ok := doc.IProperty("Material")
	require.True(t, ok, "property should have been saved")
	assert.Equal(t, "steel", v.AsString())
}

func TestWithDocumentPropagatesErrBusy(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := testutils.WriteDoc(t, filepath.Join(dir, "p.ipt"), testutils.Doc{})

	gate := NewGate(30 * time.Millisecond)
	sess, err := New(filehost.New(), gate)
	require.NoError(t, err)

	release, err := gate.Acquire(ctx)
	require.NoError(t, err)
	defer release()

	err = sess.WithDocument(ctx, path, func(cadhost.Document) error { return nil })
	require.Error(t, err, "held gate should block the document unit")
	assert.True(t, errors.Is(err, ErrBusy), "failure should be ErrBusy")
}
