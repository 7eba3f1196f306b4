package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFileOperation(t *testing.T) {
	tests := []struct {
		name     string
		op       FileOperation
		contains []string
	}{
		{
			name: "renamed",
			op: FileOperation{
				Path: "NEW-A.iam", Phase: "rename", Status: "renamed", IsRenamed: true,
			},
			contains: []string{"✓", "NEW-A.iam", "rename", "renamed"},
		},
		{
			name: "updated",
			op: FileOperation{
				Path: "NEW-A.iam", Phase: "references", Status: "updated", IsUpdated: true,
			},
			contains: []string{"⟳", "references"},
		},
		{
			name: "failed",
			op: FileOperation{
				Path: "P2.ipt", Phase: "rename", Status: "not-found", IsFailed: true,
			},
			contains: []string{"✗", "not-found"},
		},
		{
			name: "no_change",
			op: FileOperation{
				Path: "P1.ipt", Phase: "references", Status: "unchanged",
			},
			contains: []string{"-", "unchanged"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(&buf, zerolog.InfoLevel)

			l.LogFileOperation(context.Background(), tt.op)

			out := buf.String()
			for _, want := range tt.contains {
				assert.Contains(t, out, want, "console line should carry %q", want)
			}
		})
	}
}

func TestTreeOperationLifecycle(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.InfoLevel)
	ctx := context.Background()

	l.StartTreeOperation(ctx, TreeOperation{Root: "/m/A.iam", Rule: "+NEW-"})
	l.LogFileOperation(ctx, FileOperation{Path: "NEW-P1.ipt", Phase: "rename", Status: "renamed", IsRenamed: true})
	l.EndTreeOperation(ctx)

	out := buf.String()
	assert.Contains(t, out, "/m/A.iam", "header names the root")
	assert.Contains(t, out, "+NEW-", "header names the rule")

	// Ending twice is harmless.
	l.EndTreeOperation(ctx)
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.InfoLevel)

	ctx := NewContext(context.Background(), l)
	got := FromContext(ctx)
	require.Same(t, l, got, "context carries the logger")
}

func TestMessageLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.InfoLevel)

	l.Header("starting")
	l.Infof("tree has %d members", 3)
	l.Warningf("%d cycles dropped", 1)
	l.Errorf("%s failed", "P2.ipt")
	l.Successf("done in %s", "2s")

	out := buf.String()
	assert.Contains(t, out, "starting")
	assert.Contains(t, out, "tree has 3 members")
	assert.Contains(t, out, "1 cycles dropped")
	assert.Contains(t, out, "P2.ipt failed")
	assert.Contains(t, out, "done in 2s")
}
