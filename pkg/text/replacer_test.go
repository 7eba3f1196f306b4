package text

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplace(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		rules     []Rule
		want      string
		wantCount int
		modified  bool
	}{
		{
			name:      "single_rule",
			content:   "OLD-A.iam\nOLD-P1.ipt\n",
			rules:     []Rule{{From: "OLD-", To: "NEW-"}},
			want:      "NEW-A.iam\nNEW-P1.ipt\n",
			wantCount: 2,
			modified:  true,
		},
		{
			name:      "no_match",
			content:   "unrelated content",
			rules:     []Rule{{From: "OLD-", To: "NEW-"}},
			want:      "unrelated content",
			wantCount: 0,
			modified:  false,
		},
		{
			name:      "rules_apply_in_order",
			content:   "a b",
			rules:     []Rule{{From: "a", To: "b"}, {From: "b", To: "c"}},
			want:      "c c",
			wantCount: 3,
			modified:  true,
		},
		{
			name:      "empty_from_skipped",
			content:   "content",
			rules:     []Rule{{From: "", To: "x"}},
			want:      "content",
			wantCount: 0,
			modified:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReplacer()
			result, err := r.Replace(context.Background(), strings.NewReader(tt.content), tt.rules)
			require.NoError(t, err, "replace should not error")

			assert.Equal(t, tt.want, string(result.ModifiedContent), "modified content should match")
			assert.Equal(t, tt.content, string(result.OriginalContent), "original content should be preserved")
			assert.Equal(t, tt.wantCount, result.ReplacementCount, "replacement count should match")
			assert.Equal(t, tt.modified, result.WasModified, "modified flag should match")
		})
	}
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name        string
		rules       []Rule
		wantErr     bool
		errContains string
	}{
		{
			name:  "valid",
			rules: []Rule{{From: "OLD-", To: "NEW-"}},
		},
		{
			name:        "empty_from",
			rules:       []Rule{{From: "", To: "x"}},
			wantErr:     true,
			errContains: "from is required",
		},
		{
			name:        "identical",
			rules:       []Rule{{From: "x", To: "x"}},
			wantErr:     true,
			errContains: "identical",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewReplacer().ValidateRules(tt.rules)
			if tt.wantErr {
				require.Error(t, err, "validation should fail")
				assert.Contains(t, err.Error(), tt.errContains, "error should name the problem")
				return
			}
			require.NoError(t, err, "validation should pass")
		})
	}
}
