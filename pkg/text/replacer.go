// Package text rewrites plain-text documents, chiefly project files whose
// references are stored as readable paths rather than a binary table.
package text

import (
	"context"
	"io"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Rule is one literal substitution
type Rule struct {
	From string
	To   string
}

// Result carries the original and rewritten content plus change accounting
type Result struct {
	OriginalContent  []byte
	ModifiedContent  []byte
	ReplacementCount int
	WasModified      bool
}

// Replacer applies literal substitution rules to text content
type Replacer struct{}

// NewReplacer creates a new Replacer
func NewReplacer() *Replacer {
	return &Replacer{}
}

// Replace applies each rule in order over the full content
func (r *Replacer) Replace(ctx context.Context, content io.Reader, rules []Rule) (*Result, error) {
	originalContent, err := io.ReadAll(content)
	if err != nil {
		return nil, errors.Errorf("reading content: %w", err)
	}

	result := &Result{
		OriginalContent: originalContent,
		ModifiedContent: originalContent,
	}

	currentContent := string(originalContent)
	for _, rule := range rules {
		if rule.From == "" {
			continue
		}

		newContent := strings.ReplaceAll(currentContent, rule.From, rule.To)
		if newContent != currentContent {
			result.WasModified = true
			result.ReplacementCount += strings.Count(currentContent, rule.From)
		}
		currentContent = newContent
	}

	result.ModifiedContent = []byte(currentContent)
	return result, nil
}

// ValidateRules rejects rules that would match everything or nothing
func (r *Replacer) ValidateRules(rules []Rule) error {
	for i, rule := range rules {
		if rule.From == "" {
			return errors.Errorf("rule %d: from is required", i)
		}
		if rule.From == rule.To {
			return errors.Errorf("rule %d: from and to are identical", i)
		}
	}
	return nil
}
