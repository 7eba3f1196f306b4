package drawings

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/pkg/graph"
	"github.com/modelworks/refit/pkg/report"
	"github.com/modelworks/refit/pkg/text"
)

// updateProject applies the prefix substitution to project-level references.
// Project files are plain text, so this goes through the text replacer
// rather than the host.
func (u *Updater) updateProject(ctx context.Context, r *report.BatchReport, opts Options) {
	canonical, err := graph.Canonical(opts.ProjectPath)
	if err != nil {
		r.AddFailedProjectRename(opts.ProjectPath, report.ReasonValidation, err.Error())
		return
	}

	content, err := os.ReadFile(canonical)
	if err != nil {
		r.AddFailedProjectRename(canonical, report.ClassifyError(err), err.Error())
		return
	}

	replacer := text.NewReplacer()
	result, err := replacer.Replace(ctx, bytes.NewReader(content), []text.Rule{
		{From: opts.OldPrefix, To: opts.NewPrefix},
	})
	if err != nil {
		r.AddFailedProjectRename(canonical, report.ReasonIOError, err.Error())
		return
	}

	target := canonical
	base := filepath.Base(canonical)
	if strings.Contains(base, opts.OldPrefix) {
		target = filepath.Join(filepath.Dir(canonical),
			strings.Replace(base, opts.OldPrefix, opts.NewPrefix, 1))
	}

	if !result.WasModified && target == canonical {
		return
	}

	if err := writeFileAtomic(target, result.ModifiedContent); err != nil {
		r.AddFailedProjectRename(canonical, report.ClassifyError(err), err.Error())
		return
	}
	if target != canonical {
		r.AddFileToDelete(canonical)
	}

	zerolog.Ctx(ctx).Info().
		Str("project", target).
		Int("replacements", result.ReplacementCount).
		Msg("project references updated")
	r.AddRenamedProject(target)
}

// writeFileAtomic writes content through a temp file so a failed write never
// truncates the project file that was already on disk.
func writeFileAtomic(path string, content []byte) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return errors.Errorf("writing temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath) // Clean up temp file
		return errors.Errorf("renaming temp file: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
