package report

import (
	"fmt"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
)

// 📢 Printer renders a batch report for a human sitting at a terminal
type Printer struct {
	log zerolog.Logger // for debug/error logging
}

// 🎯 NewPrinter creates a new report printer
func NewPrinter(log zerolog.Logger) *Printer {
	return &Printer{log: log}
}

// 📝 Print writes each report entry with an appropriate prefix, then the summary
func (p *Printer) Print(r *BatchReport) {
	for _, e := range r.Renamed {
		pterm.Success.WithPrefix(pterm.Prefix{Text: "renamed"}).Println(filepath.Base(e.Path))
	}
	for _, e := range r.UpdatedReferences {
		pterm.Info.WithPrefix(pterm.Prefix{Text: "updated"}).Println(filepath.Base(e.Path))
	}
	for _, e := range r.RenamedProjects {
		pterm.Success.WithPrefix(pterm.Prefix{Text: "project"}).Println(filepath.Base(e.Path))
	}
	for _, e := range r.Warnings {
		pterm.Warning.Println(fmt.Sprintf("%s: %s", e.Path, e.Detail))
	}
	for _, e := range append(append(append([]Entry{}, r.Failed...), r.FailedRenames...), r.FailedProjectRenames...) {
		pterm.Error.Println(fmt.Sprintf("%s (%s) %s", e.Path, e.Reason, e.Detail))
		p.log.Error().Str("path", e.Path).Str("reason", string(e.Reason)).Msg("batch item failed")
	}

	s := r.Summary()
	line := fmt.Sprintf("processed %d, renamed %d, references updated %d, failed %d",
		s.Processed, s.Renamed, s.UpdatedReferences, s.Failed+s.FailedRenames+s.FailedProjectRenames)
	if s.Success {
		pterm.Success.Println(line)
	} else {
		pterm.Error.Println(line)
	}
	if s.FilesToDelete > 0 {
		pterm.Info.Println(fmt.Sprintf("%d old files left behind, run 'refit clean' to remove them", s.FilesToDelete))
	}
}
