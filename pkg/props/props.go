// Copyright 2026 modelworks
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package props applies metadata changes file by file across a directory:
// iProperties, iPart/iAssembly member tables, and model states share one
// sequential walk. Each file's update is independent; one failure never
// stops the walk, and every walked file lands in the per-file report.
package props

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/pkg/cadhost"
	"github.com/modelworks/refit/pkg/report"
	"github.com/modelworks/refit/pkg/session"
)

// 🔧 Updater walks model files and applies metadata updates under the gate
type Updater struct {
	session *session.Session
}

// 🏭 NewUpdater creates an updater bound to the host session
func NewUpdater(s *session.Session) (*Updater, error) {
	if s == nil {
		return nil, errors.Errorf("session is required")
	}
	return &Updater{session: s}, nil
}

// UpdateIProperties sets the given key/value pairs on every part and
// assembly under dir. Keys are applied in sorted order so repeated runs
// touch files identically.
func (u *Updater) UpdateIProperties(ctx context.Context, dir string, props map[string]cadhost.Value) (*report.BatchReport, error) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return u.walk(ctx, dir, func(doc cadhost.Document) error {
		for _, k := range keys {
			doc.SetIProperty(k, props[k])
		}
		return nil
	})
}

// FactoryUpdate is one assembly's member-table changes. Cell keys take the
// form "Member.Column".
type FactoryUpdate struct {
	AssemblyPath string
	Cells        map[string]cadhost.Value
}

// UpdateFactoryTables applies member-table updates, one assembly at a time
func (u *Updater) UpdateFactoryTables(ctx context.Context, updates []FactoryUpdate) (*report.BatchReport, error) {
	r := report.New()
	for _, update := range updates {
		if err := ctx.Err(); err != nil {
			return r.Finish(), nil
		}
		err := u.session.WithDocument(ctx, update.AssemblyPath, func(doc cadhost.Document) error {
			keys := make([]string, 0, len(update.Cells))
			for k := range update.Cells {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				member, column, ok := strings.Cut(k, ".")
				if !ok {
					return errors.Errorf("cell key %q must be Member.Column", k)
				}
				if err := doc.SetFactoryCell(member, column, update.Cells[k]); err != nil {
					return err
				}
			}
			return nil
		})
		u.record(r, update.AssemblyPath, err)
	}
	return r.Finish(), nil
}

// ModelStateUpdate is one assembly's model-state/representation change
type ModelStateUpdate struct {
	AssemblyPath    string
	ModelState      string
	Representations []string
}

// UpdateModelStates activates model states and representations per assembly
func (u *Updater) UpdateModelStates(ctx context.Context, updates []ModelStateUpdate) (*report.BatchReport, error) {
	r := report.New()
	for _, update := range updates {
		if err := ctx.Err(); err != nil {
			return r.Finish(), nil
		}
		err := u.session.WithDocument(ctx, update.AssemblyPath, func(doc cadhost.Document) error {
			if update.ModelState != "" {
				doc.SetModelState(update.ModelState)
			}
			if len(update.Representations) > 0 {
				doc.SetRepresentations(update.Representations)
			}
			return nil
		})
		u.record(r, update.AssemblyPath, err)
	}
	return r.Finish(), nil
}

// ChangeParameters updates named parameters on a single part document
func (u *Updater) ChangeParameters(ctx context.Context, partPath string, params []cadhost.Parameter) error {
	return u.session.WithDocument(ctx, partPath, func(doc cadhost.Document) error {
		for _, p := range params {
			if err := doc.SetParameter(p.Name, p.Value); err != nil {
				return errors.Errorf("changing parameter %s: %w", p.Name, err)
			}
		}
		return nil
	})
}

// walk enumerates parts and assemblies under dir and applies fn to each,
// one document open at a time under the gate.
func (u *Updater) walk(ctx context.Context, dir string, fn func(cadhost.Document) error) (*report.BatchReport, error) {
	logger := zerolog.Ctx(ctx)
	r := report.New()

	paths, err := doublestar.FilepathGlob(
		filepath.Join(dir, "**", "*.{ipt,iam}"),
		doublestar.WithFilesOnly(),
	)
	if err != nil {
		return nil, errors.Errorf("enumerating models under %s: %w", dir, err)
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			logger.Warn().Msg("property walk cancelled, returning partial report")
			return r.Finish(), nil
		}
		u.record(r, path, u.session.WithDocument(ctx, path, fn))
	}

	logger.Info().
		Int("files", len(paths)).
		Int("failed", len(r.Failed)).
		Msg("property walk complete")
	return r.Finish(), nil
}

func (u *Updater) record(r *report.BatchReport, path string, err error) {
	if err != nil {
		reason := report.ClassifyError(err)
		if errors.Is(err, session.ErrBusy) {
			reason = report.ReasonSessionBusy
		}
		r.AddFailed(path, reason, err.Error())
		return
	}
	r.AddProcessed(path)
}
