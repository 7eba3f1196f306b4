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

// Package report defines the itemized outcome model shared by every batch
// operation: each file a pass touches lands in exactly one success list and,
// independently per phase, at most one failure list.
package report

import (
	"io/fs"
	"time"

	"github.com/google/uuid"
	"gitlab.com/tozd/go/errors"
)

// 🏷️ Reason is a machine-readable failure classification
type Reason string

const (
	ReasonValidation         Reason = "validation"
	ReasonNotFound           Reason = "not-found"
	ReasonAccessDenied       Reason = "access-denied"
	ReasonCollision          Reason = "collision"
	ReasonTargetExists       Reason = "target-exists"
	ReasonUnmapped           Reason = "unmapped"
	ReasonHostFailure        Reason = "host-failure"
	ReasonCycle              Reason = "cycle"
	ReasonUnresolved         Reason = "unresolved"
	ReasonStaleReferences    Reason = "stale-references"
	ReasonAmbiguousReference Reason = "ambiguous-reference"
	ReasonSessionBusy        Reason = "session-busy"
	ReasonIOError            Reason = "io-error"
)

// 🔍 ClassifyError maps a filesystem error to a reason code
func ClassifyError(err error) Reason {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, fs.ErrNotExist):
		return ReasonNotFound
	case errors.Is(err, fs.ErrPermission):
		return ReasonAccessDenied
	default:
		return ReasonIOError
	}
}

// 📄 Entry is one subject path plus, for failures, why it failed
type Entry struct {
	Path   string `json:"path"`
	Reason Reason `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// 📦 BatchReport is the categorized outcome of a multi-item operation.
// A path may legitimately appear in more than one list when the lists cover
// different phases (renamed but not updatedReferences marks a moved file
// whose internal references are stale).
type BatchReport struct {
	OperationID string    `json:"operationId"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`

	Processed            []Entry `json:"processed"`
	UpdatedReferences    []Entry `json:"updatedReferences"`
	Failed               []Entry `json:"failed"`
	Renamed              []Entry `json:"renamed"`
	FailedRenames        []Entry `json:"failedRenames"`
	RenamedProjects      []Entry `json:"renamedProjects"`
	FailedProjectRenames []Entry `json:"failedProjectRenames"`
	Warnings             []Entry `json:"warnings"`

	// FilesToDelete lists the old paths a save-as rename left behind,
	// for an explicit cleanup pass.
	FilesToDelete []string `json:"filesToDelete"`
}

// 🏭 New creates an empty report stamped with an operation ID
func New() *BatchReport {
	return &BatchReport{
		OperationID: uuid.NewString(),
		StartedAt:   time.Now().UTC(),
	}
}

// Finish stamps the completion time and returns the report for chaining.
func (r *BatchReport) Finish() *BatchReport {
	r.FinishedAt = time.Now().UTC()
	return r
}

func (r *BatchReport) AddProcessed(path string) {
	r.Processed = append(r.Processed, Entry{Path: path})
}

func (r *BatchReport) AddUpdatedReferences(path string) {
	r.UpdatedReferences = append(r.UpdatedReferences, Entry{Path: path})
}

func (r *BatchReport) AddFailed(path string, reason Reason, detail string) {
	r.Failed = append(r.Failed, Entry{Path: path, Reason: reason, Detail: detail})
}

func (r *BatchReport) AddRenamed(path string) {
	r.Renamed = append(r.Renamed, Entry{Path: path})
}

func (r *BatchReport) AddFailedRename(path string, reason Reason, detail string) {
	r.FailedRenames = append(r.FailedRenames, Entry{Path: path, Reason: reason, Detail: detail})
}

func (r *BatchReport) AddRenamedProject(path string) {
	r.RenamedProjects = append(r.RenamedProjects, Entry{Path: path})
}

func (r *BatchReport) AddFailedProjectRename(path string, reason Reason, detail string) {
	r.FailedProjectRenames = append(r.FailedProjectRenames, Entry{Path: path, Reason: reason, Detail: detail})
}

func (r *BatchReport) AddWarning(path string, reason Reason, detail string) {
	r.Warnings = append(r.Warnings, Entry{Path: path, Reason: reason, Detail: detail})
}

func (r *BatchReport) AddFileToDelete(path string) {
	r.FilesToDelete = append(r.FilesToDelete, path)
}

// 📊 Summary holds the per-category counts and the overall success flag
type Summary struct {
	Processed            int  `json:"processed"`
	UpdatedReferences    int  `json:"updatedReferences"`
	Failed               int  `json:"failed"`
	Renamed              int  `json:"renamed"`
	FailedRenames        int  `json:"failedRenames"`
	RenamedProjects      int  `json:"renamedProjects"`
	FailedProjectRenames int  `json:"failedProjectRenames"`
	Warnings             int  `json:"warnings"`
	FilesToDelete        int  `json:"filesToDelete"`
	Success              bool `json:"success"`
}

// Summary computes the category counts. Warnings do not affect success.
func (r *BatchReport) Summary() Summary {
	return Summary{
		Processed:            len(r.Processed),
		UpdatedReferences:    len(r.UpdatedReferences),
		Failed:               len(r.Failed),
		Renamed:              len(r.Renamed),
		FailedRenames:        len(r.FailedRenames),
		RenamedProjects:      len(r.RenamedProjects),
		FailedProjectRenames: len(r.FailedProjectRenames),
		Warnings:             len(r.Warnings),
		FilesToDelete:        len(r.FilesToDelete),
		Success:              r.Success(),
	}
}

// Success is true when no category recorded a failure.
func (r *BatchReport) Success() bool {
	return len(r.Failed)+len(r.FailedRenames)+len(r.FailedProjectRenames) == 0
}

// 🔗 Merge combines reports into a new one without mutating its inputs.
// The merged report keeps the earliest start and latest finish; the first
// report's operation ID wins so a multi-stage pass reports as one operation.
func Merge(reports ...*BatchReport) *BatchReport {
	merged := New()
	for i, r := range reports {
		if r == nil {
			continue
		}
		if i == 0 || (!r.StartedAt.IsZero() && r.StartedAt.Before(merged.StartedAt)) {
			merged.StartedAt = r.StartedAt
		}
		if r.FinishedAt.After(merged.FinishedAt) {
			merged.FinishedAt = r.FinishedAt
		}
		if merged.OperationID == "" || i == 0 {
			merged.OperationID = r.OperationID
		}
		merged.Processed = append(merged.Processed, r.Processed...)
		merged.UpdatedReferences = append(merged.UpdatedReferences, r.UpdatedReferences...)
		merged.Failed = append(merged.Failed, r.Failed...)
		merged.Renamed = append(merged.Renamed, r.Renamed...)
		merged.FailedRenames = append(merged.FailedRenames, r.FailedRenames...)
		merged.RenamedProjects = append(merged.RenamedProjects, r.RenamedProjects...)
		merged.FailedProjectRenames = append(merged.FailedProjectRenames, r.FailedProjectRenames...)
		merged.Warnings = append(merged.Warnings, r.Warnings...)
		merged.FilesToDelete = append(merged.FilesToDelete, r.FilesToDelete...)
	}
	return merged
}
