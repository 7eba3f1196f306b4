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

package server

import (
	"net/http"
	"time"

	"github.com/modelworks/refit/pkg/cadhost"
	"github.com/modelworks/refit/pkg/operation"
	"github.com/modelworks/refit/pkg/props"
	"github.com/modelworks/refit/pkg/suppress"
)

func (s *Server) handleOpenAssembly(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssemblyPath string `json:"assemblyPath"`
	}
	if !decode(w, r, &req) {
		return
	}
	if !requireFile(w, "assemblyPath", req.AssemblyPath) {
		return
	}

	if err := s.session.Open(r.Context(), req.AssemblyPath); err != nil {
		writeServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "assembly opened"})
}

func (s *Server) handleCloseAssembly(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Close(r.Context()); err != nil {
		writeServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "assembly closed"})
}

func (s *Server) handleChangeParameters(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PartFilePath string             `json:"partFilePath"`
		Parameters   []cadhost.Parameter `json:"parameters"`
	}
	if !decode(w, r, &req) {
		return
	}
	if !requireFile(w, "partFilePath", req.PartFilePath) {
		return
	}
	if len(req.Parameters) == 0 {
		writeClientError(w, "parameters", "parameters is required")
		return
	}

	if err := s.props.ChangeParameters(r.Context(), req.PartFilePath, req.Parameters); err != nil {
		writeServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "parameters changed"})
}

func (s *Server) handleSuppressComponent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssemblyFilePath string `json:"assemblyFilePath"`
		ComponentName    string `json:"componentName"`
		Suppress         bool   `json:"suppress"`
	}
	if !decode(w, r, &req) {
		return
	}
	if !requireFile(w, "assemblyFilePath", req.AssemblyFilePath) {
		return
	}
	if !requireString(w, "componentName", req.ComponentName) {
		return
	}

	if err := s.suppress.Suppress(r.Context(), req.AssemblyFilePath, req.ComponentName, req.Suppress); err != nil {
		writeServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "suppression changed"})
}

func (s *Server) handleSuppressMultiple(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SuppressActions []struct {
			AssemblyFilePath string   `json:"assemblyFilePath"`
			Components       []string `json:"components"`
			Suppress         bool     `json:"suppress"`
		} `json:"suppressActions"`
	}
	if !decode(w, r, &req) {
		return
	}
	if len(req.SuppressActions) == 0 {
		writeClientError(w, "suppressActions", "suppressActions is required")
		return
	}

	actions := make([]suppress.Action, 0, len(req.SuppressActions))
	for _, a := range req.SuppressActions {
		if !requireFile(w, "assemblyFilePath", a.AssemblyFilePath) {
			return
		}
		actions = append(actions, suppress.Action{
			AssemblyPath: a.AssemblyFilePath,
			Components:   a.Components,
			Suppress:     a.Suppress,
		})
	}

	rep, err := s.suppress.SuppressBatch(r.Context(), actions)
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"message": "suppression batch applied",
		"report":  rep,
		"summary": rep.Summary(),
	})
}

func (s *Server) handleUpdateAllProperties(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DirectoryPath string                   `json:"directoryPath"`
		IProperties   map[string]cadhost.Value `json:"iProperties"`
	}
	if !decode(w, r, &req) {
		return
	}
	if !requireDir(w, "directoryPath", req.DirectoryPath) {
		return
	}
	if len(req.IProperties) == 0 {
		writeClientError(w, "iProperties", "iProperties is required")
		return
	}

	rep, err := s.props.UpdateIProperties(r.Context(), req.DirectoryPath, req.IProperties)
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"message": "iProperties updated",
		"success": rep.Success(),
		"report":  rep,
	})
}

func (s *Server) handleUpdateFactories(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssemblyUpdates []struct {
			AssemblyFilePath string                   `json:"assemblyFilePath"`
			IPartsIAssemblies map[string]cadhost.Value `json:"ipartsIassemblies"`
		} `json:"assemblyUpdates"`
	}
	if !decode(w, r, &req) {
		return
	}
	if len(req.AssemblyUpdates) == 0 {
		writeClientError(w, "assemblyUpdates", "assemblyUpdates is required")
		return
	}

	updates := make([]props.FactoryUpdate, 0, len(req.AssemblyUpdates))
	for _, u := range req.AssemblyUpdates {
		if !requireFile(w, "assemblyFilePath", u.AssemblyFilePath) {
			return
		}
		updates = append(updates, props.FactoryUpdate{
			AssemblyPath: u.AssemblyFilePath,
			Cells:        u.IPartsIAssemblies,
		})
	}

	rep, err := s.props.UpdateFactoryTables(r.Context(), updates)
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"message": "member tables updated",
		"success": rep.Success(),
		"report":  rep,
	})
}

func (s *Server) handleUpdateModelStates(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssemblyUpdates []struct {
			AssemblyFilePath string   `json:"assemblyFilePath"`
			ModelState       string   `json:"modelState"`
			Representations  []string `json:"representations"`
		} `json:"assemblyUpdates"`
	}
	if !decode(w, r, &req) {
		return
	}
	if len(req.AssemblyUpdates) == 0 {
		writeClientError(w, "assemblyUpdates", "assemblyUpdates is required")
		return
	}

	updates := make([]props.ModelStateUpdate, 0, len(req.AssemblyUpdates))
	for _, u := range req.AssemblyUpdates {
		if !requireFile(w, "assemblyFilePath", u.AssemblyFilePath) {
			return
		}
		updates = append(updates, props.ModelStateUpdate{
			AssemblyPath:    u.AssemblyFilePath,
			ModelState:      u.ModelState,
			Representations: u.Representations,
		})
	}

	rep, err := s.props.UpdateModelStates(r.Context(), updates)
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"message": "model states updated",
		"success": rep.Success(),
		"report":  rep,
	})
}

func (s *Server) handleDesignAssistRename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DrawingsPath string   `json:"drawingsPath"`
		PartPrefix   string   `json:"partPrefix"`
		AssemblyList []string `json:"assemblyList"`
	}
	if !decode(w, r, &req) {
		return
	}
	if !requireDir(w, "drawingsPath", req.DrawingsPath) {
		return
	}
	if !requirePrefix(w, "partPrefix", req.PartPrefix) {
		return
	}
	for _, a := range req.AssemblyList {
		if !requireFile(w, "assemblyList", a) {
			return
		}
	}
	if len(req.AssemblyList) == 0 {
		writeClientError(w, "assemblyList", "assemblyList is required")
		return
	}

	rep, err := s.operator.DesignAssistRename(r.Context(), operation.LegacyRenameRequest{
		DrawingsPath: req.DrawingsPath,
		PartPrefix:   req.PartPrefix,
		AssemblyList: req.AssemblyList,
	})
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"message":   "design assist rename complete",
		"success":   rep.Success(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"report":    rep,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DrawingsPath string   `json:"drawingsPath"`
		PartPrefix   string   `json:"partPrefix"`
		AssemblyList []string `json:"assemblyList"`
	}
	if !decode(w, r, &req) {
		return
	}
	if !requirePrefix(w, "partPrefix", req.PartPrefix) {
		return
	}
	if len(req.AssemblyList) == 0 {
		writeClientError(w, "assemblyList", "assemblyList is required")
		return
	}
	for _, a := range req.AssemblyList {
		if !requireFile(w, "assemblyList", a) {
			return
		}
	}

	analysis, err := s.operator.Analyze(r.Context(), operation.AnalyzeRequest{
		PartPrefix:   req.PartPrefix,
		AssemblyList: req.AssemblyList,
	})
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"message":  "analysis complete, nothing was modified",
		"analysis": analysis,
	})
}

func (s *Server) handleRecursiveRename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssemblyDocumentNames []string          `json:"assemblyDocumentNames"`
		FileNames             map[string]string `json:"fileNames"`
	}
	if !decode(w, r, &req) {
		return
	}
	if len(req.AssemblyDocumentNames) == 0 {
		writeClientError(w, "assemblyDocumentNames", "assemblyDocumentNames is required")
		return
	}
	for _, a := range req.AssemblyDocumentNames {
		if !requireFile(w, "assemblyDocumentNames", a) {
			return
		}
	}
	if len(req.FileNames) == 0 {
		writeClientError(w, "fileNames", "fileNames is required")
		return
	}

	rep, err := s.operator.Rename(r.Context(), operation.RenameRequest{
		AssemblyDocuments: req.AssemblyDocumentNames,
		FileNames:         req.FileNames,
	})
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"message":       "recursive rename complete",
		"filesToDelete": rep.FilesToDelete,
		"report":        rep,
	})
}

func (s *Server) handleRenameWithPrefix(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ModelPath string `json:"modelPath"`
		Prefix    string `json:"prefix"`
	}
	if !decode(w, r, &req) {
		return
	}
	if !requireDir(w, "modelPath", req.ModelPath) {
		return
	}
	if !requirePrefix(w, "prefix", req.Prefix) {
		return
	}

	rep, err := s.operator.RenameWithPrefix(r.Context(), operation.PrefixRequest{
		ModelPath: req.ModelPath,
		Prefix:    req.Prefix,
	})
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"message":       "recursive rename with prefix complete",
		"filesToDelete": rep.FilesToDelete,
		"report":        rep,
	})
}

func (s *Server) handleFullRename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ModelPath    string `json:"modelPath"`
		DrawingsPath string `json:"drawingsPath"`
		ProjectPath  string `json:"projectPath"`
		OldPrefix    string `json:"oldPrefix"`
		NewPrefix    string `json:"newPrefix"`
	}
	if !decode(w, r, &req) {
		return
	}
	if !requireDir(w, "modelPath", req.ModelPath) {
		return
	}
	if !requireDir(w, "drawingsPath", req.DrawingsPath) {
		return
	}
	if req.ProjectPath != "" && !requireFile(w, "projectPath", req.ProjectPath) {
		return
	}
	if !requirePrefix(w, "oldPrefix", req.OldPrefix) {
		return
	}
	if !requirePrefix(w, "newPrefix", req.NewPrefix) {
		return
	}

	rep, err := s.operator.RenameWithPrefixAndDrawings(r.Context(), operation.FullRenameRequest{
		ModelPath:    req.ModelPath,
		DrawingsPath: req.DrawingsPath,
		ProjectPath:  req.ProjectPath,
		OldPrefix:    req.OldPrefix,
		NewPrefix:    req.NewPrefix,
	})
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"message":       "rename with drawings complete",
		"report":        rep,
		"summary":       rep.Summary(),
		"filesToDelete": rep.FilesToDelete,
	})
}

func (s *Server) handleDeleteFiles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FilePaths []string `json:"filePaths"`
	}
	if !decode(w, r, &req) {
		return
	}
	if len(req.FilePaths) == 0 {
		writeClientError(w, "filePaths", "filePaths is required")
		return
	}
	for _, p := range req.FilePaths {
		if !requireAbsPath(w, "filePaths", p) {
			return
		}
	}

	rep := s.cleaner.Delete(r.Context(), req.FilePaths)
	writeJSON(w, http.StatusOK, envelope{
		"message": "delete pass complete",
		"report":  rep,
		"summary": rep.Summary(),
	})
}

func (s *Server) handleUpdateDrawingReferences(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DrawingsPath string `json:"drawingsPath"`
		ModelPath    string `json:"modelPath"`
		ProjectPath  string `json:"projectPath"`
		OldPrefix    string `json:"oldPrefix"`
		NewPrefix    string `json:"newPrefix"`
	}
	if !decode(w, r, &req) {
		return
	}
	if !requireDir(w, "drawingsPath", req.DrawingsPath) {
		return
	}
	if !requireDir(w, "modelPath", req.ModelPath) {
		return
	}
	if req.ProjectPath != "" && !requireFile(w, "projectPath", req.ProjectPath) {
		return
	}
	if !requirePrefix(w, "oldPrefix", req.OldPrefix) {
		return
	}
	if !requirePrefix(w, "newPrefix", req.NewPrefix) {
		return
	}

	rep, err := s.operator.UpdateDrawingReferences(r.Context(), operation.DrawingUpdateRequest{
		DrawingsPath: req.DrawingsPath,
		ModelPath:    req.ModelPath,
		ProjectPath:  req.ProjectPath,
		OldPrefix:    req.OldPrefix,
		NewPrefix:    req.NewPrefix,
	})
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"message": "drawing references updated",
		"report":  rep,
		"summary": rep.Summary(),
	})
}
