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

// Package filehost is the built-in cadhost provider. Documents are opaque
// msgpack containers on disk, which mirrors how a real authoring host treats
// its files: binary blobs carrying a reference table plus metadata.
package filehost

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/pkg/cadhost"
)

func init() {
	cadhost.RegisterHost("filehost", New())
}

// 💾 Host implements cadhost.Host over plain files
type Host struct{}

// 🏭 New creates a new file-backed host
func New() *Host {
	return &Host{}
}

// Name implements cadhost.Host
func (h *Host) Name() string { return "filehost" }

// Open implements cadhost.Host
func (h *Host) Open(ctx context.Context, path string) (cadhost.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Errorf("resolving path: %w", err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.Errorf("reading document: %w", err)
	}

	var c container
	if err := msgpack.Unmarshal(data, &c); err != nil {
		return nil, errors.Errorf("decoding document %s: %w", abs, err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", abs).Str("kind", cadhost.KindOf(abs).String()).Msg("opened document")
	return &document{path: abs, c: c}, nil
}

// Create implements cadhost.Host
func (h *Host) Create(ctx context.Context, path string, kind cadhost.Kind) (cadhost.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Errorf("resolving path: %w", err)
	}

	doc := &document{
		path:  abs,
		c:     container{Kind: kind.String()},
		dirty: true,
	}
	if err := doc.Save(ctx); err != nil {
		return nil, errors.Errorf("creating document: %w", err)
	}
	return doc, nil
}

// writeFileAtomic writes content through a temp file so a failed write never
// clobbers the document that was already on disk.
func writeFileAtomic(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Errorf("creating parent directories: %w", err)
	}

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
