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

// Package session owns the single CAD-host automation session. The host can
// hold one assembly open at a time, so every operation that touches it is
// serialized through the Gate.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/semaphore"

	"github.com/modelworks/refit/pkg/cadhost"
)

// ErrBusy is returned when the gate could not be acquired within the wait window
var ErrBusy = errors.Base("session busy")

// 🚪 Gate serializes access to the host session. Acquisition blocks for a
// bounded wait to preserve request ordering, then fails with ErrBusy.
type Gate struct {
	sem  *semaphore.Weighted
	wait time.Duration
}

// 🏭 NewGate creates a gate with the given maximum wait
func NewGate(wait time.Duration) *Gate {
	if wait <= 0 {
		wait = 30 * time.Second
	}
	return &Gate{
		sem:  semaphore.NewWeighted(1),
		wait: wait,
	}
}

// Acquire takes exclusive ownership of the session. The returned release
// function must be called exactly once, on every path including errors.
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, g.wait)
	defer cancel()

	if err := g.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, errors.Errorf("acquiring session: %w", ctx.Err())
		}
		return nil, errors.WithStack(ErrBusy)
	}

	var once sync.Once
	return func() {
		once.Do(func() { g.sem.Release(1) })
	}, nil
}

// 🎮 Session tracks the one assembly the host has open
type Session struct {
	gate *Gate
	host cadhost.Host

	mu      sync.Mutex
	current cadhost.Document
}

// 🏭 New creates a session over the given host
func New(host cadhost.Host, gate *Gate) (*Session, error) {
	if host == nil {
		return nil, errors.Errorf("host is required")
	}
	if gate == nil {
		return nil, errors.Errorf("gate is required")
	}
	return &Session{gate: gate, host: host}, nil
}

// Gate exposes the gate for callers that do their own document handling
func (s *Session) Gate() *Gate { return s.gate }

// Host returns the underlying host
func (s *Session) Host() cadhost.Host { return s.host }

// Open opens an assembly as the session's current document, replacing any
// previously open one.
func (s *Session) Open(ctx context.Context, path string) error {
	release, err := s.gate.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	doc, err := s.host.Open(ctx, path)
	if err != nil {
		return errors.Errorf("opening assembly: %w", err)
	}
	if doc.Kind() != cadhost.KindAssembly {
		_ = doc.Close(ctx)
		return errors.Errorf("document %s is a %s, not an assembly", path, doc.Kind())
	}

	s.mu.Lock()
	previous := s.current
	s.current = doc
	s.mu.Unlock()

	if previous != nil {
		_ = previous.Close(ctx)
		zerolog.Ctx(ctx).Warn().Str("path", previous.Path()).Msg("replaced previously open assembly")
	}

	zerolog.Ctx(ctx).Info().Str("path", doc.Path()).Msg("assembly opened")
	return nil
}

// Close closes the current assembly, saving pending changes first
func (s *Session) Close(ctx context.Context) error {
	release, err := s.gate.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	doc := s.current
	s.current = nil
	s.mu.Unlock()

	if doc == nil {
		return nil
	}
	if doc.Dirty() {
		if err := doc.Save(ctx); err != nil {
			return errors.Errorf("saving assembly on close: %w", err)
		}
	}
	if err := doc.Close(ctx); err != nil {
		return errors.Errorf("closing assembly: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("path", doc.Path()).Msg("assembly closed")
	return nil
}

// Current returns the open assembly, if any. The caller must hold the gate
// while using the returned document.
func (s *Session) Current() (cadhost.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != nil
}

// WithDocument acquires the gate, opens a document, runs fn, saves the
// document when fn left it dirty, and closes it. This is the per-file unit
// of the batch walks: one document open at a time, always under the gate.
func (s *Session) WithDocument(ctx context.Context, path string, fn func(cadhost.Document) error) error {
	release, err := s.gate.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	doc, err := s.host.Open(ctx, path)
	if err != nil {
		return errors.Errorf("opening document: %w", err)
	}
	defer doc.Close(ctx)

	if err := fn(doc); err != nil {
		return err
	}
	if doc.Dirty() {
		if err := doc.Save(ctx); err != nil {
			return errors.Errorf("saving document: %w", err)
		}
	}
	return nil
}
