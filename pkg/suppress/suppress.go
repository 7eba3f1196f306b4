// Package suppress toggles suppression on named components of the currently
// open assembly. Operating without an open assembly is a precondition
// failure, not a batch item failure.
package suppress

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/pkg/cadhost"
	"github.com/modelworks/refit/pkg/graph"
	"github.com/modelworks/refit/pkg/report"
	"github.com/modelworks/refit/pkg/session"
)

// Action is one batch suppression request
type Action struct {
	AssemblyPath string
	Components   []string
	Suppress     bool
}

// Controller applies suppression changes through the session
type Controller struct {
	session *session.Session
}

// NewController creates a controller bound to the host session
func NewController(s *session.Session) (*Controller, error) {
	if s == nil {
		return nil, errors.Errorf("session is required")
	}
	return &Controller{session: s}, nil
}

// Suppress toggles one component on the open assembly. The assembly must
// already be open and must match assemblyPath.
func (c *Controller) Suppress(ctx context.Context, assemblyPath, component string, suppress bool) error {
	release, err := c.session.Gate().Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	doc, ok := c.session.Current()
	if !ok {
		return errors.Errorf("no assembly is open")
	}
	canonical, err := graph.Canonical(assemblyPath)
	if err != nil {
		return err
	}
	if graph.Fold(doc.Path()) != graph.Fold(canonical) {
		return errors.Errorf("open assembly is %s, not %s", doc.Path(), canonical)
	}

	if err := doc.SetSuppression(component, suppress); err != nil {
		return errors.Errorf("suppressing component: %w", err)
	}
	if err := doc.Save(ctx); err != nil {
		return errors.Errorf("saving assembly: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("assembly", canonical).
		Str("component", component).
		Bool("suppress", suppress).
		Msg("suppression changed")
	return nil
}

// SuppressBatch applies actions in submitted order, each independently,
// continuing past individual failures. Actions may open assemblies other
// than the current one; each is opened, changed, saved, and closed in turn.
func (c *Controller) SuppressBatch(ctx context.Context, actions []Action) (*report.BatchReport, error) {
	r := report.New()
	for _, action := range actions {
		if err := ctx.Err(); err != nil {
			return r.Finish(), nil
		}
		for _, component := range action.Components {
			err := c.applyOne(ctx, action.AssemblyPath, component, action.Suppress)
			subject := action.AssemblyPath + "#" + component
			if err != nil {
				reason := report.ClassifyError(err)
				if errors.Is(err, session.ErrBusy) {
					reason = report.ReasonSessionBusy
				}
				r.AddFailed(subject, reason, err.Error())
				continue
			}
			r.AddProcessed(subject)
		}
	}
	return r.Finish(), nil
}

func (c *Controller) applyOne(ctx context.Context, assemblyPath, component string, suppress bool) error {
	return c.session.WithDocument(ctx, assemblyPath, func(doc cadhost.Document) error {
		return doc.SetSuppression(component, suppress)
	})
}
