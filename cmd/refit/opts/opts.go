package opts

import (
	"github.com/modelworks/refit/pkg/cadhost"
	"github.com/modelworks/refit/pkg/config"
	"github.com/modelworks/refit/pkg/operation"
	"github.com/modelworks/refit/pkg/report"
	"github.com/modelworks/refit/pkg/session"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	Config   *config.Config
	Host     cadhost.Host
	Session  *session.Session
	Operator operation.Operator
	Printer  *report.Printer
}
