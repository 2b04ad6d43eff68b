package component

import (
	"github.com/yanizio/campus/internal/config"
	"github.com/yanizio/campus/internal/form"
	"github.com/yanizio/campus/internal/session"
	"github.com/yanizio/campus/internal/slice"
	"github.com/yanizio/campus/internal/upstream"
)

// Deps exposes shared resources to Components during Init.
type Deps struct {
	Config   *config.Config
	Upstream *upstream.Client
	Sessions *session.Manager
	CSRF     *form.CSRF

	// Slices collects every cached slice so logout and context switches
	// can invalidate a session across components.
	Slices *slice.Registry
}
