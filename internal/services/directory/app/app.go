package app

import (
	"fmt"
	"time"

	"github.com/parleyhq/parley/internal/platform/id"
	"github.com/parleyhq/parley/internal/platform/pagination"
	"github.com/parleyhq/parley/internal/services/directory/fanout"
	"github.com/parleyhq/parley/internal/services/directory/storage"
)

var (
	messagePageSizes = pagination.PageSizeConfig{Default: 50, Max: 100}
	chatPageSizes    = pagination.PageSizeConfig{Default: 20, Max: 100}
	searchPageSizes  = pagination.PageSizeConfig{Default: 20, Max: 100}
	auditPageSizes   = pagination.PageSizeConfig{Default: 50, Max: 200}
)

// App exposes every directory operation. Authorization checks and the
// writes they guard run inside one storage transaction.
type App struct {
	store storage.Store
	hub   *fanout.Hub
	now   func() time.Time
	newID func() (string, error)
}

// Options configures App construction. Store is required; the rest
// default to production implementations.
type Options struct {
	Store storage.Store
	Hub   *fanout.Hub
	Now   func() time.Time
	NewID func() (string, error)
}

// New builds an App from options.
func New(opts Options) (*App, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Hub == nil {
		opts.Hub = fanout.NewHub()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = id.NewID
	}
	return &App{
		store: opts.Store,
		hub:   opts.Hub,
		now:   opts.Now,
		newID: opts.NewID,
	}, nil
}

// Hub returns the fanout hub so transports can subscribe.
func (a *App) Hub() *fanout.Hub {
	return a.hub
}
