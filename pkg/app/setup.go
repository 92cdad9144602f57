package app

import (
	"github.com/amirasaad/finplan/pkg/service/nudge"
)

// setupEventBus subscribes the in-process handlers.
func (a *App) setupEventBus() {
	if a.Deps.EventBus == nil {
		return
	}
	nudge.Register(a.Deps.EventBus, a.Deps.Logger)
	a.Deps.Logger.Info("event handlers registered")
}
