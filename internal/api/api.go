package api

import (
	"errors"
	"net/http"

	"github.com/revealx-tools/console/internal/api/console"
	"github.com/revealx-tools/console/internal/config"
	"github.com/revealx-tools/console/internal/session"
)

// Service represents the console API service
type Service struct {
	Config   *config.Config
	Sessions session.Storage
	console  *console.Service
}

// Startup starts up the console API
func (service *Service) Startup(errs chan<- error) {
	consoleService := &console.Service{
		Config:   service.Config,
		Sessions: service.Sessions,
	}
	service.console = consoleService
	go func() {
		if err := consoleService.Startup(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
}

// Shutdown shuts down the console API
func (service *Service) Shutdown() {
	if service.console != nil {
		service.console.Shutdown()
		service.console = nil
	}
}
