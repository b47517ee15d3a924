package api

import (
	"context"

	"github.com/xiaoyuanzhu-com/claudechat/app"
	"github.com/xiaoyuanzhu-com/claudechat/log"
	"github.com/xiaoyuanzhu-com/claudechat/notifications"
)

var apiLogger = log.GetLogger("Api")

// Server is what the handlers need from the HTTP server
type Server interface {
	App() *app.App
	Notifications() *notifications.Service
	ShutdownContext() context.Context
}

// Handlers holds references to server components
type Handlers struct {
	server Server
}

// NewHandlers creates a new Handlers instance with server reference
func NewHandlers(srv Server) *Handlers {
	return &Handlers{server: srv}
}

func (h *Handlers) app() *app.App {
	return h.server.App()
}

func (h *Handlers) notify() *notifications.Service {
	return h.server.Notifications()
}
