package inbound

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/backkem/attls/pkg/attls"
	"github.com/pion/logging"
)

// Config configures Hooks.
type Config struct {
	// Manager owns the session contexts. Required.
	Manager *attls.Manager

	// AlwaysLoadCertificate makes each connection's first query also fetch
	// the partner certificate.
	AlwaysLoadCertificate bool

	// LoggerFactory for logging (optional).
	LoggerFactory logging.LoggerFactory
}

// Hooks ties session contexts to the connections of an http.Server: a
// context is attached when a connection is accepted and released when it
// closes or is hijacked.
type Hooks struct {
	manager               *attls.Manager
	alwaysLoadCertificate bool
	log                   logging.LeveledLogger

	mu    sync.Mutex
	conns map[net.Conn]*attls.SessionContext
}

// NewHooks creates connection hooks.
func NewHooks(config Config) (*Hooks, error) {
	if config.Manager == nil {
		return nil, ErrNoManager
	}

	h := &Hooks{
		manager:               config.Manager,
		alwaysLoadCertificate: config.AlwaysLoadCertificate,
		conns:                 make(map[net.Conn]*attls.SessionContext),
	}
	if config.LoggerFactory != nil {
		h.log = config.LoggerFactory.NewLogger("inbound")
	}
	return h, nil
}

// Install sets the server's ConnContext and ConnState, keeping any
// ConnState callback already installed.
func (h *Hooks) Install(srv *http.Server) {
	next := srv.ConnState
	srv.ConnContext = h.ConnContext
	srv.ConnState = func(c net.Conn, state http.ConnState) {
		h.ConnState(c, state)
		if next != nil {
			next(c, state)
		}
	}
}

// Attach creates a fresh session context for conn. Any context left for the
// same descriptor belongs to an earlier connection and is released first.
func (h *Hooks) Attach(conn net.Conn) (*attls.SessionContext, error) {
	fd, err := Descriptor(conn)
	if err != nil {
		return nil, err
	}

	h.manager.Release(fd)
	sc, err := h.manager.Context(fd)
	if err != nil {
		return nil, err
	}
	sc.SetAlwaysLoadCertificate(h.alwaysLoadCertificate)

	h.mu.Lock()
	h.conns[conn] = sc
	h.mu.Unlock()

	if h.log != nil {
		h.log.Tracef("attached fd=%d remote=%s", fd, conn.RemoteAddr())
	}
	return sc, nil
}

// Detach releases the session context of conn, if any.
func (h *Hooks) Detach(conn net.Conn) {
	h.mu.Lock()
	sc, ok := h.conns[conn]
	delete(h.conns, conn)
	h.mu.Unlock()

	if !ok {
		return
	}
	if h.log != nil {
		h.log.Tracef("detached fd=%d", sc.FD())
	}
	sc.Close()
}

// ConnContext is an http.Server ConnContext callback. Connections without a
// descriptor pass through unchanged.
func (h *Hooks) ConnContext(ctx context.Context, c net.Conn) context.Context {
	sc, err := h.Attach(c)
	if err != nil {
		if h.log != nil {
			h.log.Debugf("no AT-TLS context for %s: %v", c.RemoteAddr(), err)
		}
		return ctx
	}
	return NewContext(ctx, sc)
}

// ConnState is an http.Server ConnState callback.
func (h *Hooks) ConnState(c net.Conn, state http.ConnState) {
	switch state {
	case http.StateClosed, http.StateHijacked:
		h.Detach(c)
	}
}

// Count returns the number of attached connections.
func (h *Hooks) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
