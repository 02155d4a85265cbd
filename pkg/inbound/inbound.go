// Package inbound attaches an AT-TLS session context to each accepted
// connection and carries it through context.Context, so request handlers can
// read the TLS attributes of the connection they are serving.
//
//	hooks, _ := inbound.NewHooks(inbound.Config{Manager: m})
//	srv := &http.Server{Handler: h}
//	hooks.Install(srv)
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//		sc, err := inbound.FromContext(r.Context())
//		...
//		user, err := sc.UserID()
//	}
package inbound

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/backkem/attls/pkg/attls"
)

// Inbound errors.
var (
	// ErrContextNotInitialized is returned when no session context was attached.
	ErrContextNotInitialized = errors.New("inbound: AT-TLS context is not initialized")

	// ErrNoDescriptor is returned for connections without a socket descriptor.
	ErrNoDescriptor = errors.New("inbound: connection has no socket descriptor")

	// ErrNoManager is returned when Config.Manager is nil.
	ErrNoManager = errors.New("inbound: no manager configured")
)

type sessionContextKey struct{}

// NewContext returns a copy of ctx carrying sc.
func NewContext(ctx context.Context, sc *attls.SessionContext) context.Context {
	if sc == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionContextKey{}, sc)
}

// FromContext returns the session context attached to ctx.
func FromContext(ctx context.Context) (*attls.SessionContext, error) {
	if ctx == nil {
		return nil, ErrContextNotInitialized
	}
	if sc, ok := ctx.Value(sessionContextKey{}).(*attls.SessionContext); ok {
		return sc, nil
	}
	return nil, ErrContextNotInitialized
}

// Descriptor returns the socket descriptor of conn. The descriptor is only
// meaningful while conn is open.
func Descriptor(conn net.Conn) (int, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return -1, ErrNoDescriptor
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return -1, err
	}

	fd := -1
	if err := raw.Control(func(s uintptr) {
		fd = int(s)
	}); err != nil {
		return -1, err
	}
	if fd < 0 {
		return -1, ErrNoDescriptor
	}
	return fd, nil
}
