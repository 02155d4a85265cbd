package inbound

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/backkem/attls/pkg/attls"
	"github.com/backkem/attls/pkg/ttls"
	"github.com/pion/logging"
	"github.com/pion/transport/v3/test"
)

func newTestManager(t *testing.T) (*attls.Manager, *ttls.FakeSyscaller) {
	t.Helper()
	fake := ttls.NewFakeSyscaller(ttls.Response{
		StatPolicy:      uint8(attls.StatPolicyEnabled),
		StatConn:        uint8(attls.StatConnSecure),
		ProtocolVersion: 3,
		ProtocolMod:     4,
	}, []byte{0x30, 0x00})
	m, err := attls.NewManager(attls.ManagerConfig{
		Syscaller:     fake,
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m, fake
}

func newTestHooks(t *testing.T, m *attls.Manager, always bool) *Hooks {
	t.Helper()
	h, err := NewHooks(Config{
		Manager:               m,
		AlwaysLoadCertificate: always,
		LoggerFactory:         logging.NewDefaultLoggerFactory(),
	})
	if err != nil {
		t.Fatalf("NewHooks() error = %v", err)
	}
	return h
}

// tcpPair returns both ends of a loopback TCP connection.
func tcpPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- c
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	server, ok := <-accepted
	if !ok {
		t.Fatal("Accept() failed")
	}
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return server, client
}

func TestFromContext_NotInitialized(t *testing.T) {
	if _, err := FromContext(context.Background()); !errors.Is(err, ErrContextNotInitialized) {
		t.Errorf("FromContext() error = %v, want ErrContextNotInitialized", err)
	}

	ctx := context.Background()
	if NewContext(ctx, nil) != ctx {
		t.Error("NewContext(nil) should return ctx unchanged")
	}
}

func TestNewContext_RoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	sc, _ := m.Context(3)

	got, err := FromContext(NewContext(context.Background(), sc))
	if err != nil {
		t.Fatalf("FromContext() error = %v", err)
	}
	if got != sc {
		t.Error("FromContext() returned a different context")
	}
}

func TestDescriptor(t *testing.T) {
	server, _ := tcpPair(t)
	fd, err := Descriptor(server)
	if err != nil {
		t.Fatalf("Descriptor() error = %v", err)
	}
	if fd < 0 {
		t.Errorf("Descriptor() = %d, want >= 0", fd)
	}

	br := test.NewBridge()
	if _, err := Descriptor(br.GetConn0()); !errors.Is(err, ErrNoDescriptor) {
		t.Errorf("Descriptor(bridge) error = %v, want ErrNoDescriptor", err)
	}
}

func TestNewHooks_NoManager(t *testing.T) {
	if _, err := NewHooks(Config{}); !errors.Is(err, ErrNoManager) {
		t.Errorf("NewHooks() error = %v, want ErrNoManager", err)
	}
}

func TestHooks_ConnContextWithoutDescriptor(t *testing.T) {
	m, _ := newTestManager(t)
	h := newTestHooks(t, m, false)

	br := test.NewBridge()
	ctx := context.Background()
	if got := h.ConnContext(ctx, br.GetConn0()); got != ctx {
		t.Error("ConnContext() should pass through connections without descriptor")
	}
	if h.Count() != 0 || m.Count() != 0 {
		t.Errorf("Count() = %d/%d, want 0", h.Count(), m.Count())
	}
}

func TestHooks_Lifecycle(t *testing.T) {
	m, fake := newTestManager(t)
	h := newTestHooks(t, m, true)
	server, _ := tcpPair(t)

	ctx := h.ConnContext(context.Background(), server)
	sc, err := FromContext(ctx)
	if err != nil {
		t.Fatalf("FromContext() error = %v", err)
	}
	fd, _ := Descriptor(server)
	if sc.FD() != fd {
		t.Errorf("FD() = %d, want %d", sc.FD(), fd)
	}
	if !sc.AlwaysLoadCertificate() {
		t.Error("AlwaysLoadCertificate not applied")
	}

	if p, err := sc.Protocol(); err != nil || p != attls.ProtocolTLSv1_3 {
		t.Errorf("Protocol() = %v, %v, want TLSv1.3", p, err)
	}
	if calls := fake.Calls(); len(calls) != 1 || !calls[0].Request.WantsCertificate() {
		t.Errorf("calls = %+v, want one query with certificate", calls)
	}

	h.ConnState(server, http.StateActive)
	if h.Count() != 1 {
		t.Errorf("Count() = %d, want 1", h.Count())
	}

	h.ConnState(server, http.StateClosed)
	if h.Count() != 0 || m.Count() != 0 {
		t.Errorf("Count() = %d/%d after close, want 0", h.Count(), m.Count())
	}
	if _, err := sc.Protocol(); !errors.Is(err, attls.ErrClosed) {
		t.Errorf("Protocol() after close error = %v, want ErrClosed", err)
	}
}

func TestHooks_ReattachReplacesStaleContext(t *testing.T) {
	m, _ := newTestManager(t)
	h := newTestHooks(t, m, false)
	server, _ := tcpPair(t)

	first, err := h.Attach(server)
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	second, err := h.Attach(server)
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if first == second {
		t.Fatal("Attach() reused a stale context")
	}
	if _, err := first.StatConn(); !errors.Is(err, attls.ErrClosed) {
		t.Errorf("stale StatConn() error = %v, want ErrClosed", err)
	}
	if _, err := second.StatConn(); err != nil {
		t.Errorf("StatConn() error = %v", err)
	}
}

func TestHooks_HTTPServer(t *testing.T) {
	m, fake := newTestManager(t)
	h := newTestHooks(t, m, false)

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc, err := FromContext(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		p, err := sc.Protocol()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		io.WriteString(w, p.String())
	}))
	h.Install(srv.Config)
	srv.Start()
	defer srv.Close()

	for i := 0; i < 2; i++ {
		resp, err := srv.Client().Get(srv.URL)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK || string(body) != "TLSv1.3" {
			t.Errorf("response = %d %q, want 200 TLSv1.3", resp.StatusCode, body)
		}
	}

	// Both requests share one keep-alive connection and one control call.
	if fake.CallCount() != 1 {
		t.Errorf("calls = %d, want 1", fake.CallCount())
	}
}
