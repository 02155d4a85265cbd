package attls

import (
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/backkem/attls/pkg/ttls"
)

func TestNewManager_PlatformSyscaller(t *testing.T) {
	if runtime.GOOS == "zos" {
		t.Skip("control call available")
	}
	m, err := NewManager(ManagerConfig{})
	if !errors.Is(err, ttls.ErrUnsupported) {
		t.Errorf("NewManager() error = %v, want ErrUnsupported", err)
	}
	if m != nil {
		t.Error("NewManager() returned a manager on failure")
	}
}

func TestManagerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ManagerConfig
		wantErr bool
	}{
		{"defaults", ManagerConfig{}, false},
		{"negative certificate buffer", ManagerConfig{CertificateBufferSize: -1}, true},
		{"budget below block", ManagerConfig{MaxBufferBytes: ttls.BlockSize - 1}, true},
		{"budget of one block", ManagerConfig{MaxBufferBytes: ttls.BlockSize}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.config
			c.applyDefaults()
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestManager_Context(t *testing.T) {
	fake := ttls.NewFakeSyscaller(secureResponse(t), nil)
	m := newTestManager(t, fake, ManagerConfig{})

	a, err := m.Context(7)
	if err != nil {
		t.Fatalf("Context() error = %v", err)
	}
	b, _ := m.Context(7)
	if a != b {
		t.Error("Context() should return the same context for one descriptor")
	}
	if a.FD() != 7 {
		t.Errorf("FD() = %d, want 7", a.FD())
	}
	if m.Lookup(7) != a || m.Lookup(8) != nil {
		t.Error("Lookup() mismatch")
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}
	if fake.CallCount() != 0 {
		t.Errorf("calls = %d, want 0 before any getter", fake.CallCount())
	}

	if _, err := m.Context(-1); !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("Context(-1) error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestManager_Release(t *testing.T) {
	fake := ttls.NewFakeSyscaller(secureResponse(t), nil)
	m := newTestManager(t, fake, ManagerConfig{})

	old, _ := m.Context(7)
	m.Release(7)
	m.Release(7)
	if m.Count() != 0 {
		t.Errorf("Count() = %d, want 0", m.Count())
	}

	// A reused descriptor gets a fresh context; closing the stale one is harmless.
	fresh, _ := m.Context(7)
	if fresh == old {
		t.Fatal("Context() returned a released context")
	}
	old.Close()
	if m.Lookup(7) != fresh {
		t.Error("closing a stale context removed the fresh one")
	}
}

func TestManager_AlwaysLoadCertificatePerContext(t *testing.T) {
	fake := ttls.NewFakeSyscaller(secureResponse(t), testCert)
	m := newTestManager(t, fake, ManagerConfig{AlwaysLoadCertificate: true})

	ctx, _ := m.Context(1)
	if !ctx.AlwaysLoadCertificate() {
		t.Fatal("context should inherit AlwaysLoadCertificate")
	}
	ctx.SetAlwaysLoadCertificate(false)
	if _, err := ctx.StatConn(); err != nil {
		t.Fatalf("StatConn() error = %v", err)
	}
	if fake.Calls()[0].Request != ttls.QueryOnly {
		t.Errorf("request = %s, want QueryOnly", fake.Calls()[0].Request)
	}
}

func TestManager_Close(t *testing.T) {
	fake := ttls.NewFakeSyscaller(secureResponse(t), nil)
	m := newTestManager(t, fake, ManagerConfig{})

	ctx, _ := m.Context(7)
	if _, err := ctx.Protocol(); err != nil {
		t.Fatalf("Protocol() error = %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if _, err := m.Context(8); !errors.Is(err, ErrClosed) {
		t.Errorf("Context() error = %v, want ErrClosed", err)
	}
	if _, err := ctx.Protocol(); !errors.Is(err, ErrClosed) {
		t.Errorf("Protocol() error = %v, want ErrClosed", err)
	}
	if m.Registry() != nil {
		t.Error("Registry() should be released by Close")
	}
	if m.Count() != 0 {
		t.Errorf("Count() = %d, want 0", m.Count())
	}
}

func TestManager_ConcurrentContexts(t *testing.T) {
	fake := ttls.NewFakeSyscaller(secureResponse(t), nil)
	m := newTestManager(t, fake, ManagerConfig{})

	const n = 32
	var wg sync.WaitGroup
	for fd := 0; fd < n; fd++ {
		wg.Add(1)
		go func(fd int) {
			defer wg.Done()
			ctx, err := m.Context(fd)
			if err != nil {
				t.Errorf("Context(%d) error = %v", fd, err)
				return
			}
			if _, err := ctx.Protocol(); err != nil {
				t.Errorf("Protocol() fd=%d error = %v", fd, err)
			}
		}(fd)
	}
	wg.Wait()

	if m.Count() != n {
		t.Errorf("Count() = %d, want %d", m.Count(), n)
	}
	if fake.CallCount() != n {
		t.Errorf("calls = %d, want %d", fake.CallCount(), n)
	}
}
