package attls

import (
	"fmt"
	"sync"

	"github.com/backkem/attls/pkg/ebcdic"
	"github.com/backkem/attls/pkg/ttls"
	"github.com/pion/logging"
)

const (
	// DefaultCertificateBufferSize is the size of each context's certificate buffer.
	DefaultCertificateBufferSize = 10240

	// DefaultMaxBufferBytes bounds the buffer bytes held by all contexts of a manager.
	DefaultMaxBufferBytes = 64 << 20
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Syscaller performs the control call. Nil selects ttls.PlatformSyscaller,
	// which fails on platforms without AT-TLS.
	Syscaller ttls.Syscaller

	// CertificateBufferSize is the fixed size of each context's certificate buffer.
	// Default: DefaultCertificateBufferSize (10240)
	CertificateBufferSize int

	// MaxBufferBytes bounds the total buffer memory of all contexts.
	// Default: DefaultMaxBufferBytes (64 MiB)
	MaxBufferBytes int64

	// AlwaysLoadCertificate makes new contexts fetch the partner certificate
	// with every query.
	AlwaysLoadCertificate bool

	// Transcoder decodes text fields. Default: ebcdic.IBM1047
	Transcoder ebcdic.Transcoder

	// LoggerFactory for logging (optional).
	LoggerFactory logging.LoggerFactory
}

func (c *ManagerConfig) applyDefaults() {
	if c.CertificateBufferSize == 0 {
		c.CertificateBufferSize = DefaultCertificateBufferSize
	}
	if c.MaxBufferBytes == 0 {
		c.MaxBufferBytes = DefaultMaxBufferBytes
	}
	if c.Transcoder == nil {
		c.Transcoder = ebcdic.IBM1047
	}
}

// Validate checks the configuration after defaults are applied.
func (c *ManagerConfig) Validate() error {
	if c.CertificateBufferSize < 0 {
		return fmt.Errorf("%w: certificate buffer size %d", ErrInvalidConfig, c.CertificateBufferSize)
	}
	if c.MaxBufferBytes < int64(ttls.BlockSize) {
		return fmt.Errorf("%w: buffer budget %d is below one control block", ErrInvalidConfig, c.MaxBufferBytes)
	}
	return nil
}

// Manager owns the session contexts of a process: the enum registry, the
// dispatcher, the buffer budget and a table of contexts by descriptor.
// NewManager is the attach step and Close the detach step.
type Manager struct {
	registry              *Registry
	dispatcher            *ttls.Dispatcher
	budget                *bufferBudget
	transcoder            ebcdic.Transcoder
	certificateBufferSize int
	alwaysLoadCertificate bool
	log                   logging.LeveledLogger

	mu       sync.RWMutex
	contexts map[int]*SessionContext
	closed   bool
}

// NewManager builds the registry and resolves the syscaller. Any failure
// returns an error and no manager.
func NewManager(config ManagerConfig) (*Manager, error) {
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	registry, err := NewRegistry()
	if err != nil {
		return nil, err
	}
	dispatcher, err := ttls.NewDispatcher(ttls.DispatcherConfig{
		Syscaller:     config.Syscaller,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}

	m := &Manager{
		registry:              registry,
		dispatcher:            dispatcher,
		budget:                newBufferBudget(config.MaxBufferBytes),
		transcoder:            config.Transcoder,
		certificateBufferSize: config.CertificateBufferSize,
		alwaysLoadCertificate: config.AlwaysLoadCertificate,
		contexts:              make(map[int]*SessionContext),
	}
	if config.LoggerFactory != nil {
		m.log = config.LoggerFactory.NewLogger("attls")
		m.log.Debugf("attached: certificate buffer %d bytes, budget %d bytes",
			config.CertificateBufferSize, config.MaxBufferBytes)
	}
	return m, nil
}

// Registry returns the enum registry, or nil after Close.
func (m *Manager) Registry() *Registry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry
}

// Context returns the session context of fd, creating it on first access.
// No control call is issued until a getter needs data.
func (m *Manager) Context(fd int) (*SessionContext, error) {
	if fd < 0 {
		return nil, ErrInvalidDescriptor
	}

	m.mu.RLock()
	c, ok := m.contexts[fd]
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if ok {
		return c, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if c, ok := m.contexts[fd]; ok {
		return c, nil
	}
	c = newSessionContext(m, fd)
	m.contexts[fd] = c
	return c, nil
}

// Lookup returns the context of fd without creating one.
func (m *Manager) Lookup(fd int) *SessionContext {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.contexts[fd]
}

// Release closes the context of fd, if any, returning its buffers to the
// budget. Call it before the descriptor is closed or reused.
func (m *Manager) Release(fd int) {
	m.mu.Lock()
	c, ok := m.contexts[fd]
	if ok {
		delete(m.contexts, fd)
	}
	m.mu.Unlock()

	if ok {
		c.release()
	}
}

// remove releases c, dropping it from the table only if it is still the
// context registered for its descriptor.
func (m *Manager) remove(c *SessionContext) {
	m.mu.Lock()
	if m.contexts[c.fd] == c {
		delete(m.contexts, c.fd)
	}
	m.mu.Unlock()

	c.release()
}

// Count returns the number of live contexts.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.contexts)
}

// Close releases every context and the registry. It is idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	contexts := m.contexts
	m.contexts = make(map[int]*SessionContext)
	m.mu.Unlock()

	for _, c := range contexts {
		c.release()
	}

	m.mu.Lock()
	m.registry = nil
	m.mu.Unlock()

	if m.log != nil {
		m.log.Debugf("detached: released %d contexts", len(contexts))
	}
	return nil
}
