package attls

import (
	"bytes"

	"github.com/backkem/attls/pkg/ebcdic"
	"github.com/backkem/attls/pkg/ttls"
)

// State is the raw state held by a SessionContext.
type State uint8

const (
	// StateEmpty holds no query data.
	StateEmpty State = iota
	// StateQueryLoaded holds query data without the partner certificate.
	StateQueryLoaded
	// StateQueryAndCertLoaded holds query data and the partner certificate.
	StateQueryAndCertLoaded
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "Empty"
	case StateQueryLoaded:
		return "QueryLoaded"
	case StateQueryAndCertLoaded:
		return "QueryAndCertLoaded"
	default:
		return "Unknown"
	}
}

// slot caches one decoded attribute.
type slot[T any] struct {
	v  T
	ok bool
}

func (s *slot[T]) set(v T) {
	s.v, s.ok = v, true
}

func (s *slot[T]) reset() {
	*s = slot[T]{}
}

// SessionContext caches the AT-TLS attributes of one socket.
//
// Getters issue a control call only when the attribute is not cached and the
// raw state it needs is not loaded. Commands and Clean forget everything.
// A SessionContext is not safe for concurrent use; callers serialize all
// operations on one context.
type SessionContext struct {
	fd  int
	mgr *Manager

	alwaysLoadCertificate bool
	queryLoaded           bool
	certificateLoaded     bool
	closed                bool

	block []byte
	cert  []byte
	resp  ttls.Response

	statPolicy   slot[StatPolicy]
	statConn     slot[StatConn]
	protocol     slot[Protocol]
	securityType slot[SecurityType]
	fips140      slot[Fips140]
	cipher2      slot[string]
	cipher4      slot[string]
	keyShare     slot[string]
	userID       slot[string]
	flags        slot[uint8]
	certificate  slot[[]byte]
}

func newSessionContext(m *Manager, fd int) *SessionContext {
	return &SessionContext{
		fd:                    fd,
		mgr:                   m,
		alwaysLoadCertificate: m.alwaysLoadCertificate,
	}
}

// FD returns the socket descriptor.
func (c *SessionContext) FD() int {
	return c.fd
}

// State returns the loaded raw state.
func (c *SessionContext) State() State {
	switch {
	case c.certificateLoaded:
		return StateQueryAndCertLoaded
	case c.queryLoaded:
		return StateQueryLoaded
	default:
		return StateEmpty
	}
}

// AlwaysLoadCertificate reports whether queries also fetch the certificate.
func (c *SessionContext) AlwaysLoadCertificate() bool {
	return c.alwaysLoadCertificate
}

// SetAlwaysLoadCertificate makes every query also fetch the partner
// certificate, so one call serves query and certificate getters.
func (c *SessionContext) SetAlwaysLoadCertificate(v bool) {
	c.alwaysLoadCertificate = v
}

// StatPolicy returns the policy status.
func (c *SessionContext) StatPolicy() (StatPolicy, error) {
	return load(c, &c.statPolicy, false, func(r *ttls.Response) (StatPolicy, error) {
		return c.mgr.registry.StatPolicy(r.StatPolicy)
	})
}

// StatConn returns the connection status.
func (c *SessionContext) StatConn() (StatConn, error) {
	return load(c, &c.statConn, false, func(r *ttls.Response) (StatConn, error) {
		return c.mgr.registry.StatConn(r.StatConn)
	})
}

// Protocol returns the negotiated protocol.
func (c *SessionContext) Protocol() (Protocol, error) {
	return load(c, &c.protocol, false, func(r *ttls.Response) (Protocol, error) {
		return c.mgr.registry.Protocol(r.ProtocolVersion, r.ProtocolMod)
	})
}

// SecurityType returns the security type.
func (c *SessionContext) SecurityType() (SecurityType, error) {
	return load(c, &c.securityType, false, func(r *ttls.Response) (SecurityType, error) {
		return c.mgr.registry.SecurityType(r.SecurityType)
	})
}

// Fips140 returns the FIPS 140 mode.
func (c *SessionContext) Fips140() (Fips140, error) {
	return load(c, &c.fips140, false, func(r *ttls.Response) (Fips140, error) {
		return c.mgr.registry.Fips140(r.Fips140)
	})
}

// NegotiatedCipher2 returns the two-character negotiated cipher code.
func (c *SessionContext) NegotiatedCipher2() (string, error) {
	return load(c, &c.cipher2, false, func(r *ttls.Response) (string, error) {
		return c.decodeText("NegotiatedCipher2", r.Cipher2[:], ttls.Cipher2Size)
	})
}

// NegotiatedCipher4 returns the four-character negotiated cipher code.
func (c *SessionContext) NegotiatedCipher4() (string, error) {
	return load(c, &c.cipher4, false, func(r *ttls.Response) (string, error) {
		return c.decodeText("NegotiatedCipher4", r.Cipher4[:], ttls.Cipher4Size)
	})
}

// NegotiatedKeyShare returns the four-character negotiated key share code.
func (c *SessionContext) NegotiatedKeyShare() (string, error) {
	return load(c, &c.keyShare, false, func(r *ttls.Response) (string, error) {
		return c.decodeText("NegotiatedKeyShare", r.KeyShare[:], ttls.KeyShareSize)
	})
}

// UserID returns the user ID associated with the partner certificate, or ""
// if there is none.
func (c *SessionContext) UserID() (string, error) {
	return load(c, &c.userID, false, func(r *ttls.Response) (string, error) {
		return c.decodeText("UserID", r.UserID[:], int(r.UserIDLen))
	})
}

// Flags returns the raw flags byte.
func (c *SessionContext) Flags() (uint8, error) {
	return load(c, &c.flags, false, func(r *ttls.Response) (uint8, error) {
		return r.Flags, nil
	})
}

// Certificate returns a copy of the DER-encoded partner certificate, or nil
// if the partner sent none.
func (c *SessionContext) Certificate() ([]byte, error) {
	cert, err := load(c, &c.certificate, true, func(r *ttls.Response) ([]byte, error) {
		n := min(int(r.CertLen), len(c.cert))
		if n == 0 {
			return nil, nil
		}
		return bytes.Clone(c.cert[:n]), nil
	})
	return bytes.Clone(cert), err
}

func (c *SessionContext) decodeText(field string, b []byte, size int) (string, error) {
	s, err := ebcdic.DecodeField(c.mgr.transcoder, b, size)
	if err != nil {
		return "", &TextConversionError{Field: field, Err: err}
	}
	return s, nil
}

// load implements the getter protocol: return the cached value, else make
// sure the needed raw state is loaded, decode and cache. Decode errors are not
// cached and leave other slots alone.
func load[T any](c *SessionContext, s *slot[T], needCert bool, decode func(r *ttls.Response) (T, error)) (T, error) {
	var zero T
	if c.closed {
		return zero, ErrClosed
	}
	if s.ok {
		return s.v, nil
	}

	var err error
	if needCert {
		err = c.requireCertificate()
	} else {
		err = c.requireQuery()
	}
	if err != nil {
		return zero, err
	}

	v, err := decode(&c.resp)
	if err != nil {
		return zero, err
	}
	s.set(v)
	return v, nil
}

func (c *SessionContext) requireQuery() error {
	if c.queryLoaded {
		return nil
	}
	req := ttls.QueryOnly
	if c.alwaysLoadCertificate {
		req |= ttls.ReturnCertificate
	}
	return c.query(req)
}

func (c *SessionContext) requireCertificate() error {
	if c.certificateLoaded {
		return nil
	}
	return c.query(ttls.QueryOnly | ttls.ReturnCertificate)
}

// query reloads the raw state with one control call. On failure the context
// is left empty since the block content is undefined.
func (c *SessionContext) query(req ttls.Request) error {
	c.invalidate()

	if err := c.prepareBlock(); err != nil {
		return err
	}
	var out []byte
	if req.WantsCertificate() {
		if err := c.prepareCertificate(); err != nil {
			return err
		}
		out = c.cert
	}

	if err := c.mgr.dispatcher.Issue(c.fd, req, c.block, out); err != nil {
		c.invalidate()
		return err
	}
	resp, err := ttls.ParseResponse(c.block)
	if err != nil {
		c.invalidate()
		return err
	}

	c.resp = resp
	c.queryLoaded = true
	c.certificateLoaded = req.WantsCertificate()
	if c.mgr.log != nil {
		c.mgr.log.Tracef("fd=%d loaded %s", c.fd, c.State())
	}
	return nil
}

// prepareBlock allocates the control block on first use and erases stale
// content on reuse.
func (c *SessionContext) prepareBlock() error {
	if c.block == nil {
		b, err := c.mgr.budget.alloc(bufferControl, ttls.BlockSize)
		if err != nil {
			return err
		}
		c.block = b
		return nil
	}
	ttls.Clear(c.block)
	return nil
}

// prepareCertificate allocates the certificate buffer on first use and
// erases stale content on reuse.
func (c *SessionContext) prepareCertificate() error {
	if c.cert == nil {
		b, err := c.mgr.budget.alloc(bufferCertificate, c.mgr.certificateBufferSize)
		if err != nil {
			return err
		}
		c.cert = b
		return nil
	}
	clear(c.cert)
	return nil
}

// invalidate clears the loaded flags and every cache slot.
func (c *SessionContext) invalidate() {
	c.queryLoaded = false
	c.certificateLoaded = false
	c.resp = ttls.Response{}

	c.statPolicy.reset()
	c.statConn.reset()
	c.protocol.reset()
	c.securityType.reset()
	c.fips140.reset()
	c.cipher2.reset()
	c.cipher4.reset()
	c.keyShare.reset()
	c.userID.reset()
	c.flags.reset()
	c.certificate.reset()
}

// Clean forgets all loaded state and zeroes the buffers, which stay
// allocated for reuse. The next getter issues a new control call.
func (c *SessionContext) Clean() {
	c.invalidate()
	clear(c.block)
	clear(c.cert)
}

// InitConnection starts the TLS handshake on an application-controlled connection.
func (c *SessionContext) InitConnection() error {
	return c.command(ttls.InitConnection)
}

// ResetSession resets the session ID of the connection.
func (c *SessionContext) ResetSession() error {
	return c.command(ttls.ResetSession)
}

// ResetCipher renegotiates the cipher keys.
func (c *SessionContext) ResetCipher() error {
	return c.command(ttls.ResetCipher)
}

// StopConnection stops TLS on the connection.
func (c *SessionContext) StopConnection() error {
	return c.command(ttls.StopConnection)
}

// AllowHandshakeTimeout lets a pending handshake time out.
func (c *SessionContext) AllowHandshakeTimeout() error {
	return c.command(ttls.AllowHandshakeTimeout)
}

// ResetWriteCipher updates the write keys (TLSv1.3).
func (c *SessionContext) ResetWriteCipher() error {
	return c.command(ttls.ResetWriteCipher)
}

// SendSessionTicket sends a session ticket to the client (TLSv1.3).
func (c *SessionContext) SendSessionTicket() error {
	return c.command(ttls.SendSessionTicket)
}

// Command issues one command request. Query requests are rejected with
// ttls.ErrInvalidRequest.
func (c *SessionContext) Command(req ttls.Request) error {
	if !req.IsCommand() {
		return ttls.ErrInvalidRequest
	}
	return c.command(req)
}

// command invalidates everything before the call: the negotiated state may
// change whatever the outcome.
func (c *SessionContext) command(req ttls.Request) error {
	if c.closed {
		return ErrClosed
	}
	c.invalidate()

	if err := c.prepareBlock(); err != nil {
		return err
	}
	if err := c.mgr.dispatcher.Issue(c.fd, req, c.block, nil); err != nil {
		if c.mgr.log != nil {
			c.mgr.log.Warnf("fd=%d %s: %v", c.fd, req, err)
		}
		return err
	}
	if c.mgr.log != nil {
		c.mgr.log.Debugf("fd=%d %s issued", c.fd, req)
	}
	return nil
}

// Close releases the context and its buffers. Later calls return ErrClosed.
func (c *SessionContext) Close() {
	c.mgr.remove(c)
}

// release is called by the manager once the context left its table.
func (c *SessionContext) release() {
	if c.closed {
		return
	}
	c.Clean()
	c.mgr.budget.free(c.block)
	c.mgr.budget.free(c.cert)
	c.block = nil
	c.cert = nil
	c.closed = true
}
