// Package usermap maps TLS client identities to platform user IDs through the
// access-control subsystem (RACF on z/OS).
//
// Two lookups exist: by DER certificate and by distinguished name within a
// named registry. Inputs are converted to the legacy encoding before the
// Backend call and the returned 8-character user ID is converted back.
// The mapping rules themselves belong to the Backend.
package usermap

import (
	"github.com/backkem/attls/pkg/ebcdic"
	"github.com/pion/logging"
)

// Fixed limits of the access-control subsystem, in legacy-encoded bytes.
const (
	MaxDistinguishedNameLen = 246
	MaxRegistryNameLen      = 255

	// IdentitySize is the size of the returned user ID field.
	IdentitySize = 9
)

// Response is the outcome of one mapping request. UserID is empty when no
// mapping exists; the codes are passed through from the backend unchanged.
type Response struct {
	UserID          string
	ReturnCode      int
	PrimaryReason   int
	SecondaryReason int
}

// Mapped returns true if the backend reported success and a user ID.
func (r Response) Mapped() bool {
	return r.ReturnCode == 0 && r.UserID != ""
}

// RawResponse is a backend answer with the user ID still legacy-encoded and
// padded to IdentitySize bytes.
type RawResponse struct {
	Identity        [IdentitySize]byte
	ReturnCode      int
	PrimaryReason   int
	SecondaryReason int
}

// Backend is the access-control subsystem. Inputs are legacy-encoded.
type Backend interface {
	MapCertificate(cert []byte) (RawResponse, error)
	MapDistinguishedName(dn, registry []byte) (RawResponse, error)
}

// MapperConfig configures a Mapper.
type MapperConfig struct {
	// Backend answers the lookups. Required.
	Backend Backend

	// Transcoder converts text. Default: ebcdic.IBM1047
	Transcoder ebcdic.Transcoder

	// LoggerFactory for logging (optional).
	LoggerFactory logging.LoggerFactory
}

// Mapper validates and converts mapping requests for a Backend. It holds no
// mutable state and is safe for concurrent use when the Backend is.
type Mapper struct {
	backend    Backend
	transcoder ebcdic.Transcoder
	log        logging.LeveledLogger
}

// NewMapper creates a mapper.
func NewMapper(config MapperConfig) (*Mapper, error) {
	if config.Backend == nil {
		return nil, ErrNoBackend
	}
	if config.Transcoder == nil {
		config.Transcoder = ebcdic.IBM1047
	}

	m := &Mapper{
		backend:    config.Backend,
		transcoder: config.Transcoder,
	}
	if config.LoggerFactory != nil {
		m.log = config.LoggerFactory.NewLogger("usermap")
	}
	return m, nil
}

// MapCertificate returns the user ID mapped to a DER certificate.
func (m *Mapper) MapCertificate(cert []byte) (Response, error) {
	if len(cert) == 0 {
		return Response{}, &ValidationError{Field: "certificate"}
	}

	raw, err := m.backend.MapCertificate(cert)
	if err != nil {
		return Response{}, err
	}
	resp, err := m.response(raw)
	if err != nil {
		return Response{}, err
	}
	if m.log != nil {
		m.log.Debugf("certificate (%d bytes) -> %q rc=%d", len(cert), resp.UserID, resp.ReturnCode)
	}
	return resp, nil
}

// MapDistinguishedName returns the user ID mapped to dn within registry.
// Either input longer than its limit after conversion is a *ValidationError
// and no backend call is made.
func (m *Mapper) MapDistinguishedName(dn, registry string) (Response, error) {
	dnBytes, err := m.encode("distinguished name", dn, MaxDistinguishedNameLen)
	if err != nil {
		return Response{}, err
	}
	regBytes, err := m.encode("registry name", registry, MaxRegistryNameLen)
	if err != nil {
		return Response{}, err
	}

	raw, err := m.backend.MapDistinguishedName(dnBytes, regBytes)
	if err != nil {
		return Response{}, err
	}
	resp, err := m.response(raw)
	if err != nil {
		return Response{}, err
	}
	if m.log != nil {
		m.log.Debugf("dn %q in %q -> %q rc=%d", dn, registry, resp.UserID, resp.ReturnCode)
	}
	return resp, nil
}

func (m *Mapper) encode(field, s string, limit int) ([]byte, error) {
	b, err := m.transcoder.Encode(s)
	if err != nil {
		return nil, &TextConversionError{Field: field, Err: err}
	}
	if len(b) > limit {
		return nil, &ValidationError{Field: field, Length: len(b), Max: limit}
	}
	return b, nil
}

func (m *Mapper) response(raw RawResponse) (Response, error) {
	id, err := ebcdic.DecodeField(m.transcoder, raw.Identity[:], IdentitySize)
	if err != nil {
		return Response{}, &TextConversionError{Field: "user ID", Err: err}
	}
	return Response{
		UserID:          ebcdic.TrimPadding(id),
		ReturnCode:      raw.ReturnCode,
		PrimaryReason:   raw.PrimaryReason,
		SecondaryReason: raw.SecondaryReason,
	}, nil
}
