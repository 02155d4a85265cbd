package usermap

import (
	"bytes"
	"crypto/sha256"
	"sync"

	"github.com/backkem/attls/pkg/ebcdic"
)

// Codes reported by StaticBackend when no mapping exists. They follow the
// access-control subsystem's "user not defined" answer.
const (
	NotMappedReturnCode      = 8
	NotMappedPrimaryReason   = 8
	NotMappedSecondaryReason = 16
)

// StaticBackend is an in-memory Backend. Certificates are keyed by the
// SHA-256 of their DER bytes, distinguished names by (dn, registry).
type StaticBackend struct {
	transcoder ebcdic.Transcoder

	mu    sync.RWMutex
	certs map[[sha256.Size]byte][IdentitySize]byte
	dns   map[string][IdentitySize]byte
}

// NewStaticBackend creates an empty backend that stores user IDs with t,
// or ebcdic.IBM1047 when t is nil.
func NewStaticBackend(t ebcdic.Transcoder) *StaticBackend {
	if t == nil {
		t = ebcdic.IBM1047
	}
	return &StaticBackend{
		transcoder: t,
		certs:      make(map[[sha256.Size]byte][IdentitySize]byte),
		dns:        make(map[string][IdentitySize]byte),
	}
}

// AddCertificate maps a DER certificate to userID.
func (b *StaticBackend) AddCertificate(cert []byte, userID string) error {
	id, err := b.identity(userID)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.certs[sha256.Sum256(cert)] = id
	return nil
}

// AddDistinguishedName maps dn within registry to userID.
func (b *StaticBackend) AddDistinguishedName(dn, registry, userID string) error {
	id, err := b.identity(userID)
	if err != nil {
		return err
	}
	dnBytes, err := b.transcoder.Encode(dn)
	if err != nil {
		return &TextConversionError{Field: "distinguished name", Err: err}
	}
	regBytes, err := b.transcoder.Encode(registry)
	if err != nil {
		return &TextConversionError{Field: "registry name", Err: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.dns[dnKey(dnBytes, regBytes)] = id
	return nil
}

// MapCertificate implements Backend.
func (b *StaticBackend) MapCertificate(cert []byte) (RawResponse, error) {
	b.mu.RLock()
	id, ok := b.certs[sha256.Sum256(cert)]
	b.mu.RUnlock()
	return answer(id, ok), nil
}

// MapDistinguishedName implements Backend.
func (b *StaticBackend) MapDistinguishedName(dn, registry []byte) (RawResponse, error) {
	b.mu.RLock()
	id, ok := b.dns[dnKey(dn, registry)]
	b.mu.RUnlock()
	return answer(id, ok), nil
}

// identity encodes userID into a blank-padded identity field.
func (b *StaticBackend) identity(userID string) ([IdentitySize]byte, error) {
	var id [IdentitySize]byte
	enc, err := b.transcoder.Encode(userID)
	if err != nil {
		return id, &TextConversionError{Field: "user ID", Err: err}
	}
	if len(enc) == 0 || len(enc) >= IdentitySize {
		return id, &ValidationError{Field: "user ID", Length: len(enc), Max: IdentitySize - 1}
	}
	blank, _ := b.transcoder.Encode(" ")
	copy(id[:], bytes.Repeat(blank, IdentitySize-1))
	copy(id[:], enc)
	return id, nil
}

func dnKey(dn, registry []byte) string {
	return string(dn) + "\x00" + string(registry)
}

func answer(id [IdentitySize]byte, ok bool) RawResponse {
	if !ok {
		return RawResponse{
			ReturnCode:      NotMappedReturnCode,
			PrimaryReason:   NotMappedPrimaryReason,
			SecondaryReason: NotMappedSecondaryReason,
		}
	}
	return RawResponse{Identity: id}
}
