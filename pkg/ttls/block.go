package ttls

import (
	"golang.org/x/crypto/cryptobyte"
)

// BlockSize is the size of the control block in bytes.
const BlockSize = 128

// Version1 is the only control block version.
const Version1 uint16 = 1

// Field sizes.
const (
	Cipher2Size  = 2
	Cipher4Size  = 4
	KeyShareSize = 4
	UserIDSize   = 8
)

// Field offsets within the control block. Multi-byte integers are big-endian.
const (
	offVersion    = 0
	offRequest    = 2
	offBufferAddr = 8
	offBufferLen  = 16
	offCertLen    = 20
	offFlags      = 41
	offCipher4    = 44
	offReserved   = 52

	headerSize = offCertLen
)

// Header is the caller-supplied part of the control block.
type Header struct {
	Version    uint16
	Request    Request
	BufferAddr uint64
	BufferLen  uint32
}

// Response holds the fields filled in by a successful query. Text fields are
// raw, legacy-encoded and possibly NUL-terminated.
type Response struct {
	CertLen         uint32
	StatPolicy      uint8
	StatConn        uint8
	ProtocolVersion uint8
	ProtocolMod     uint8
	Cipher2         [Cipher2Size]byte
	SecurityType    uint8
	Fips140         uint8
	UserIDLen       uint8
	UserID          [UserIDSize]byte
	Flags           uint8
	Cipher4         [Cipher4Size]byte
	KeyShare        [KeyShareSize]byte
}

// EncodeHeader writes h into the first bytes of block, leaving the response
// area untouched.
func EncodeHeader(block []byte, h Header) error {
	if len(block) < BlockSize {
		return ErrShortBlock
	}
	b := cryptobyte.NewFixedBuilder(block[offVersion:offVersion:headerSize])
	b.AddUint16(h.Version)
	b.AddUint16(uint16(h.Request))
	b.AddBytes(make([]byte, offBufferAddr-offRequest-2))
	b.AddUint64(h.BufferAddr)
	b.AddUint32(h.BufferLen)
	_, err := b.Bytes()
	return err
}

// ParseHeader decodes the caller-supplied part of block.
func ParseHeader(block []byte) (Header, error) {
	if len(block) < BlockSize {
		return Header{}, ErrShortBlock
	}
	var h Header
	var req uint16
	s := cryptobyte.String(block[:headerSize])
	if !s.ReadUint16(&h.Version) ||
		!s.ReadUint16(&req) ||
		!s.Skip(offBufferAddr-offRequest-2) ||
		!s.ReadUint64(&h.BufferAddr) ||
		!s.ReadUint32(&h.BufferLen) {
		return Header{}, ErrShortBlock
	}
	h.Request = Request(req)
	return h, nil
}

// ParseResponse decodes the response area of block.
func ParseResponse(block []byte) (Response, error) {
	if len(block) < BlockSize {
		return Response{}, ErrShortBlock
	}
	var r Response
	s := cryptobyte.String(block[offCertLen:offReserved])
	if !s.ReadUint32(&r.CertLen) ||
		!s.ReadUint8(&r.StatPolicy) ||
		!s.ReadUint8(&r.StatConn) ||
		!s.ReadUint8(&r.ProtocolVersion) ||
		!s.ReadUint8(&r.ProtocolMod) ||
		!s.CopyBytes(r.Cipher2[:]) ||
		!s.ReadUint8(&r.SecurityType) ||
		!s.ReadUint8(&r.Fips140) ||
		!s.ReadUint8(&r.UserIDLen) ||
		!s.CopyBytes(r.UserID[:]) ||
		!s.ReadUint8(&r.Flags) ||
		!s.Skip(offCipher4-offFlags-1) ||
		!s.CopyBytes(r.Cipher4[:]) ||
		!s.CopyBytes(r.KeyShare[:]) {
		return Response{}, ErrShortBlock
	}
	return r, nil
}

// EncodeTo writes r into the response area of block. The platform fills this
// area; EncodeTo exists for simulated control calls.
func (r Response) EncodeTo(block []byte) error {
	if len(block) < BlockSize {
		return ErrShortBlock
	}
	b := cryptobyte.NewFixedBuilder(block[offCertLen:offCertLen:offReserved])
	b.AddUint32(r.CertLen)
	b.AddUint8(r.StatPolicy)
	b.AddUint8(r.StatConn)
	b.AddUint8(r.ProtocolVersion)
	b.AddUint8(r.ProtocolMod)
	b.AddBytes(r.Cipher2[:])
	b.AddUint8(r.SecurityType)
	b.AddUint8(r.Fips140)
	b.AddUint8(r.UserIDLen)
	b.AddBytes(r.UserID[:])
	b.AddUint8(r.Flags)
	b.AddBytes(make([]byte, offCipher4-offFlags-1))
	b.AddBytes(r.Cipher4[:])
	b.AddBytes(r.KeyShare[:])
	_, err := b.Bytes()
	return err
}

// Clear zeroes the whole control block.
func Clear(block []byte) {
	clear(block)
}
