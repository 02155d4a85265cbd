package ttls

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeHeader_Layout(t *testing.T) {
	block := make([]byte, BlockSize)
	for i := range block {
		block[i] = 0xEE
	}

	h := Header{
		Version:    Version1,
		Request:    QueryOnly | ReturnCertificate,
		BufferAddr: 0x0102030405060708,
		BufferLen:  10240,
	}
	if err := EncodeHeader(block, h); err != nil {
		t.Fatalf("EncodeHeader() error = %v", err)
	}

	want := []byte{
		0x00, 0x01, // version
		0x00, 0x06, // request
		0x00, 0x00, 0x00, 0x00, // reserved
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, // buffer address
		0x00, 0x00, 0x28, 0x00, // buffer length
	}
	if !bytes.Equal(block[:headerSize], want) {
		t.Errorf("header = %x, want %x", block[:headerSize], want)
	}
	if block[headerSize] != 0xEE {
		t.Error("EncodeHeader() wrote past the header")
	}

	got, err := ParseHeader(block)
	if err != nil {
		t.Fatalf("ParseHeader() error = %v", err)
	}
	if got != h {
		t.Errorf("ParseHeader() = %+v, want %+v", got, h)
	}
}

func TestParseResponse_Offsets(t *testing.T) {
	block := make([]byte, BlockSize)
	block[20], block[21], block[22], block[23] = 0, 0, 0x01, 0x00 // certLen 256
	block[24] = 4                                                 // policy
	block[25] = 3                                                 // conn
	block[26], block[27] = 3, 3                                   // TLSv1.2
	copy(block[28:], []byte{0xF3, 0xF5})                          // "35"
	block[30] = 1
	block[31] = 2
	block[32] = 5
	copy(block[33:], []byte{0xE4, 0xE2, 0xC5, 0xD9, 0xF1})
	block[41] = 0x80
	copy(block[44:], []byte{0xF0, 0xF0, 0xF3, 0xF5})
	copy(block[48:], []byte{0xF0, 0xF0, 0xF2, 0xF3})

	r, err := ParseResponse(block)
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}

	want := Response{
		CertLen:         256,
		StatPolicy:      4,
		StatConn:        3,
		ProtocolVersion: 3,
		ProtocolMod:     3,
		Cipher2:         [2]byte{0xF3, 0xF5},
		SecurityType:    1,
		Fips140:         2,
		UserIDLen:       5,
		UserID:          [8]byte{0xE4, 0xE2, 0xC5, 0xD9, 0xF1},
		Flags:           0x80,
		Cipher4:         [4]byte{0xF0, 0xF0, 0xF3, 0xF5},
		KeyShare:        [4]byte{0xF0, 0xF0, 0xF2, 0xF3},
	}
	if r != want {
		t.Errorf("ParseResponse() = %+v, want %+v", r, want)
	}

	// EncodeTo must reproduce the same bytes.
	other := make([]byte, BlockSize)
	if err := r.EncodeTo(other); err != nil {
		t.Fatalf("EncodeTo() error = %v", err)
	}
	if !bytes.Equal(other, block) {
		t.Errorf("EncodeTo() = %x, want %x", other, block)
	}
}

func TestBlock_Short(t *testing.T) {
	short := make([]byte, BlockSize-1)
	if err := EncodeHeader(short, Header{}); !errors.Is(err, ErrShortBlock) {
		t.Errorf("EncodeHeader() error = %v, want ErrShortBlock", err)
	}
	if _, err := ParseHeader(short); !errors.Is(err, ErrShortBlock) {
		t.Errorf("ParseHeader() error = %v, want ErrShortBlock", err)
	}
	if _, err := ParseResponse(short); !errors.Is(err, ErrShortBlock) {
		t.Errorf("ParseResponse() error = %v, want ErrShortBlock", err)
	}
	if err := (Response{}).EncodeTo(short); !errors.Is(err, ErrShortBlock) {
		t.Errorf("EncodeTo() error = %v, want ErrShortBlock", err)
	}
}
