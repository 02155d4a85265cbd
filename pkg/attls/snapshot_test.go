package attls

import (
	"bytes"
	"errors"
	"testing"

	"github.com/backkem/attls/pkg/ttls"
)

func TestSnapshot(t *testing.T) {
	ctx, fake := newTestContext(t, ManagerConfig{AlwaysLoadCertificate: true})

	s := ctx.Snapshot(true)
	if err := s.Err(); err != nil {
		t.Fatalf("Snapshot().Err() = %v", err)
	}
	if s.FD != 10 || s.Protocol != ProtocolTLSv1_2 || s.UserID != "USER1" || s.NegotiatedCipher4 != "C02F" {
		t.Errorf("Snapshot() = %+v", s)
	}
	if !bytes.Equal(s.Certificate, testCert) {
		t.Errorf("Certificate = %x, want %x", s.Certificate, testCert)
	}
	if fake.CallCount() != 1 {
		t.Errorf("calls = %d, want 1", fake.CallCount())
	}
}

func TestSnapshot_AttributeLocalErrors(t *testing.T) {
	r := secureResponse(t)
	r.Fips140 = 77
	fake := ttls.NewFakeSyscaller(r, nil)
	m := newTestManager(t, fake, ManagerConfig{})
	ctx, _ := m.Context(2)

	s := ctx.Snapshot(false)
	if len(s.Errors) != 1 || !errors.Is(s.Errors["Fips140"], ErrUnknownCode) {
		t.Errorf("Errors = %v, want only Fips140", s.Errors)
	}
	if s.StatConn != StatConnSecure || s.UserID != "USER1" {
		t.Errorf("Snapshot() = %+v", s)
	}
	if s.Certificate != nil {
		t.Error("certificate read without withCert")
	}
}

func TestSnapshot_ControlCallFailure(t *testing.T) {
	ctx, fake := newTestContext(t, ManagerConfig{})
	fake.SetFailure(&ttls.Status{ReturnCode: -1, Errno: 13, Errno2: 0x40})

	s := ctx.Snapshot(true)
	if len(s.Errors) != len(snapshotFields) {
		t.Errorf("len(Errors) = %d, want %d", len(s.Errors), len(snapshotFields))
	}
	if !errors.Is(s.Err(), ttls.ErrControlCall) {
		t.Errorf("Err() = %v, want ErrControlCall", s.Err())
	}
	if fake.CallCount() != 1 {
		t.Errorf("calls = %d, want 1", fake.CallCount())
	}
}
