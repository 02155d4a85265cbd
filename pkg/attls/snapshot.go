package attls

import (
	"errors"

	"github.com/backkem/attls/pkg/ttls"
)

// Snapshot is every attribute of a context read at once. A failing attribute
// keeps its zero value and its error is recorded under the attribute name.
type Snapshot struct {
	FD                 int
	StatPolicy         StatPolicy
	StatConn           StatConn
	Protocol           Protocol
	SecurityType       SecurityType
	Fips140            Fips140
	NegotiatedCipher2  string
	NegotiatedCipher4  string
	NegotiatedKeyShare string
	UserID             string
	Flags              uint8
	Certificate        []byte

	Errors map[string]error
}

// Err returns the first recorded error in attribute order, or nil.
func (s *Snapshot) Err() error {
	for _, f := range snapshotFields {
		if err := s.Errors[f.name]; err != nil {
			return err
		}
	}
	return nil
}

var snapshotFields = []struct {
	name string
	cert bool
	read func(c *SessionContext, s *Snapshot) error
}{
	{"StatPolicy", false, func(c *SessionContext, s *Snapshot) (err error) {
		s.StatPolicy, err = c.StatPolicy()
		return
	}},
	{"StatConn", false, func(c *SessionContext, s *Snapshot) (err error) {
		s.StatConn, err = c.StatConn()
		return
	}},
	{"Protocol", false, func(c *SessionContext, s *Snapshot) (err error) {
		s.Protocol, err = c.Protocol()
		return
	}},
	{"SecurityType", false, func(c *SessionContext, s *Snapshot) (err error) {
		s.SecurityType, err = c.SecurityType()
		return
	}},
	{"Fips140", false, func(c *SessionContext, s *Snapshot) (err error) {
		s.Fips140, err = c.Fips140()
		return
	}},
	{"NegotiatedCipher2", false, func(c *SessionContext, s *Snapshot) (err error) {
		s.NegotiatedCipher2, err = c.NegotiatedCipher2()
		return
	}},
	{"NegotiatedCipher4", false, func(c *SessionContext, s *Snapshot) (err error) {
		s.NegotiatedCipher4, err = c.NegotiatedCipher4()
		return
	}},
	{"NegotiatedKeyShare", false, func(c *SessionContext, s *Snapshot) (err error) {
		s.NegotiatedKeyShare, err = c.NegotiatedKeyShare()
		return
	}},
	{"UserID", false, func(c *SessionContext, s *Snapshot) (err error) {
		s.UserID, err = c.UserID()
		return
	}},
	{"Flags", false, func(c *SessionContext, s *Snapshot) (err error) {
		s.Flags, err = c.Flags()
		return
	}},
	{"Certificate", true, func(c *SessionContext, s *Snapshot) (err error) {
		s.Certificate, err = c.Certificate()
		return
	}},
}

// Snapshot reads every query attribute, and the certificate when withCert is
// set. Decode errors are attribute-local and do not stop the other reads. A
// failure to load raw state is recorded for the remaining attributes without
// further control calls.
func (c *SessionContext) Snapshot(withCert bool) *Snapshot {
	s := &Snapshot{FD: c.fd, Errors: make(map[string]error)}

	var fatal error
	for _, f := range snapshotFields {
		if f.cert && !withCert {
			continue
		}
		if fatal != nil {
			s.Errors[f.name] = fatal
			continue
		}
		if err := f.read(c, s); err != nil {
			s.Errors[f.name] = err
			if isLoadError(err) {
				fatal = err
			}
		}
	}
	return s
}

// isLoadError returns true for errors that leave no raw state to decode.
func isLoadError(err error) bool {
	return errors.Is(err, ttls.ErrControlCall) ||
		errors.Is(err, ttls.ErrUnsupported) ||
		errors.Is(err, ErrResourceExhausted) ||
		errors.Is(err, ErrClosed)
}
