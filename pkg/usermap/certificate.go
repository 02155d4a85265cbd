package usermap

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// ParseCertificate parses a DER or PEM encoded certificate and returns it
// with its DER bytes.
func ParseCertificate(data []byte) (*x509.Certificate, []byte, error) {
	der := data
	if block, _ := pem.Decode(data); block != nil {
		if block.Type != "CERTIFICATE" {
			return nil, nil, fmt.Errorf("%w: PEM block %q", ErrInvalidCertificate, block.Type)
		}
		der = block.Bytes
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	return cert, der, nil
}

// DistinguishedNames returns the subject and issuer distinguished names of a
// DER or PEM certificate, in RFC 2253 form, for MapDistinguishedName.
func DistinguishedNames(data []byte) (subject, issuer string, err error) {
	cert, _, err := ParseCertificate(data)
	if err != nil {
		return "", "", err
	}
	return cert.Subject.String(), cert.Issuer.String(), nil
}
