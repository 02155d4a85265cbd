package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/backkem/attls/pkg/attls"
	"github.com/backkem/attls/pkg/usermap"
)

const (
	formatText = "text"
	formatJSON = "json"
)

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// snapshotView is the JSON form of a snapshot. Attributes that failed to
// load are omitted and reported under errors.
type snapshotView struct {
	FD                 int               `json:"fd"`
	StatPolicy         string            `json:"stat_policy,omitempty"`
	StatConn           string            `json:"stat_conn,omitempty"`
	Protocol           string            `json:"protocol,omitempty"`
	SecurityType       string            `json:"security_type,omitempty"`
	Fips140            string            `json:"fips140,omitempty"`
	NegotiatedCipher2  string            `json:"negotiated_cipher2,omitempty"`
	NegotiatedCipher4  string            `json:"negotiated_cipher4,omitempty"`
	NegotiatedKeyShare string            `json:"negotiated_key_share,omitempty"`
	UserID             string            `json:"user_id,omitempty"`
	Flags              *uint8            `json:"flags,omitempty"`
	Certificate        []byte            `json:"certificate,omitempty"`
	CertificateSHA256  string            `json:"certificate_sha256,omitempty"`
	Subject            string            `json:"subject,omitempty"`
	Issuer             string            `json:"issuer,omitempty"`
	Errors             map[string]string `json:"errors,omitempty"`
}

// row is one line of the text output.
type row struct {
	name  string
	value string
}

func snapshotRows(s *attls.Snapshot) []row {
	return []row{
		{"StatPolicy", s.StatPolicy.String()},
		{"StatConn", s.StatConn.String()},
		{"Protocol", s.Protocol.String()},
		{"SecurityType", s.SecurityType.String()},
		{"Fips140", s.Fips140.String()},
		{"NegotiatedCipher2", s.NegotiatedCipher2},
		{"NegotiatedCipher4", s.NegotiatedCipher4},
		{"NegotiatedKeyShare", s.NegotiatedKeyShare},
		{"UserID", s.UserID},
		{"Flags", fmt.Sprintf("0x%02X", s.Flags)},
	}
}

func newSnapshotView(s *attls.Snapshot) snapshotView {
	v := snapshotView{FD: s.FD}
	targets := map[string]*string{
		"StatPolicy":         &v.StatPolicy,
		"StatConn":           &v.StatConn,
		"Protocol":           &v.Protocol,
		"SecurityType":       &v.SecurityType,
		"Fips140":            &v.Fips140,
		"NegotiatedCipher2":  &v.NegotiatedCipher2,
		"NegotiatedCipher4":  &v.NegotiatedCipher4,
		"NegotiatedKeyShare": &v.NegotiatedKeyShare,
		"UserID":             &v.UserID,
	}
	for _, r := range snapshotRows(s) {
		if s.Errors[r.name] != nil {
			continue
		}
		if p, ok := targets[r.name]; ok {
			*p = r.value
		}
	}
	if s.Errors["Flags"] == nil {
		flags := s.Flags
		v.Flags = &flags
	}

	if len(s.Certificate) > 0 {
		sum := sha256.Sum256(s.Certificate)
		v.Certificate = s.Certificate
		v.CertificateSHA256 = hex.EncodeToString(sum[:])
		v.Subject, v.Issuer, _ = usermap.DistinguishedNames(s.Certificate)
	}

	if len(s.Errors) > 0 {
		v.Errors = make(map[string]string, len(s.Errors))
		for name, err := range s.Errors {
			v.Errors[name] = err.Error()
		}
	}
	return v
}

func writeSnapshot(w io.Writer, format string, s *attls.Snapshot) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newSnapshotView(s))
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "FD\t%d\n", s.FD)
	for _, r := range snapshotRows(s) {
		if err := s.Errors[r.name]; err != nil {
			fmt.Fprintf(tw, "%s\terror: %v\n", r.name, err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", r.name, r.value)
	}

	if err := s.Errors["Certificate"]; err != nil {
		fmt.Fprintf(tw, "Certificate\terror: %v\n", err)
	} else if len(s.Certificate) > 0 {
		sum := sha256.Sum256(s.Certificate)
		fmt.Fprintf(tw, "Certificate\t%d bytes sha256=%s\n", len(s.Certificate), hex.EncodeToString(sum[:]))
		if subject, issuer, err := usermap.DistinguishedNames(s.Certificate); err == nil {
			fmt.Fprintf(tw, "Subject\t%s\n", subject)
			fmt.Fprintf(tw, "Issuer\t%s\n", issuer)
		}
	}
	return tw.Flush()
}

func writeMapping(w io.Writer, r usermap.Response) {
	if r.Mapped() {
		fmt.Fprintf(w, "user %s\n", r.UserID)
		return
	}
	fmt.Fprintf(w, "not mapped (rc=%d reason=%d/%d)\n", r.ReturnCode, r.PrimaryReason, r.SecondaryReason)
}
