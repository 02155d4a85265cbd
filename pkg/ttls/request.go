// Package ttls implements the AT-TLS control call (SIOCTTLSCTL) used to query
// and steer the TLS state of a socket whose TLS is terminated by the z/OS
// Communications Server.
//
// The package owns the wire format of the fixed-size control block and the
// dispatcher that issues exactly one blocking call per request. It applies no
// caching or decoding policy; see pkg/attls for the session context built on
// top of it.
//
// A call is either a query (QueryOnly, optionally with ReturnCertificate) or
// exactly one command:
//
//	QueryOnly                    read policy/connection state
//	QueryOnly|ReturnCertificate  also copy the partner certificate
//	InitConnection ...           one of the seven commands, no output buffer
package ttls

import "strings"

// Request is the request-type bit set of a control call.
type Request uint16

const (
	// InitConnection starts the TLS handshake on an application-controlled connection.
	InitConnection Request = 0x0080

	// ResetSession resets the session ID for the connection.
	ResetSession Request = 0x0040

	// ResetCipher renegotiates the cipher keys.
	ResetCipher Request = 0x0020

	// StopConnection stops TLS on the connection.
	StopConnection Request = 0x0010

	// AllowHandshakeTimeout lets a pending handshake time out.
	AllowHandshakeTimeout Request = 0x0008

	// QueryOnly returns the connection's policy and security state.
	QueryOnly Request = 0x0004

	// ReturnCertificate copies the partner certificate into the output buffer.
	// Only valid together with QueryOnly.
	ReturnCertificate Request = 0x0002

	// ResetWriteCipher updates the write keys (TLSv1.3 or later).
	ResetWriteCipher Request = 0x0100

	// SendSessionTicket sends a session ticket to the client (TLSv1.3 or later).
	SendSessionTicket Request = 0x0200
)

// commandMask covers every command bit.
const commandMask = InitConnection | ResetSession | ResetCipher | StopConnection |
	AllowHandshakeTimeout | ResetWriteCipher | SendSessionTicket

// Commands lists the command requests in a stable order.
var Commands = []Request{
	InitConnection,
	ResetSession,
	ResetCipher,
	StopConnection,
	AllowHandshakeTimeout,
	ResetWriteCipher,
	SendSessionTicket,
}

var requestNames = []struct {
	r    Request
	name string
}{
	{QueryOnly, "QueryOnly"},
	{ReturnCertificate, "ReturnCertificate"},
	{InitConnection, "InitConnection"},
	{ResetSession, "ResetSession"},
	{ResetCipher, "ResetCipher"},
	{StopConnection, "StopConnection"},
	{AllowHandshakeTimeout, "AllowHandshakeTimeout"},
	{ResetWriteCipher, "ResetWriteCipher"},
	{SendSessionTicket, "SendSessionTicket"},
}

// String returns the set flags joined by "|".
func (r Request) String() string {
	if r == 0 {
		return "None"
	}
	var parts []string
	rest := r
	for _, n := range requestNames {
		if r&n.r != 0 {
			parts = append(parts, n.name)
			rest &^= n.r
		}
	}
	if rest != 0 {
		parts = append(parts, "Unknown")
	}
	return strings.Join(parts, "|")
}

// IsQuery returns true if the request asks for query data.
func (r Request) IsQuery() bool {
	return r&QueryOnly != 0
}

// WantsCertificate returns true if the request asks for the partner certificate.
func (r Request) WantsCertificate() bool {
	return r&ReturnCertificate != 0
}

// IsCommand returns true if the request is exactly one command.
func (r Request) IsCommand() bool {
	c := r & commandMask
	return c != 0 && r == c && c&(c-1) == 0
}

// IsValid returns true if the request is a query (optionally with
// ReturnCertificate) or exactly one command. Commands and QueryOnly are
// mutually exclusive.
func (r Request) IsValid() bool {
	switch r {
	case QueryOnly, QueryOnly | ReturnCertificate:
		return true
	}
	return r.IsCommand()
}
