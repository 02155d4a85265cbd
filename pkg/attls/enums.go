package attls

import "crypto/tls"

// StatPolicy is the AT-TLS policy status of a connection.
type StatPolicy uint8

const (
	// StatPolicyOff means AT-TLS is not enabled for the stack.
	StatPolicyOff StatPolicy = 1
	// StatPolicyNoPolicy means no policy rule matched the connection.
	StatPolicyNoPolicy StatPolicy = 2
	// StatPolicyNotEnabled means the matching rule does not enable AT-TLS.
	StatPolicyNotEnabled StatPolicy = 3
	// StatPolicyEnabled means AT-TLS is enabled for the connection.
	StatPolicyEnabled StatPolicy = 4
	// StatPolicyApplControlled means the application controls the TLS session.
	StatPolicyApplControlled StatPolicy = 5
)

// StatPolicyValues returns every defined StatPolicy.
func StatPolicyValues() []StatPolicy {
	return []StatPolicy{
		StatPolicyOff,
		StatPolicyNoPolicy,
		StatPolicyNotEnabled,
		StatPolicyEnabled,
		StatPolicyApplControlled,
	}
}

// Code returns the wire code.
func (p StatPolicy) Code() uint8 { return uint8(p) }

// String returns the string representation of the policy status.
func (p StatPolicy) String() string {
	switch p {
	case StatPolicyOff:
		return "Off"
	case StatPolicyNoPolicy:
		return "NoPolicy"
	case StatPolicyNotEnabled:
		return "NotEnabled"
	case StatPolicyEnabled:
		return "Enabled"
	case StatPolicyApplControlled:
		return "ApplControlled"
	default:
		return "Unknown"
	}
}

// IsValid returns true if this is a defined policy status.
func (p StatPolicy) IsValid() bool {
	return p >= StatPolicyOff && p <= StatPolicyApplControlled
}

// StatConn is the TLS state of a connection.
type StatConn uint8

const (
	StatConnNotSecure           StatConn = 1
	StatConnHandshakeInProgress StatConn = 2
	StatConnSecure              StatConn = 3
)

// StatConnValues returns every defined StatConn.
func StatConnValues() []StatConn {
	return []StatConn{StatConnNotSecure, StatConnHandshakeInProgress, StatConnSecure}
}

// Code returns the wire code.
func (c StatConn) Code() uint8 { return uint8(c) }

func (c StatConn) String() string {
	switch c {
	case StatConnNotSecure:
		return "NotSecure"
	case StatConnHandshakeInProgress:
		return "HandshakeInProgress"
	case StatConnSecure:
		return "Secure"
	default:
		return "Unknown"
	}
}

// IsValid returns true if this is a defined connection status.
func (c StatConn) IsValid() bool {
	return c >= StatConnNotSecure && c <= StatConnSecure
}

// SecurityType is the TLS role and client authentication mode of a connection.
type SecurityType uint8

const (
	// SecurityTypeUnknown is reported when the connection is not secure.
	SecurityTypeUnknown SecurityType = 0
	// SecurityTypeClient is a TLS client.
	SecurityTypeClient SecurityType = 1
	// SecurityTypeServer is a TLS server without client authentication.
	SecurityTypeServer SecurityType = 2
	// SecurityTypeServerPassThru requests a client certificate but does not validate it.
	SecurityTypeServerPassThru SecurityType = 3
	// SecurityTypeServerFull validates a client certificate if one is sent.
	SecurityTypeServerFull SecurityType = 4
	// SecurityTypeServerRequired requires a valid client certificate.
	SecurityTypeServerRequired SecurityType = 5
	// SecurityTypeServerSAFCheck requires a valid client certificate mapped to a user ID.
	SecurityTypeServerSAFCheck SecurityType = 6
)

// SecurityTypeValues returns every defined SecurityType.
func SecurityTypeValues() []SecurityType {
	return []SecurityType{
		SecurityTypeUnknown,
		SecurityTypeClient,
		SecurityTypeServer,
		SecurityTypeServerPassThru,
		SecurityTypeServerFull,
		SecurityTypeServerRequired,
		SecurityTypeServerSAFCheck,
	}
}

// Code returns the wire code.
func (s SecurityType) Code() uint8 { return uint8(s) }

func (s SecurityType) String() string {
	switch s {
	case SecurityTypeUnknown:
		return "Unknown"
	case SecurityTypeClient:
		return "Client"
	case SecurityTypeServer:
		return "Server"
	case SecurityTypeServerPassThru:
		return "ServerPassThru"
	case SecurityTypeServerFull:
		return "ServerFull"
	case SecurityTypeServerRequired:
		return "ServerRequired"
	case SecurityTypeServerSAFCheck:
		return "ServerSAFCheck"
	default:
		return "Unknown"
	}
}

// IsValid returns true if this is a defined security type.
func (s SecurityType) IsValid() bool {
	return s <= SecurityTypeServerSAFCheck
}

// IsServer returns true for the server security types.
func (s SecurityType) IsServer() bool {
	return s >= SecurityTypeServer && s <= SecurityTypeServerSAFCheck
}

// Fips140 is the FIPS 140 mode of a connection.
type Fips140 uint8

const (
	Fips140Off    Fips140 = 0
	Fips140On     Fips140 = 1
	Fips140Level1 Fips140 = 2
	Fips140Level2 Fips140 = 3
	Fips140Level3 Fips140 = 4
)

// Fips140Values returns every defined Fips140.
func Fips140Values() []Fips140 {
	return []Fips140{Fips140Off, Fips140On, Fips140Level1, Fips140Level2, Fips140Level3}
}

// Code returns the wire code.
func (f Fips140) Code() uint8 { return uint8(f) }

func (f Fips140) String() string {
	switch f {
	case Fips140Off:
		return "Off"
	case Fips140On:
		return "On"
	case Fips140Level1:
		return "Level1"
	case Fips140Level2:
		return "Level2"
	case Fips140Level3:
		return "Level3"
	default:
		return "Unknown"
	}
}

// IsValid returns true if this is a defined FIPS 140 mode.
func (f Fips140) IsValid() bool {
	return f <= Fips140Level3
}

// Protocol is the negotiated SSL/TLS protocol. Its wire form is a
// (version, modifier) byte pair, see Version and Mod.
type Protocol uint8

const (
	ProtocolNonSecure Protocol = iota
	ProtocolSSLv2
	ProtocolSSLv3
	ProtocolTLSv1
	ProtocolTLSv1_1
	ProtocolTLSv1_2
	ProtocolTLSv1_3
)

// protocolCodes holds the (version, modifier) pair per Protocol.
var protocolCodes = [...][2]uint8{
	ProtocolNonSecure: {0, 0},
	ProtocolSSLv2:     {2, 0},
	ProtocolSSLv3:     {3, 0},
	ProtocolTLSv1:     {3, 1},
	ProtocolTLSv1_1:   {3, 2},
	ProtocolTLSv1_2:   {3, 3},
	ProtocolTLSv1_3:   {3, 4},
}

// ProtocolValues returns every defined Protocol.
func ProtocolValues() []Protocol {
	return []Protocol{
		ProtocolNonSecure,
		ProtocolSSLv2,
		ProtocolSSLv3,
		ProtocolTLSv1,
		ProtocolTLSv1_1,
		ProtocolTLSv1_2,
		ProtocolTLSv1_3,
	}
}

// Version returns the protocol version byte.
func (p Protocol) Version() uint8 {
	if !p.IsValid() {
		return 0
	}
	return protocolCodes[p][0]
}

// Mod returns the protocol modifier byte.
func (p Protocol) Mod() uint8 {
	if !p.IsValid() {
		return 0
	}
	return protocolCodes[p][1]
}

// TLSVersion returns the matching crypto/tls version constant, or 0 for
// protocols crypto/tls does not name.
func (p Protocol) TLSVersion() uint16 {
	switch p {
	case ProtocolSSLv3:
		return tls.VersionSSL30
	case ProtocolTLSv1:
		return tls.VersionTLS10
	case ProtocolTLSv1_1:
		return tls.VersionTLS11
	case ProtocolTLSv1_2:
		return tls.VersionTLS12
	case ProtocolTLSv1_3:
		return tls.VersionTLS13
	default:
		return 0
	}
}

func (p Protocol) String() string {
	switch p {
	case ProtocolNonSecure:
		return "NonSecure"
	case ProtocolSSLv2:
		return "SSLv2"
	case ProtocolSSLv3:
		return "SSLv3"
	case ProtocolTLSv1:
		return "TLSv1"
	case ProtocolTLSv1_1:
		return "TLSv1.1"
	case ProtocolTLSv1_2:
		return "TLSv1.2"
	case ProtocolTLSv1_3:
		return "TLSv1.3"
	default:
		return "Unknown"
	}
}

// IsValid returns true if this is a defined protocol.
func (p Protocol) IsValid() bool {
	return p <= ProtocolTLSv1_3
}
