// Package attls exposes the TLS session attributes of sockets protected by
// z/OS Application Transparent TLS (AT-TLS).
//
// A Manager owns one SessionContext per socket descriptor. Each context
// loads raw session state lazily with the ttls control call, decodes the
// binary fields into typed values and caches them:
//
//	m, err := attls.NewManager(attls.ManagerConfig{})
//	ctx, err := m.Context(fd)
//	proto, err := ctx.Protocol()   // one control call
//	conn, err := ctx.StatConn()    // served from the same call
//	cert, err := ctx.Certificate() // second call, with the certificate
//
// # State
//
// A context is Empty, QueryLoaded or QueryAndCertLoaded. Commands such as
// ResetCipher and Clean return it to Empty; a failed control call does too.
//
// # Errors
//
// Decode failures (*UnknownCodeError, *TextConversionError) affect only the
// attribute being read. Control call failures are *ttls.ControlCallError.
// Buffer allocation beyond the manager's budget is *ResourceExhaustionError.
package attls
