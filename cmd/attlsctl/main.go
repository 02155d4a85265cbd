// attlsctl inspects and steers AT-TLS protected sockets.
//
// Usage:
//
//	attlsctl query --fd N [--cert] [--format text|json]
//	attlsctl query --dial host:port [--cert]
//	attlsctl control reset-cipher --fd N
//	attlsctl usermap cert FILE [--by-dn --registry NAME]
//	attlsctl usermap dn DN REGISTRY
//	attlsctl version
//
// Global options:
//
//	--config                   YAML configuration file
//	--log-level                disabled, error, warn, info, debug or trace
//	--always-load-certificate  fetch the partner certificate with every query
//	--cert-buffer-size         certificate buffer size in bytes
//
// Configuration values may reference environment variables as ${NAME}.
package main

import (
	"fmt"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	a := newApp(os.Stdout, os.Stderr)
	cmd := a.rootCommand()
	cmd.SetArgs(args)
	return cmd.Execute()
}
