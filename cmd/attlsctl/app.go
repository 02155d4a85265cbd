package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/backkem/attls/pkg/attls"
	"github.com/backkem/attls/pkg/inbound"
	"github.com/backkem/attls/pkg/ttls"
	"github.com/backkem/attls/pkg/usermap"
	"github.com/pion/logging"
	"github.com/spf13/cobra"
)

const dialTimeout = 10 * time.Second

var errTarget = errors.New("exactly one of --fd or --dial is required")

// app holds the state shared by all subcommands.
type app struct {
	out    io.Writer
	errOut io.Writer

	configPath  string
	logLevel    string
	alwaysLoad  bool
	certBufSize int

	cfg           *Config
	loggerFactory logging.LoggerFactory

	// Replaceable in tests.
	syscaller   ttls.Syscaller
	checkSocket func(fd int) error
	dial        func(network, address string) (net.Conn, error)
}

func newApp(out, errOut io.Writer) *app {
	return &app{
		out:         out,
		errOut:      errOut,
		checkSocket: checkStreamSocket,
		dial: func(network, address string) (net.Conn, error) {
			return net.DialTimeout(network, address, dialTimeout)
		},
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "attlsctl",
		Short:         "Inspect and control AT-TLS protected sockets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to YAML configuration file")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: disabled, error, warn, info, debug, trace")
	pf.BoolVar(&a.alwaysLoad, "always-load-certificate", false, "fetch the partner certificate with every query")
	pf.IntVar(&a.certBufSize, "cert-buffer-size", 0, "certificate buffer size in bytes")

	root.AddCommand(
		a.queryCommand(),
		a.controlCommand(),
		a.usermapCommand(),
		a.versionCommand(),
	)
	return root
}

// setup loads the configuration and applies flag overrides.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := DefaultConfig()
	if a.configPath != "" {
		var err error
		if cfg, err = LoadConfig(a.configPath); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("always-load-certificate") {
		cfg.Manager.AlwaysLoadCertificate = a.alwaysLoad
	}
	if flags.Changed("cert-buffer-size") {
		cfg.Manager.CertificateBufferSize = a.certBufSize
	}

	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	lf := logging.NewDefaultLoggerFactory()
	lf.Writer = a.errOut
	lf.DefaultLogLevel = level

	a.cfg = cfg
	a.loggerFactory = lf
	return nil
}

func (a *app) newManager() (*attls.Manager, error) {
	t, err := a.cfg.transcoder()
	if err != nil {
		return nil, err
	}
	return attls.NewManager(attls.ManagerConfig{
		Syscaller:             a.syscaller,
		CertificateBufferSize: a.cfg.Manager.CertificateBufferSize,
		MaxBufferBytes:        a.cfg.Manager.MaxBufferBytes,
		AlwaysLoadCertificate: a.cfg.Manager.AlwaysLoadCertificate,
		Transcoder:            t,
		LoggerFactory:         a.loggerFactory,
	})
}

func (a *app) newMapper() (*usermap.Mapper, error) {
	t, err := a.cfg.transcoder()
	if err != nil {
		return nil, err
	}
	backend, err := a.cfg.staticBackend(t)
	if err != nil {
		return nil, err
	}
	return usermap.NewMapper(usermap.MapperConfig{
		Backend:       backend,
		Transcoder:    t,
		LoggerFactory: a.loggerFactory,
	})
}

// target resolves the socket to inspect. The returned closer must be called
// once the socket is no longer needed.
func (a *app) target(fd int, address string) (int, func(), error) {
	if (fd >= 0) == (address != "") {
		return -1, nil, errTarget
	}
	if address == "" {
		if err := a.checkSocket(fd); err != nil {
			return -1, nil, err
		}
		return fd, func() {}, nil
	}

	conn, err := a.dial("tcp", address)
	if err != nil {
		return -1, nil, fmt.Errorf("dial %s: %w", address, err)
	}
	fd, err = inbound.Descriptor(conn)
	if err != nil {
		conn.Close()
		return -1, nil, err
	}
	return fd, func() { conn.Close() }, nil
}

func (a *app) queryCommand() *cobra.Command {
	var (
		fd       int
		address  string
		withCert bool
		format   string
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print the AT-TLS attributes of a socket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("format") {
				format = a.cfg.Output.Format
			}
			if format != formatText && format != formatJSON {
				return fmt.Errorf("unknown format %q", format)
			}

			sock, done, err := a.target(fd, address)
			if err != nil {
				return err
			}
			defer done()

			m, err := a.newManager()
			if err != nil {
				return err
			}
			defer m.Close()

			sc, err := m.Context(sock)
			if err != nil {
				return err
			}
			snap := sc.Snapshot(withCert || sc.AlwaysLoadCertificate())

			if err := writeSnapshot(a.out, format, snap); err != nil {
				return err
			}
			if err := snap.Err(); err != nil {
				return fmt.Errorf("query fd %d: %w", sock, err)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&fd, "fd", -1, "socket descriptor inherited by this process")
	f.StringVar(&address, "dial", "", "connect to host:port and query the outbound socket")
	f.BoolVar(&withCert, "cert", false, "also fetch the partner certificate")
	f.StringVar(&format, "format", formatText, "output format: text or json")
	return cmd
}

// commandNames maps command-line names to control commands.
var commandNames = map[string]ttls.Request{
	"init":                    ttls.InitConnection,
	"reset-session":           ttls.ResetSession,
	"reset-cipher":            ttls.ResetCipher,
	"stop":                    ttls.StopConnection,
	"allow-handshake-timeout": ttls.AllowHandshakeTimeout,
	"reset-write-cipher":      ttls.ResetWriteCipher,
	"send-session-ticket":     ttls.SendSessionTicket,
}

func (a *app) controlCommand() *cobra.Command {
	var (
		fd      int
		address string
	)
	valid := make([]string, 0, len(commandNames))
	for name := range commandNames {
		valid = append(valid, name)
	}

	cmd := &cobra.Command{
		Use:       "control COMMAND",
		Short:     "Issue an AT-TLS command on a socket",
		Long:      "Issue an AT-TLS command on a socket. COMMAND is one of: init, reset-session, reset-cipher, stop, allow-handshake-timeout, reset-write-cipher, send-session-ticket.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: valid,
		RunE: func(_ *cobra.Command, args []string) error {
			req, ok := commandNames[args[0]]
			if !ok {
				return fmt.Errorf("unknown command %q", args[0])
			}

			sock, done, err := a.target(fd, address)
			if err != nil {
				return err
			}
			defer done()

			m, err := a.newManager()
			if err != nil {
				return err
			}
			defer m.Close()

			sc, err := m.Context(sock)
			if err != nil {
				return err
			}
			if err := sc.Command(req); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: ok\n", req)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&fd, "fd", -1, "socket descriptor inherited by this process")
	f.StringVar(&address, "dial", "", "connect to host:port and steer the outbound socket")
	return cmd
}

func (a *app) usermapCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usermap",
		Short: "Map certificates and distinguished names to user IDs",
	}

	var (
		byDN     bool
		registry string
	)
	certCmd := &cobra.Command{
		Use:   "cert FILE",
		Short: "Map a PEM or DER certificate to a user ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := readFile(args[0])
			if err != nil {
				return err
			}
			m, err := a.newMapper()
			if err != nil {
				return err
			}

			var resp usermap.Response
			if byDN {
				subject, _, err := usermap.DistinguishedNames(data)
				if err != nil {
					return err
				}
				resp, err = m.MapDistinguishedName(subject, registry)
				if err != nil {
					return err
				}
			} else {
				_, der, err := usermap.ParseCertificate(data)
				if err != nil {
					return err
				}
				if resp, err = m.MapCertificate(der); err != nil {
					return err
				}
			}
			writeMapping(a.out, resp)
			return nil
		},
	}
	certCmd.Flags().BoolVar(&byDN, "by-dn", false, "map the certificate's subject name instead of the certificate")
	certCmd.Flags().StringVar(&registry, "registry", "", "registry name used with --by-dn")

	dnCmd := &cobra.Command{
		Use:   "dn DN REGISTRY",
		Short: "Map a distinguished name within a registry to a user ID",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			m, err := a.newMapper()
			if err != nil {
				return err
			}
			resp, err := m.MapDistinguishedName(args[0], args[1])
			if err != nil {
				return err
			}
			writeMapping(a.out, resp)
			return nil
		},
	}

	cmd.AddCommand(certCmd, dnCmd)
	return cmd
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprintf(a.out, "attlsctl version %s\n", version)
			return nil
		},
	}
}
