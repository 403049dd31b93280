package qrs

import (
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ptarmiganlabs/ctrlq/config"
	"github.com/ptarmiganlabs/ctrlq/errors"
)

// Session holds the connection parameters shared by every Repository call
// and by the engine websocket dialer. It is immutable after construction.
type Session struct {
	Host          string
	RepoPort      int
	EnginePort    int
	VirtualProxy  string
	Secure        bool
	SchemaVersion string

	AuthType      string // "cert" or "jwt"
	JWT           string
	UserDirectory string
	UserID        string

	tlsConfig *tls.Config
}

// NewSession builds a session from the validated configuration, loading
// certificate material up front so that auth problems surface before any
// network I/O.
func NewSession(cfg *config.SenseConfig) (*Session, error) {
	s := &Session{
		Host:          cfg.Host,
		RepoPort:      cfg.RepoPort,
		EnginePort:    cfg.EnginePort,
		VirtualProxy:  strings.Trim(cfg.VirtualProxy, "/"),
		Secure:        cfg.Secure,
		SchemaVersion: cfg.SchemaVersion,
		AuthType:      cfg.AuthType,
		JWT:           cfg.JWT,
		UserDirectory: cfg.UserDirectory,
		UserID:        cfg.UserID,
	}

	tlsCfg := &tls.Config{
		// secure=false disables server certificate verification, matching
		// self-signed QSEoW default installs
		InsecureSkipVerify: !cfg.Secure, //nolint:gosec
	}

	if cfg.AuthType == "cert" {
		cert, err := tls.LoadX509KeyPair(cfg.Cert.CertFile, cfg.Cert.KeyFile)
		if err != nil {
			return nil, errors.Wrap(errors.ErrConfiguration, err.Error())
		}
		tlsCfg.Certificates = []tls.Certificate{cert}

		rootPEM, err := os.ReadFile(cfg.Cert.RootFile)
		if err != nil {
			return nil, errors.Wrap(errors.ErrConfiguration, err.Error())
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(rootPEM) {
			return nil, errors.ConfigurationErrorf("root certificate %q contains no usable certificates", cfg.Cert.RootFile)
		}
		tlsCfg.RootCAs = pool
	}

	s.tlsConfig = tlsCfg
	return s, nil
}

// TLSConfig returns the TLS configuration for REST and websocket dialers.
func (s *Session) TLSConfig() *tls.Config {
	return s.tlsConfig
}

// RepoBaseURL is the Repository endpoint root, including the virtual proxy
// prefix when one is configured. QSEoW serves TLS on the repository port
// even with self-signed certificates, so the scheme is always https;
// secure=false only relaxes certificate verification.
func (s *Session) RepoBaseURL() string {
	if s.VirtualProxy != "" {
		return fmt.Sprintf("https://%s:%d/%s", s.Host, s.RepoPort, s.VirtualProxy)
	}
	return fmt.Sprintf("https://%s:%d", s.Host, s.RepoPort)
}

// EngineURL is the engine websocket endpoint for a given app. Always wss,
// for the same reason RepoBaseURL is always https.
func (s *Session) EngineURL(appID string) string {
	base := fmt.Sprintf("wss://%s:%d", s.Host, s.EnginePort)
	if s.VirtualProxy != "" {
		base = fmt.Sprintf("%s/%s", base, s.VirtualProxy)
	}
	if appID == "" {
		return base + "/app/engineData"
	}
	return fmt.Sprintf("%s/app/%s", base, appID)
}

// XrfkeyLength is mandated by the QRS cross-site request forgery check:
// the query parameter and the X-Qlik-Xrfkey header must be equal and
// exactly this long.
const XrfkeyLength = 16

const xrfkeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewXrfkey generates a fresh per-call xrfkey.
func NewXrfkey() string {
	b := make([]byte, XrfkeyLength)
	max := big.NewInt(int64(len(xrfkeyAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken
			panic(err)
		}
		b[i] = xrfkeyAlphabet[n.Int64()]
	}
	return string(b)
}
