package qrs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptarmiganlabs/ctrlq/config"
	"github.com/ptarmiganlabs/ctrlq/errors"
)

func jwtConfig() *config.SenseConfig {
	return &config.SenseConfig{
		Host:       "sense.example.com",
		RepoPort:   config.DefaultRepoPort,
		EnginePort: config.DefaultEnginePort,
		Secure:     true,
		AuthType:   "jwt",
		JWT:        "token",
	}
}

func TestRepoBaseURL(t *testing.T) {
	s, err := NewSession(jwtConfig())
	require.NoError(t, err)
	assert.Equal(t, "https://sense.example.com:4242", s.RepoBaseURL())
}

func TestRepoBaseURLVirtualProxy(t *testing.T) {
	cfg := jwtConfig()
	cfg.VirtualProxy = "/jwt/" // surrounding slashes are tolerated
	s, err := NewSession(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://sense.example.com:4242/jwt", s.RepoBaseURL())
}

func TestRepoBaseURLInsecureKeepsTLS(t *testing.T) {
	cfg := jwtConfig()
	cfg.Secure = false
	s, err := NewSession(cfg)
	require.NoError(t, err)
	// secure=false only skips certificate verification; QSEoW serves TLS
	// on 4242 regardless
	assert.Equal(t, "https://sense.example.com:4242", s.RepoBaseURL())
	assert.True(t, s.TLSConfig().InsecureSkipVerify)
}

func TestEngineURL(t *testing.T) {
	s, err := NewSession(jwtConfig())
	require.NoError(t, err)
	assert.Equal(t, "wss://sense.example.com:4747/app/engineData", s.EngineURL(""))
	assert.Equal(t, "wss://sense.example.com:4747/app/abc", s.EngineURL("abc"))

	cfg := jwtConfig()
	cfg.Secure = false
	cfg.VirtualProxy = "jwt"
	s, err = NewSession(cfg)
	require.NoError(t, err)
	assert.Equal(t, "wss://sense.example.com:4747/jwt/app/abc", s.EngineURL("abc"))
}

func TestNewSessionCertFilesMissing(t *testing.T) {
	cfg := jwtConfig()
	cfg.AuthType = "cert"
	cfg.Cert = config.CertConfig{
		CertFile: "/nonexistent/client.pem",
		KeyFile:  "/nonexistent/client_key.pem",
		RootFile: "/nonexistent/root.pem",
	}
	_, err := NewSession(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestNewXrfkey(t *testing.T) {
	k := NewXrfkey()
	assert.Len(t, k, XrfkeyLength)
	for _, c := range k {
		assert.True(t, strings.ContainsRune(xrfkeyAlphabet, c), "unexpected character %q", c)
	}
	assert.NotEqual(t, k, NewXrfkey())
}
