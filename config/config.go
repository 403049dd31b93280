// Package config holds the Ctrl-Q runtime configuration.
//
// Configuration is layered the usual way: built-in defaults, then a config
// file, then CTRLQ_* environment variables, then explicit CLI flags. Flags
// strictly override environment variables; cobra flags are bound into the
// shared viper instance by the command layer.
package config

// Config represents the full Ctrl-Q configuration
type Config struct {
	Sense  SenseConfig  `mapstructure:"sense"`
	Import ImportConfig `mapstructure:"import"`
	Server ServerConfig `mapstructure:"server"`
}

// SenseConfig describes the target QSEoW cluster and how to authenticate
// against it.
type SenseConfig struct {
	Host          string `mapstructure:"host" validate:"required,hostname|ip"`
	EnginePort    int    `mapstructure:"engine_port" validate:"gt=0,lte=65535"`
	RepoPort      int    `mapstructure:"repo_port" validate:"gt=0,lte=65535"`
	VirtualProxy  string `mapstructure:"virtual_proxy"`
	Secure        bool   `mapstructure:"secure"`
	SchemaVersion string `mapstructure:"schema_version"`

	AuthType string     `mapstructure:"auth_type" validate:"oneof=cert jwt"`
	Cert     CertConfig `mapstructure:"cert"`
	JWT      string     `mapstructure:"jwt"`

	// Identity sent in the X-Qlik-User header for certificate auth
	UserDirectory string `mapstructure:"user_directory"`
	UserID        string `mapstructure:"user_id"`

	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" validate:"gte=0"`
}

// CertConfig is the client certificate triple used for mutual TLS
type CertConfig struct {
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
	RootFile string `mapstructure:"root_file"`
}

// ImportConfig carries import-run tunables
type ImportConfig struct {
	// Milliseconds to sleep between consecutive QVF uploads. The QRS app
	// upload endpoint throttles aggressively; see the transport retry
	// policy for how hard failures are handled.
	SleepAppUploadMs int `mapstructure:"sleep_app_upload_ms" validate:"gte=0"`

	// Retain only rows with Task counter <= N. 0 = no limit.
	LimitImportCount int `mapstructure:"limit_import_count" validate:"gte=0"`
}

// ServerConfig configures the task-network visualization server
type ServerConfig struct {
	Port           int      `mapstructure:"port" validate:"gt=0,lte=65535"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Default ports for certificate auth against a QSEoW cluster
const (
	DefaultEnginePort = 4747
	DefaultRepoPort   = 4242
	DefaultServerPort = 8090
)
