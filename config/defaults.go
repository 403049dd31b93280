package config

import "github.com/spf13/viper"

// SetDefaults installs the built-in defaults on a viper instance.
// Every key here is overridable from the config file, CTRLQ_* environment
// variables, and finally explicit CLI flags.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("sense.engine_port", DefaultEnginePort)
	v.SetDefault("sense.repo_port", DefaultRepoPort)
	v.SetDefault("sense.virtual_proxy", "")
	v.SetDefault("sense.secure", true)
	v.SetDefault("sense.schema_version", "12.612.0")
	v.SetDefault("sense.auth_type", "cert")
	v.SetDefault("sense.cert.cert_file", "cert/client.pem")
	v.SetDefault("sense.cert.key_file", "cert/client_key.pem")
	v.SetDefault("sense.cert.root_file", "cert/root.pem")
	v.SetDefault("sense.user_directory", "INTERNAL")
	v.SetDefault("sense.user_id", "sa_repository")
	v.SetDefault("sense.request_timeout_seconds", 90)

	v.SetDefault("import.sleep_app_upload_ms", 1000)
	v.SetDefault("import.limit_import_count", 0)

	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{"*"})
}
