package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/ptarmiganlabs/ctrlq/errors"
)

var viperInstance *viper.Viper

// GetViper returns the shared viper instance, creating it on first use.
// The command layer binds cobra flags into this instance so that explicit
// flags take precedence over environment variables and file values.
func GetViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	v.SetEnvPrefix("CTRLQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	// Optional config file next to the working directory; absence is fine
	v.SetConfigName("ctrl-q")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// File exists but is unreadable or malformed; surface later
			// through Load so commands fail before any network I/O
			v.Set("_config_file_error", err.Error())
		}
	}

	viperInstance = v
	return v
}

// Load unmarshals and validates the effective configuration.
func Load() (*Config, error) {
	v := GetViper()

	if msg := v.GetString("_config_file_error"); msg != "" {
		return nil, errors.ConfigurationErrorf("config file: %s", msg)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrConfiguration, err.Error())
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Reset clears the cached viper instance (useful for testing)
func Reset() {
	viperInstance = nil
}
