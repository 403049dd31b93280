package config

import (
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/ptarmiganlabs/ctrlq/errors"
)

var validate = validator.New()

// Validate checks the configuration for problems that must stop the run
// before any network I/O happens.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return errors.ConfigurationErrorf("invalid value for %s (%s)", f.Namespace(), f.Tag())
		}
		return errors.Wrap(errors.ErrConfiguration, err.Error())
	}

	switch cfg.Sense.AuthType {
	case "cert":
		for _, f := range []string{cfg.Sense.Cert.CertFile, cfg.Sense.Cert.KeyFile, cfg.Sense.Cert.RootFile} {
			if _, err := os.Stat(f); err != nil {
				return errors.ConfigurationErrorf("certificate file %q not readable: %v", f, err)
			}
		}
		if cfg.Sense.JWT != "" {
			return errors.ConfigurationErrorf("auth_type=cert and a JWT are mutually exclusive")
		}
	case "jwt":
		if cfg.Sense.JWT == "" {
			return errors.ConfigurationErrorf("auth_type=jwt requires a bearer token")
		}
	}

	return nil
}
