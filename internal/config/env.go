package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// EnvPrefix prefixes the variables overriding config keys, upper cased with
// dots replaced by underscores: MEDRESERVE_API_BASEURL overrides api.baseURL.
const EnvPrefix = "MEDRESERVE"

// Millisecond variables take precedence over the inactivity durations.
const (
	EnvInactivityTimeoutMS = "MEDRESERVE_INACTIVITY_TIMEOUT_MS"
	EnvInactivityWarningMS = "MEDRESERVE_INACTIVITY_WARNING_MS"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// EnvDefaults returns the keys that can be overridden from the environment,
// with their default values. Viper only consults the environment for keys
// it already knows, so the loader has to be seeded with them.
func EnvDefaults() map[string]any {
	return map[string]any{
		"api.baseurl":                   "http://localhost:8080",
		"api.timeout":                   "30s",
		"api.uploadsperminute":          10,
		"inactivity.timeout":            "5m",
		"inactivity.warninglead":        "60s",
		"inactivity.rescheduleinterval": "1s",
		"poll.interval":                 "60s",
		"sessionstore.type":             SessionStoreMemory,
		"sessionstore.prefix":           "medreserve",
	}
}

// ApplyMillisecondEnv applies the *_MS variables, which carry plain
// millisecond integers the duration decoder cannot parse.
func (c *Config) ApplyMillisecondEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	targets := []struct {
		key string
		dst *time.Duration
	}{
		{EnvInactivityTimeoutMS, &c.Inactivity.Timeout},
		{EnvInactivityWarningMS, &c.Inactivity.WarningLead},
	}

	var errs []error
	for _, t := range targets {
		v, ok := lookup(t.key)
		if !ok || v == "" {
			continue
		}

		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: parsing milliseconds %q: %w", t.key, v, err))
			continue
		}

		*t.dst = time.Duration(ms) * time.Millisecond
	}

	return errors.Join(errs...)
}
