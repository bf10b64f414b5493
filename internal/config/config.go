// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

const (
	SessionStoreMemory = "memory"
	SessionStoreValKey = "valkey"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	API          API          `yaml:"api"`
	Inactivity   Inactivity   `yaml:"inactivity"`
	Poll         Poll         `yaml:"poll"`
	SessionStore SessionStore `yaml:"sessionStore"`
	ValKey       ValKey       `yaml:"valkey"`
}

type API struct {
	BaseURL string        `yaml:"baseURL" default:"http://localhost:8080" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
	// UploadsPerMinute is the client side report upload quota, 0 disables it.
	UploadsPerMinute int `yaml:"uploadsPerMinute" default:"10" validate:"gte=0"`
}

type Inactivity struct {
	Timeout            time.Duration `yaml:"timeout" default:"5m" validate:"gt=0"`
	WarningLead        time.Duration `yaml:"warningLead" default:"60s" validate:"gte=0"`
	RescheduleInterval time.Duration `yaml:"rescheduleInterval" default:"1s" validate:"gte=0"`
}

type Poll struct {
	Interval time.Duration `yaml:"interval" default:"60s" validate:"gt=0"`
}

type SessionStore struct {
	Type   string `yaml:"type" default:"memory" validate:"oneof=memory valkey"`
	Prefix string `yaml:"prefix" default:"medreserve"`
}

type ValKey struct {
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
}

// Validate checks the client sections and the rules spanning several
// fields.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	for _, section := range []any{c.API, c.Inactivity, c.Poll, c.SessionStore} {
		if err := v.Struct(section); err != nil {
			return formatValidationErrors(err)
		}
	}

	if c.SessionStore.Type == SessionStoreValKey && c.ValKey.Host.Source == "" {
		return errors.New("valkey.host: required when sessionStore.type is valkey")
	}

	return nil
}

func formatValidationErrors(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validating config: %w", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
	}

	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
