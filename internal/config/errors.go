package config

import (
	"errors"
	"fmt"
)

// ErrInvalid is wrapped by every ConfigError.
var ErrInvalid = errors.New("invalid configuration")

// ConfigError reports one rejected setting.
type ConfigError struct { //nolint:revive // config.ConfigError reads better at call sites than config.Error
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s = %v: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalid }
