package deployconfig

import (
	"errors"
	"strings"
)

// ErrConfigInvalid marks every failure to produce a usable DeployConfig.
var ErrConfigInvalid = errors.New("deploy config invalid")

// ConfigError describes why a layer or the merged result was rejected.
// Keys lists the offending file keys when the failure is tied to them.
type ConfigError struct {
	Reason string
	Keys   []string
	Err    error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("invalid deploy config: ")
	b.WriteString(e.Reason)
	if len(e.Keys) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Keys, ", "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfigInvalid }

func invalid(reason string, keys ...string) error {
	return &ConfigError{Reason: reason, Keys: keys}
}
