package schema

import (
	"errors"
	"fmt"
)

// Sentinel causes for configuration errors. Match with errors.Is.
var (
	ErrUnknownComponent = errors.New("unknown component")
	ErrUnknownField     = errors.New("unknown field")
	ErrUnknownKind      = errors.New("unknown field semantics")
	ErrIdentifier       = errors.New("invalid identifier declaration")
	ErrDuplicate        = errors.New("duplicate declaration")
	ErrKindMismatch     = errors.New("value does not match field semantics")
	ErrScenarioCount    = errors.New("scenario count mismatch")
	ErrMissingID        = errors.New("missing identifier")
	ErrInvalidRule      = errors.New("invalid rule configuration")
)

// ConfigError reports caller misuse: an unknown component or field, an
// invalid schema declaration, or a structurally inconsistent batch.
// Configuration errors are fatal and abort validation.
type ConfigError struct {
	Component string
	Field     string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	var loc string
	switch {
	case e.Component != "" && e.Field != "":
		loc = e.Component + "." + e.Field
	case e.Component != "":
		loc = e.Component
	}

	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	if loc == "" {
		return "config: " + msg
	}
	return fmt.Sprintf("config: %s: %s", loc, msg)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Errorf builds a ConfigError with the given cause and a formatted message.
func Errorf(cause error, component, field, format string, args ...any) *ConfigError {
	return &ConfigError{
		Component: component,
		Field:     field,
		Message:   fmt.Sprintf(format, args...),
		Err:       cause,
	}
}
