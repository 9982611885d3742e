package config

import "fmt"

// ConfigError reports missing or invalid local configuration. It is fatal:
// the bot cannot start without valid credentials.
type ConfigError struct {
	Field string
	Path  string
	Err   error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("config %s (%s): %v", e.Field, e.Path, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("config %s: %v", e.Field, e.Err)
	case e.Path != "":
		return fmt.Sprintf("config %s (%s) is invalid", e.Field, e.Path)
	}
	return fmt.Sprintf("config %s is invalid", e.Field)
}

func (e *ConfigError) Unwrap() error { return e.Err }
