package models

import "fmt"

// Config_Error means a required key or setting is absent. It is fatal: never
// retried, surfaced verbatim to the caller.
type Config_Error struct {
	Variable string
}

func (e *Config_Error) Error() string {
	return fmt.Sprintf("missing required configuration: %s environment variable not set", e.Variable)
}

// API_Error is a non-2xx response from a provider. It carries the status code
// and raw body so callers can decide whether to downgrade (drop a tool, drop
// grounding) or abort.
type API_Error struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *API_Error) Error() string {
	return fmt.Sprintf("%s API error: status %d, body: %s", e.Provider, e.StatusCode, e.Body)
}
