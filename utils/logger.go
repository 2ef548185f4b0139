package utils

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PrintLogInfo records the outcome of a handler invocation. identity is
// whatever the caller authenticated as (email or roll number), nil when
// the request never got that far.
func PrintLogInfo(identity *string, statusCode int, handler string, err error) {
	var evt *zerolog.Event
	switch {
	case statusCode >= http.StatusInternalServerError:
		evt = log.Error()
	case statusCode >= http.StatusBadRequest:
		evt = log.Warn()
	default:
		evt = log.Info()
	}

	who := "anonymous"
	if identity != nil {
		who = *identity
	}
	if err != nil {
		evt = evt.Err(err)
	}
	evt.Str("user", who).Int("status", statusCode).Str("handler", handler).Msg("request handled")
}
