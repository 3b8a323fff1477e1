package httpapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stderr).With().Timestamp().Str("component", "http").Logger()

// SetLogger replaces the logger of the HTTP layer.
func SetLogger(l zerolog.Logger) { logger = l }

// defaultRequestLevel is the lifecycle request log level when a request
// does not ask for one. MODELCORE_LOG_LEVEL sets it; unset disables it.
var defaultRequestLevel = parseRequestLevel(os.Getenv("MODELCORE_LOG_LEVEL"))

// parseRequestLevel maps a level name to a zerolog level. Empty and "off"
// disable logging, "1" is shorthand for debug and unknown names fall back
// to info.
func parseRequestLevel(s string) zerolog.Level {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "", "off":
		return zerolog.Disabled
	case "1":
		return zerolog.DebugLevel
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// requestLevel is the level asked for by ?log= or X-Log-Level, in that
// order.
func requestLevel(r *http.Request) zerolog.Level {
	if v := r.URL.Query().Get("log"); v != "" {
		return parseRequestLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseRequestLevel(v)
	}
	return defaultRequestLevel
}

// action traces one load, unload or reload request.
type action struct {
	name  string
	model string
	reqID string
	lvl   zerolog.Level
	start time.Time
}

func startAction(r *http.Request, name, model string) *action {
	a := &action{
		name:  name,
		model: model,
		reqID: middleware.GetReqID(r.Context()),
		lvl:   requestLevel(r),
		start: time.Now(),
	}
	if a.lvl <= zerolog.InfoLevel {
		logger.Info().Str("path", r.URL.Path).Str("model", model).Str("request_id", a.reqID).Msg(name + " start")
	}
	return a
}

// end logs the outcome of the request and counts it when it failed.
// Failures are logged down to the error level, successes only at info.
func (a *action) end(code int, err error) {
	var ev *zerolog.Event
	switch {
	case err != nil:
		metrics.lifecycleErrors.WithLabelValues(a.name, strconv.Itoa(code)).Inc()
		if a.lvl > zerolog.ErrorLevel {
			return
		}
		ev = logger.Error().Err(err)
	case a.lvl <= zerolog.InfoLevel:
		ev = logger.Info()
	default:
		return
	}
	ev.Int("status", code).Str("model", a.model).Str("request_id", a.reqID).
		Dur("dur", time.Since(a.start)).Msg(a.name + " end")
}
