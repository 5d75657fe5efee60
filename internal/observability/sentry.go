// Package observability reports errors that need a human to Sentry.
package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Priya8975/status-relay/internal/domain"
)

// InitSentry configures the global Sentry client. It reports false without
// error when dsn is empty.
func InitSentry(dsn, release, environment string) (bool, error) {
	if dsn == "" {
		return false, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          release,
		Environment:      environment,
		SampleRate:       1.0,
		AttachStacktrace: true,
	}); err != nil {
		return false, fmt.Errorf("initializing sentry: %w", err)
	}
	return true, nil
}

// Flush waits for buffered events to be sent.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// Reporter captures delivery outcomes that leave the relay inconsistent.
// Endpoint failures are expected and only logged; store failures mean a
// delivered message was not recorded and may be sent again.
type Reporter struct {
	hub *sentry.Hub
}

// NewReporter captures through hub, or the global hub when nil.
func NewReporter(hub *sentry.Hub) *Reporter {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return &Reporter{hub: hub}
}

func (r *Reporter) ObserveOutcome(ctx context.Context, outcome domain.DeliveryOutcome) {
	if outcome.Kind != domain.OutcomeFailed || outcome.ErrorKind != "store" {
		return
	}

	err := outcome.Err
	if err == nil {
		err = errors.New(outcome.Error)
	}

	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		scope.SetTag("guild_id", outcome.GuildID)
		scope.SetTag("incident_id", outcome.IncidentID)
		scope.SetTag("update_id", outcome.UpdateID)
		r.hub.CaptureException(err)
	})
}

// CaptureError reports an error outside the delivery path, such as a failed
// sweep or fan-out.
func (r *Reporter) CaptureError(err error, tags map[string]string) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		r.hub.CaptureException(err)
	})
}

// Recoverer reports panics from HTTP handlers and re-panics so the router's
// own recovery still answers the request.
func (r *Reporter) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				r.hub.WithScope(func(scope *sentry.Scope) {
					scope.SetTag("path", req.URL.Path)
					r.hub.Recover(rec)
				})
				panic(rec)
			}
		}()
		next.ServeHTTP(w, req)
	})
}
