package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// Init configures the global Sentry hub. An empty DSN disables reporting and returns a no-op flush.
func Init(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// Reporter forwards errors that need human follow-up to Sentry.
type Reporter struct{}

// NewReporter returns a reporter bound to the global hub.
func NewReporter() *Reporter {
	return &Reporter{}
}

// CaptureError sends err with the given tags. Without Init it is a no-op.
func (r *Reporter) CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
}
