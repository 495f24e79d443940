package trace

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ZerologTracer logs request stages as structured events.
// Attempts are logged at the debug level, failures at the warn level.
func ZerologTracer(logger zerolog.Logger) Factory {
	return func(ctx context.Context, req *http.Request) (context.Context, *ClientTrace) {
		log := logger.With().Str("method", req.Method).Str("url", req.URL.String()).Logger()

		var startTime time.Time
		t := &ClientTrace{}
		t.HTTPRequestStart = func(_ *http.Request) {
			startTime = time.Now()
			log.Debug().Msg("request started")
		}
		t.HTTPRequestDone = func(res *http.Response, err error) {
			event := log.Debug()
			if err != nil {
				event = log.Warn().Err(err)
			}
			if res != nil {
				event = event.Int("status", res.StatusCode)
			}
			event.Dur("duration", time.Since(startTime)).Msg("request done")
		}
		t.HTTPRequestRetry = func(attempt int, delay time.Duration) {
			log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("request retry")
		}
		t.RequestProcessed = func(res *http.Response, err error) {
			event := log.Info()
			if err != nil {
				event = log.Warn().Err(err)
			}
			if res != nil {
				event = event.Int("status", res.StatusCode)
			}
			event.Msg("request processed")
		}
		return ctx, t
	}
}
