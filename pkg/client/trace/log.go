package trace

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync/atomic"
	"time"
)

// LogTracer writes one line for each stage of the request.
//
// Output format:
//
//	HTTP_REQUEST[0001] START GET "https://example.com/users"
//	HTTP_REQUEST[0001] DONE  GET "https://example.com/users" | 200 | 12ms
func LogTracer(wr io.Writer) Factory {
	var idGenerator atomic.Uint64
	return func(ctx context.Context, req *http.Request) (context.Context, *ClientTrace) {
		requestID := idGenerator.Add(1)
		prefix := fmt.Sprintf("HTTP_REQUEST[%04d]", requestID)
		target := fmt.Sprintf(`%s "%s"`, req.Method, req.URL.String())
		logf := func(format string, a ...any) {
			_, _ = fmt.Fprintln(wr, prefix, fmt.Sprintf(format, a...))
		}

		var connStartTime, startTime, doneTime time.Time
		t := &ClientTrace{}
		t.ConnectStart = func(_, _ string) {
			connStartTime = time.Now()
		}
		t.GotConn = func(info httptrace.GotConnInfo) {
			switch {
			case !info.Reused:
				logf("CONN  %s | new conn | %s", target, time.Since(connStartTime))
			case info.WasIdle:
				logf("CONN  %s | reused conn (was idle=%s)", target, info.IdleTime)
			default:
				logf("CONN  %s | reused conn", target)
			}
		}
		t.HTTPRequestStart = func(_ *http.Request) {
			startTime = time.Now()
			logf("START %s", target)
		}
		t.HTTPRequestDone = func(res *http.Response, err error) {
			doneTime = time.Now()
			statusCode := 0
			if res != nil {
				statusCode = res.StatusCode
			}
			logf("DONE  %s | %d | %s%s", target, statusCode, doneTime.Sub(startTime), errorSuffix(err))
		}
		t.HTTPRequestRetry = func(attempt int, delay time.Duration) {
			logf("RETRY %s | %dx | %s", target, attempt, delay)
		}
		t.RequestProcessed = func(_ *http.Response, err error) {
			logf("END   %s | %s%s", target, time.Since(doneTime), errorSuffix(err))
		}
		return ctx, t
	}
}

func errorSuffix(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf(" | error=%s", err)
}
