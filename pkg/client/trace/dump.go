package trace

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
	"time"

	"github.com/keboola/go-request-builder/pkg/client/decode"
)

const dumpTraceMaxLength = 2000

// DumpTracer dumps HTTP request and response to a writer.
// Output may contain unmasked tokens, do not use it in production!
func DumpTracer(wr io.Writer) Factory {
	return func(ctx context.Context, _ *http.Request) (context.Context, *ClientTrace) {
		var requestMethod, requestURI string
		var responseStatusCode int
		var requestDump []byte
		var responseErr error
		var startTime, headersTime time.Time

		d := &dumper{wr: wr}
		t := &ClientTrace{}
		t.HTTPRequestStart = func(r *http.Request) {
			startTime = time.Now()
			requestMethod = r.Method
			requestURI = r.URL.RequestURI()
			requestDump, _ = httputil.DumpRequestOut(r, true)
		}
		t.HTTPRequestDone = func(r *http.Response, err error) {
			responseErr = err
			if r != nil {
				responseStatusCode = r.StatusCode
				headersTime = time.Now()
			}

			// Dump request
			d.log()
			d.log(">>>>>> HTTP DUMP")
			d.dump(string(requestDump))

			// Dump response
			d.log("------")
			if err != nil {
				d.log("ERROR: ", err)
			} else if r != nil {
				d.dumpResponse(r)
			}
			d.log("<<<<<< HTTP DUMP END")
		}
		t.HTTPRequestRetry = func(attempt int, delay time.Duration) {
			d.log()
			d.log(">>>>>> HTTP RETRY", "| ATTEMPT:", attempt, "| DELAY:", delay, "| ", requestMethod, requestURI, responseStatusCode, "| ERROR:", responseErr)
		}
		t.RequestProcessed = func(_ *http.Response, err error) {
			d.log()
			d.log(">>>>>> HTTP REQUEST PROCESSED", "| ", requestMethod, requestURI, responseStatusCode, "| ERROR:", err, "| HEADERS AT:", headersTime.Sub(startTime), "| DONE AT:", time.Since(startTime))
		}
		return ctx, t
	}
}

type dumper struct {
	wr io.Writer
}

func (d *dumper) dumpResponse(r *http.Response) {
	// Dump response headers
	if v, err := httputil.DumpResponse(r, false); err == nil {
		d.log(strings.TrimSpace(string(v)))
	} else {
		d.log("cannot dump response headers: ", err)
	}

	if r.Body == nil || r.Body == http.NoBody {
		return
	}

	// Read the whole raw body, it is set back to the response
	rawBody, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(rawBody))
	if err != nil {
		d.log("cannot read response body: ", err)
		return
	}

	// Dump decoded body
	bodyReader, err := decode.Decode(io.NopCloser(bytes.NewReader(rawBody)), r.Header.Get("Content-Encoding"))
	if err != nil {
		d.log("cannot decode response body: ", err)
		return
	}
	var decodedBody strings.Builder
	if _, err := io.Copy(&decodedBody, bodyReader); err != nil {
		d.log("cannot decode response body: ", err)
	}
	d.log("------")
	d.dump(decodedBody.String())
}

func (d *dumper) dump(body string) {
	body = strings.TrimSpace(body)
	if len(body) > dumpTraceMaxLength && os.Getenv("HTTP_DUMP_TRACE_FULL") != "true" { //nolint:forbidigo
		d.log(body[:dumpTraceMaxLength])
		d.log("... (set env HTTP_DUMP_TRACE_FULL=true to see full output)")
	} else {
		d.log(body)
	}
}

func (d *dumper) log(a ...any) {
	_, _ = fmt.Fprintln(d.wr, a...)
}
