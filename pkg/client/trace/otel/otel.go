// Package otel provides OpenTelemetry tracing and metrics for requests sent by the client.Client.
//
// The package provides 2 levels of telemetry:
//
// 1. High-level telemetry:
//   - Span "go.request.client.request" wraps all redirects and retries of one logical request.
//   - Span "go.request.client.retry.delay" tracks delay before retry.
//   - Metrics names start with "go.request.client." (clientMeterPrefix const).
//
// 2. Low-level telemetry:
//   - Span "http.request" is created for every sent HTTP request, including redirects and retries.
//   - Spans "http.dns", "http.getconn", "http.connect" and "http.tls" are created from the httptrace hooks.
//   - Metrics names start with "go.request.http." (httpMeterPrefix const).
package otel

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelMetric "go.opentelemetry.io/otel/metric"
	metricNoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/keboola/go-request-builder/pkg/client/trace"
)

const (
	traceAppName     = "github.com/keboola/go-request-builder"
	attrResourceName = attribute.Key("resource.name")
	// Low-level tracing, for each redirect and retry.
	httpSpanPrefix           = "http."
	httpRequestSpanName      = httpSpanPrefix + "request"
	httpDNSSpanName          = httpSpanPrefix + "dns"
	httpGetConnSpanName      = httpSpanPrefix + "getconn"
	httpConnectSpanName      = httpSpanPrefix + "connect"
	httpTLSHandshakeSpanName = httpSpanPrefix + "tls"
	attrDNSAddresses         = attribute.Key("http.dns.addrs")
	attrRemoteAddr           = attribute.Key("http.remote")
	attrConnectionReused     = attribute.Key("http.conn.reused")
	attrConnectionWasIdle    = attribute.Key("http.conn.wasidle")
	// High-level tracing.
	clientSpanPrefix         = "go.request.client."
	clientRequestSpanName    = clientSpanPrefix + "request"
	clientRetryDelaySpanName = clientSpanPrefix + "retry.delay"
	// Extra attributes for DataDog.
	attrSpanKind            = attribute.Key("span.kind")
	attrSpanKindValueClient = "client"
	attrSpanType            = attribute.Key("span.type")
	attrSpanTypeValueHTTP   = "http"
)

// NewTrace creates a trace.Factory, it can be registered by the client.Client.AndTrace method.
// Nil providers are replaced by noop implementations.
func NewTrace(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...Option) trace.Factory {
	cfg := newConfig(opts)
	if tracerProvider == nil {
		tracerProvider = noop.NewTracerProvider()
	}
	if meterProvider == nil {
		meterProvider = metricNoop.NewMeterProvider()
	}
	tracer := tracerProvider.Tracer(traceAppName)
	meters := newMeters(meterProvider.Meter(traceAppName))

	return func(rootCtx context.Context, req *http.Request) (context.Context, *trace.ClientTrace) {
		tc := &trace.ClientTrace{}
		attrs := newAttributes(cfg, req)
		startSpan := func(ctx context.Context, name string, opts ...otelTrace.SpanStartOption) otelTrace.Span {
			_, span := tracer.Start(ctx, name, append(opts, otelTrace.WithSpanKind(otelTrace.SpanKindClient))...)
			return span
		}

		// Root span may contain multiple HTTP requests (redirects, retries, ...)
		startTime := time.Now()
		meters.client.inFlight.Add(rootCtx, 1, otelMetric.WithAttributes(attrs.definition...))
		rootCtx, rootSpan := tracer.Start(
			rootCtx,
			clientRequestSpanName,
			otelTrace.WithSpanKind(otelTrace.SpanKindClient),
			otelTrace.WithAttributes(
				attrResourceName.String(attrs.definitionPath),
				attrSpanKind.String(attrSpanKindValueClient),
				attrSpanType.String(attrSpanTypeValueHTTP),
			),
			otelTrace.WithAttributes(attrs.definition...),
			otelTrace.WithAttributes(attrs.definitionExtra...),
		)

		var httpCtx context.Context
		var httpRequestSpan, retryDelaySpan otelTrace.Span
		var httpRequestStart time.Time

		tc.HTTPRequestStart = func(req *http.Request) {
			// Retry delay span is ended by the next request
			if retryDelaySpan != nil {
				retryDelaySpan.End()
				retryDelaySpan = nil
			}

			httpCtx, httpRequestSpan = tracer.Start(
				rootCtx,
				httpRequestSpanName,
				otelTrace.WithSpanKind(otelTrace.SpanKindClient),
				otelTrace.WithAttributes(
					attrSpanKind.String(attrSpanKindValueClient),
					attrSpanType.String(attrSpanTypeValueHTTP),
				),
			)

			// Inject trace headers
			if cfg.propagators != nil {
				cfg.propagators.Inject(httpCtx, propagation.HeaderCarrier(req.Header))
			}

			httpRequestStart = time.Now()
			attrs.SetFromRequest(req)
			meters.http.inFlight.Add(rootCtx, 1, otelMetric.WithAttributes(attrs.httpRequest...))
			httpRequestSpan.SetAttributes(attrResourceName.String(mustURLPathUnescape(req.URL.Path)))
			httpRequestSpan.SetAttributes(attrs.httpRequest...)
			httpRequestSpan.SetAttributes(attrs.httpRequestExtra...)
		}
		tc.HTTPRequestDone = func(res *http.Response, err error) {
			elapsedTime := float64(time.Since(httpRequestStart)) / float64(time.Millisecond)
			attrs.SetFromResponse(res, err)

			// Same attributes as in HTTPRequestStart
			meters.http.inFlight.Add(rootCtx, -1, otelMetric.WithAttributes(attrs.httpRequest...))
			meters.http.duration.Record(
				rootCtx,
				elapsedTime,
				otelMetric.WithAttributes(attrs.httpRequest...),
				otelMetric.WithAttributes(attrs.httpResponse...),
			)

			if httpRequestSpan != nil {
				httpRequestSpan.SetAttributes(attrs.httpResponse...)
				httpRequestSpan.SetAttributes(attrs.httpResponseExtra...)
				endSpan(httpRequestSpan, httpError(res, err))
				httpRequestSpan = nil
			}
		}
		tc.HTTPRequestRetry = func(attempt int, delay time.Duration) {
			meters.client.retries.Add(rootCtx, 1, otelMetric.WithAttributes(attrs.definition...))
			retryDelaySpan = startSpan(
				rootCtx,
				clientRetryDelaySpanName,
				otelTrace.WithAttributes(attrs.httpRequest...),
				otelTrace.WithAttributes(attrs.httpResponse...),
				otelTrace.WithAttributes(
					attribute.Int("api.request.retry.attempt", attempt),
					attribute.Int64("api.request.retry.delay_ms", delay.Milliseconds()),
					attribute.String("api.request.retry.delay_string", delay.String()),
				),
			)
		}
		tc.RequestProcessed = func(res *http.Response, err error) {
			elapsedTime := float64(time.Since(startTime)) / float64(time.Millisecond)

			// Same attributes as above (+1)
			meters.client.inFlight.Add(rootCtx, -1, otelMetric.WithAttributes(attrs.definition...))
			meters.client.duration.Record(
				rootCtx,
				elapsedTime,
				otelMetric.WithAttributes(attrs.definition...),
				otelMetric.WithAttributes(attrs.httpResponse...),
			)

			// Retry delay can be interrupted, e.g., by a timeout
			if retryDelaySpan != nil {
				retryDelaySpan.End()
				retryDelaySpan = nil
			}

			// Attributes from the last response
			rootSpan.SetAttributes(attrs.httpResponse...)
			rootSpan.SetAttributes(attrs.httpResponseExtra...)
			endSpan(rootSpan, httpError(res, err))
		}

		// Low-level tracing from the httptrace hooks
		{
			var dnsSpan otelTrace.Span
			tc.DNSStart = func(info httptrace.DNSStartInfo) {
				dnsSpan = startSpan(httpCtx, httpDNSSpanName, otelTrace.WithAttributes(semconv.NetHostName(info.Host)))
			}
			tc.DNSDone = func(info httptrace.DNSDoneInfo) {
				if dnsSpan != nil {
					var addrs []string
					for _, netAddr := range info.Addrs {
						addrs = append(addrs, netAddr.String())
					}
					dnsSpan.SetAttributes(attrDNSAddresses.String(strings.Join(addrs, ";")))
					endSpan(dnsSpan, info.Err)
					dnsSpan = nil
				}
			}
		}
		{
			var getConnSpan otelTrace.Span
			tc.GetConn = func(host string) {
				getConnSpan = startSpan(httpCtx, httpGetConnSpanName, otelTrace.WithAttributes(semconv.NetHostName(host)))
			}
			tc.GotConn = func(info httptrace.GotConnInfo) {
				if getConnSpan != nil {
					getConnSpan.SetAttributes(
						attrConnectionReused.Bool(info.Reused),
						attrConnectionWasIdle.Bool(info.WasIdle),
					)
					if info.Conn != nil {
						getConnSpan.SetAttributes(attrRemoteAddr.String(info.Conn.RemoteAddr().String()))
					}
					getConnSpan.End()
					getConnSpan = nil
				}
			}
		}
		{
			var connectSpan otelTrace.Span
			tc.ConnectStart = func(network, addr string) {
				connectSpan = startSpan(httpCtx, httpConnectSpanName, otelTrace.WithAttributes(attrRemoteAddr.String(addr)))
			}
			tc.ConnectDone = func(_, _ string, err error) {
				if connectSpan != nil {
					endSpan(connectSpan, err)
					connectSpan = nil
				}
			}
		}
		// Note: TLS handshake is not reported if the http2.Transport is used directly.
		{
			var tlsSpan otelTrace.Span
			tc.TLSHandshakeStart = func() {
				tlsSpan = startSpan(httpCtx, httpTLSHandshakeSpanName)
			}
			tc.TLSHandshakeDone = func(_ tls.ConnectionState, err error) {
				if tlsSpan != nil {
					endSpan(tlsSpan, err)
					tlsSpan = nil
				}
			}
		}

		return rootCtx, tc
	}
}

func endSpan(span otelTrace.Span, err error) {
	if err == nil {
		span.End()
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End(otelTrace.WithStackTrace(true))
}
