package otel

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/semconv/v1.18.0/httpconv"
)

const maskedAttrValue = "****"

type attributes struct {
	config config
	// definition attributes for span and metrics
	definition []attribute.KeyValue
	// definitionExtra attributes for span only
	definitionExtra []attribute.KeyValue
	// definitionPath is used as the resource name
	definitionPath string
	// httpRequest attributes for span and metrics
	httpRequest []attribute.KeyValue
	// httpRequestExtra attributes for span only
	httpRequestExtra []attribute.KeyValue
	// httpResponse attributes for span and metrics
	httpResponse []attribute.KeyValue
	// httpResponseExtra attributes for span only
	httpResponseExtra []attribute.KeyValue
}

func newAttributes(cfg config, req *http.Request) *attributes {
	out := &attributes{config: cfg, definitionPath: mustURLPathUnescape(req.URL.Path)}

	out.definition = []attribute.KeyValue{
		attribute.String("definition.method", req.Method),
		attribute.String("definition.url.path", out.definitionPath),
		attribute.String("definition.url.host.full", req.URL.Host),
	}
	if dotPos := strings.IndexByte(req.URL.Host, '.'); dotPos > 0 {
		// Host prefix identifies the service, host suffix identifies the stack
		out.definition = append(out.definition,
			attribute.String("definition.url.host.prefix", req.URL.Host[:dotPos]),
			attribute.String("definition.url.host.suffix", strings.TrimLeft(req.URL.Host[dotPos:], ".")),
		)
	}

	out.definitionExtra = append(out.definitionExtra, attribute.String("definition.url.full", cfg.redactURL(req.URL)))
	out.definitionExtra = append(out.definitionExtra, cfg.headerAttrs("definition.header.", req.Header)...)
	return out
}

func (v *attributes) SetFromRequest(req *http.Request) {
	v.httpRequest = httpconv.ClientRequest(req)

	// User agent is already present from httpconv
	header := req.Header.Clone()
	header.Del("User-Agent")
	v.httpRequestExtra = v.config.headerAttrs("http.header.", header)
}

func (v *attributes) SetFromResponse(res *http.Response, err error) {
	if res == nil {
		v.httpResponse = nil
		v.httpResponseExtra = nil
	} else {
		v.httpResponse = httpconv.ClientResponse(res)
		v.httpResponseExtra = v.config.headerAttrs("http.response.header.", res.Header)
	}

	var netErr net.Error
	errors.As(err, &netErr)
	v.httpResponseExtra = append(v.httpResponseExtra,
		attribute.Bool("http.response.error.has", err != nil),
		attribute.Bool("http.response.error.net", netErr != nil),
		attribute.Bool("http.response.error.timeout", netErr != nil && netErr.Timeout()),
		attribute.Bool("http.response.error.cancelled", errors.Is(err, context.Canceled)),
	)
}

func (c config) headerAttrs(prefix string, header http.Header) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(header))
	for key, values := range header {
		key = strings.ToLower(key)
		value := strings.Join(values, ";")
		if _, found := c.redactedHeaders[key]; found {
			value = maskedAttrValue
		}
		attrs = append(attrs, attribute.String(prefix+key, value))
	}
	sort.SliceStable(attrs, func(i, j int) bool {
		return attrs[i].Key < attrs[j].Key
	})
	return attrs
}

func (c config) redactURL(in *url.URL) string {
	if len(c.redactedQueryParams) == 0 || in.RawQuery == "" {
		return mustURLPathUnescape(in.String())
	}

	out := *in
	query := out.Query()
	for key := range query {
		if _, found := c.redactedQueryParams[strings.ToLower(key)]; found {
			query.Set(key, maskedAttrValue)
		}
	}
	out.RawQuery = query.Encode()
	return mustURLPathUnescape(out.String())
}

func mustURLPathUnescape(in string) string {
	out, err := url.PathUnescape(in)
	if err != nil {
		return in
	}
	return out
}
