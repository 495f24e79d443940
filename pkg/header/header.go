// Package header provides typed keys for well-known HTTP request and response headers.
//
// The keys are only a convenience for the request builder, see request.Request.WithHeaderKeys,
// and for reading response headers by the Lookup function.
// Header names are case-insensitive, the canonicalization is delegated to the net/http package.
package header

import (
	"net/http"
	"strings"
)

// Key is a canonical name of a standard HTTP header.
type Key string

// Request header keys.
const (
	Accept            = Key("Accept")
	AcceptCharset     = Key("Accept-Charset")
	AcceptEncoding    = Key("Accept-Encoding")
	AcceptLanguage    = Key("Accept-Language")
	Authorization     = Key("Authorization")
	CacheControl      = Key("Cache-Control")
	Connection        = Key("Connection")
	ContentEncoding   = Key("Content-Encoding")
	ContentLength     = Key("Content-Length")
	ContentType       = Key("Content-Type")
	Cookie            = Key("Cookie")
	Date              = Key("Date")
	Expect            = Key("Expect")
	From              = Key("From")
	Host              = Key("Host")
	IfMatch           = Key("If-Match")
	IfModifiedSince   = Key("If-Modified-Since")
	IfNoneMatch       = Key("If-None-Match")
	IfRange           = Key("If-Range")
	IfUnmodifiedSince = Key("If-Unmodified-Since")
	Origin            = Key("Origin")
	Pragma            = Key("Pragma")
	Range             = Key("Range")
	Referer           = Key("Referer")
	TE                = Key("TE")
	UserAgent         = Key("User-Agent")
	Upgrade           = Key("Upgrade")
	Via               = Key("Via")
	Warning           = Key("Warning")
	XRequestedWith    = Key("X-Requested-With")
)

// Response header keys.
const (
	AcceptRanges            = Key("Accept-Ranges")
	Age                     = Key("Age")
	Allow                   = Key("Allow")
	ContentDisposition      = Key("Content-Disposition")
	ContentLanguage         = Key("Content-Language")
	ContentLocation         = Key("Content-Location")
	ContentRange            = Key("Content-Range")
	ETag                    = Key("ETag")
	Expires                 = Key("Expires")
	LastModified            = Key("Last-Modified")
	Link                    = Key("Link")
	Location                = Key("Location")
	ProxyAuthenticate       = Key("Proxy-Authenticate")
	RetryAfter              = Key("Retry-After")
	Server                  = Key("Server")
	SetCookie               = Key("Set-Cookie")
	StrictTransportSecurity = Key("Strict-Transport-Security")
	Trailer                 = Key("Trailer")
	TransferEncoding        = Key("Transfer-Encoding")
	Vary                    = Key("Vary")
	WWWAuthenticate         = Key("WWW-Authenticate")
)

var requestKeys = []Key{ //nolint:gochecknoglobals
	Accept, AcceptCharset, AcceptEncoding, AcceptLanguage, Authorization, CacheControl, Connection,
	ContentEncoding, ContentLength, ContentType, Cookie, Date, Expect, From, Host, IfMatch,
	IfModifiedSince, IfNoneMatch, IfRange, IfUnmodifiedSince, Origin, Pragma, Range, Referer, TE,
	UserAgent, Upgrade, Via, Warning, XRequestedWith,
}

var responseKeys = []Key{ //nolint:gochecknoglobals
	AcceptRanges, Age, Allow, ContentDisposition, ContentLanguage, ContentLocation, ContentRange,
	ETag, Expires, LastModified, Link, Location, ProxyAuthenticate, RetryAfter, Server, SetCookie,
	StrictTransportSecurity, Trailer, TransferEncoding, Vary, WWWAuthenticate,
}

// byLowerName indexes all known keys by lower-cased name.
var byLowerName = func() map[string]Key { //nolint:gochecknoglobals
	out := make(map[string]Key, len(requestKeys)+len(responseKeys))
	for _, k := range requestKeys {
		out[strings.ToLower(string(k))] = k
	}
	for _, k := range responseKeys {
		out[strings.ToLower(string(k))] = k
	}
	return out
}()

// String returns the canonical header name.
func (k Key) String() string {
	return string(k)
}

// RequestKeys returns all known request header keys.
func RequestKeys() []Key {
	return append([]Key(nil), requestKeys...)
}

// ResponseKeys returns all known response header keys.
func ResponseKeys() []Key {
	return append([]Key(nil), responseKeys...)
}

// Parse returns the known Key for the header name, the match is case-insensitive.
func Parse(name string) (Key, bool) {
	k, found := byLowerName[strings.ToLower(strings.TrimSpace(name))]
	return k, found
}

// ToHeader converts a typed mapping to the http.Header.
func ToHeader(in map[Key]string) http.Header {
	out := make(http.Header, len(in))
	for k, v := range in {
		out.Set(string(k), v)
	}
	return out
}

// Lookup returns the first value of the header and true, if the header is present.
// A missing header is not an error, ("", false) is returned.
func Lookup(h http.Header, k Key) (string, bool) {
	values, found := h[http.CanonicalHeaderKey(string(k))]
	if !found || len(values) == 0 {
		return "", false
	}
	return values[0], true
}
