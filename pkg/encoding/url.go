package encoding

import (
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/keboola/go-utils/pkg/orderedmap"
)

// Destination defines where URLEncoding writes encoded parameters.
type Destination int

const (
	// MethodDependent uses the query string for GET, HEAD and DELETE requests, otherwise the body.
	MethodDependent Destination = iota
	// QueryString always uses the query string.
	QueryString
	// HTTPBody always uses the body.
	HTTPBody
)

// ArrayEncoding defines how slice values are encoded.
type ArrayEncoding int

const (
	// Brackets encodes a slice as "key[]=a&key[]=b".
	Brackets ArrayEncoding = iota
	// NoBrackets encodes a slice as "key=a&key=b".
	NoBrackets
	// IndexInBrackets encodes a slice as "key[0]=a&key[1]=b".
	IndexInBrackets
)

// BoolEncoding defines how bool values are encoded.
type BoolEncoding int

const (
	// Numeric encodes true as "1" and false as "0".
	Numeric BoolEncoding = iota
	// Literal encodes true as "true" and false as "false".
	Literal
)

// URLEncoding encodes parameters as "application/x-www-form-urlencoded" pairs.
// Keys are sorted, nested maps and slices are flattened to "key[sub]" keys.
type URLEncoding struct {
	Destination   Destination
	ArrayEncoding ArrayEncoding
	BoolEncoding  BoolEncoding
}

type pair struct {
	key   string
	value string
}

func (e URLEncoding) Encode(req *http.Request, params map[string]any) (*http.Request, error) {
	if len(params) == 0 {
		return req, nil
	}

	query, err := e.Query(params)
	if err != nil {
		return nil, err
	}

	if e.encodesInURL(req.Method) {
		if req.URL.RawQuery == "" {
			req.URL.RawQuery = query
		} else {
			req.URL.RawQuery += "&" + query
		}
		return req, nil
	}

	setContentTypeIfEmpty(req, ContentTypeForm)
	SetBody(req, []byte(query))
	return req, nil
}

// Query returns the parameters encoded as a query string.
func (e URLEncoding) Query(params map[string]any) (string, error) {
	var pairs []pair
	for _, key := range sortedKeys(params) {
		components, err := e.components(key, params[key])
		if err != nil {
			return "", err
		}
		pairs = append(pairs, components...)
	}

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String(), nil
}

func (e URLEncoding) encodesInURL(method string) bool {
	switch e.Destination {
	case QueryString:
		return true
	case HTTPBody:
		return false
	default:
		switch strings.ToUpper(method) {
		case http.MethodGet, http.MethodHead, http.MethodDelete:
			return true
		default:
			return false
		}
	}
}

func (e URLEncoding) components(key string, value any) ([]pair, error) {
	switch v := value.(type) {
	case nil:
		return []pair{{key: key}}, nil
	case bool:
		return []pair{{key: key, value: e.encodeBool(v)}}, nil
	case []byte:
		return []pair{{key: key, value: string(v)}}, nil
	case *orderedmap.OrderedMap:
		var out []pair
		for _, k := range v.Keys() {
			item, _ := v.Get(k)
			nested, err := e.components(fmt.Sprintf("%s[%s]", key, k), item)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		}
		return out, nil
	case map[string]any:
		var out []pair
		for _, k := range sortedKeys(v) {
			nested, err := e.components(fmt.Sprintf("%s[%s]", key, k), v[k])
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		}
		return out, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		var out []pair
		for i := range rv.Len() {
			nested, err := e.components(e.arrayKey(key, i), rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf(`cannot encode parameter "%s": map key must be a string, found %s`, key, rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		var out []pair
		for _, k := range keys {
			nested, err := e.components(fmt.Sprintf("%s[%s]", key, k), rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		}
		return out, nil
	default:
		str, err := castToString(value)
		if err != nil {
			return nil, fmt.Errorf(`cannot encode parameter "%s": %w`, key, err)
		}
		return []pair{{key: key, value: str}}, nil
	}
}

func (e URLEncoding) arrayKey(key string, index int) string {
	switch e.ArrayEncoding {
	case NoBrackets:
		return key
	case IndexInBrackets:
		return fmt.Sprintf("%s[%d]", key, index)
	default:
		return key + "[]"
	}
}

func (e URLEncoding) encodeBool(v bool) string {
	if e.BoolEncoding == Literal {
		if v {
			return "true"
		}
		return "false"
	}
	if v {
		return "1"
	}
	return "0"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
