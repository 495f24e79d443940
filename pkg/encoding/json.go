package encoding

import (
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

// json - replacement of the standard encoding/json library, it is faster for larger bodies.
var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

// JSONEncoding encodes parameters as a JSON object body.
type JSONEncoding struct {
	// Indent enables pretty printed output.
	Indent bool
}

func (e JSONEncoding) Encode(req *http.Request, params map[string]any) (*http.Request, error) {
	if len(params) == 0 {
		return req, nil
	}

	var body []byte
	var err error
	if e.Indent {
		body, err = json.MarshalIndent(params, "", "  ")
	} else {
		body, err = json.Marshal(params)
	}
	if err != nil {
		return nil, fmt.Errorf(`cannot encode JSON body: %w`, err)
	}

	setContentTypeIfEmpty(req, ContentTypeJSON)
	SetBody(req, body)
	return req, nil
}
