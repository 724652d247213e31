package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-session-gateway/internal/errors"
)

// Request describes one backend call. Body may be nil, a []byte sent as is,
// url.Values sent as a form, or any other value sent as JSON.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any
}

// Response is a fully read backend response.
type Response struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns a *StatusError for non-2xx responses and nil otherwise.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	body := strings.TrimSpace(string(r.Body))
	if len(body) > 512 {
		body = body[:512]
	}
	return &StatusError{Method: r.Method, URL: r.URL, StatusCode: r.StatusCode, Body: body}
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: decoding %s %s: %w", errors.ErrUnexpectedResponse, r.Method, r.URL, err)
	}
	return nil
}

// call is the per-call record. attempts counts how many times the call was
// re-issued after an authentication failure.
type call struct {
	id          string
	method      string
	url         string
	header      http.Header
	body        []byte
	contentType string
	attempts    int
}

func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return b, "application/octet-stream", nil
	case url.Values:
		return []byte(b.Encode()), "application/x-www-form-urlencoded", nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encoding request body: %w", err)
		}
		return raw, "application/json", nil
	}
}
