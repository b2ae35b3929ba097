package gateway

import (
	"encoding/json"
	"net/url"
)

// Request describes one logical API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values

	// Body is JSON-encoded when non-nil.
	Body any

	// NoAuth skips bearer attachment and refresh-on-401 (login, register, password reset).
	NoAuth bool
}

// Response is a successful (2xx) reply with its body fully read.
type Response struct {
	Status    int
	Body      []byte
	RequestID string
	op        string
}

// Decode unmarshals the body into dst. Malformed JSON is reported as ErrNetwork.
func (r *Response) Decode(dst any) error {
	if err := json.Unmarshal(r.Body, dst); err != nil {
		return &Error{
			Op:        r.op,
			Kind:      ErrNetwork,
			Status:    r.Status,
			Message:   "malformed response",
			RequestID: r.RequestID,
			Body:      r.Body,
			Err:       err,
		}
	}
	return nil
}

// envelope is the mandatory `ok` discriminator carried by every backend response.
type envelope struct {
	OK *bool `json:"ok"`
}

// call is the per-invocation pipeline state. attempt is 0 for the first send
// and 1 for the single post-refresh retry; it never goes higher.
type call struct {
	req     Request
	op      string
	id      string
	body    []byte
	attempt int
	token   string
}
