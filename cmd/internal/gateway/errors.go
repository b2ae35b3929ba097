package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every *Error unwraps to exactly one of these.
var (
	// ErrNetwork covers transport failures and unreadable or malformed responses.
	ErrNetwork = errors.New("network error")

	// ErrTimeout is returned when an attempt exceeds Config.Timeout. It is never retried here.
	ErrTimeout = errors.New("request timed out")

	// ErrUnauthorized is a 401 that could not be recovered by a token refresh.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation is a 4xx other than 401, or an `ok:false` envelope.
	ErrValidation = errors.New("request rejected")

	// ErrServer is a 5xx or otherwise unexpected status.
	ErrServer = errors.New("server error")
)

// Error is the typed failure returned by the gateway.
// Op is "METHOD /path" of the request that failed.
type Error struct {
	Op        string
	Kind      error
	Status    int
	Code      string
	Message   string
	RequestID string
	Body      []byte
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("error")
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// DecodeBody decodes the raw error body into dst, for fields beyond Message
// (e.g. needs_verification on login).
func (e *Error) DecodeBody(dst any) error {
	if len(bytes.TrimSpace(e.Body)) == 0 {
		return errors.New("empty error body")
	}
	return json.Unmarshal(e.Body, dst)
}

// IsUnauthorized reports whether err is an unrecovered 401.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// IsTimeout reports whether err is a gateway timeout.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsTransport reports whether no usable response was received (network, timeout, malformed body).
func IsTransport(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// Message returns the server-provided message carried by err, or fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

// errorBody accepts both `{"error":"text"}` and `{"error":{"code":..,"message":..}}`.
type errorBody struct {
	OK      *bool           `json:"ok"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// parseErrorBody extracts (code, message) best-effort; unknown shapes yield empty strings.
func parseErrorBody(body []byte) (code, msg string) {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return "", ""
	}
	code, msg = eb.Code, eb.Message

	raw := bytes.TrimSpace(eb.Error)
	switch {
	case len(raw) == 0:
	case raw[0] == '"':
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			msg = s
		}
	case raw[0] == '{':
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil {
			if ae.Code != "" {
				code = ae.Code
			}
			if ae.Message != "" {
				msg = ae.Message
			}
		}
	}
	return code, msg
}
