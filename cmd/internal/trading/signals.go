package trading

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"verzek/cmd/internal/gateway"
	"verzek/cmd/internal/validate"
)

// API is the subset of *gateway.Gateway the services need.
type API interface {
	JSON(ctx context.Context, req gateway.Request, dst any) error
}

// ListOptions filters signal and position listings. Zero values are omitted.
type ListOptions struct {
	Status string `json:"status,omitempty" validate:"omitempty,alpha,uppercase"`
	Limit  int    `json:"limit,omitempty" validate:"gte=0,lte=500"`
}

func (o ListOptions) query() (url.Values, error) {
	if err := validate.Struct(o); err != nil {
		return nil, err
	}
	q := url.Values{}
	if o.Status != "" {
		q.Set("status", o.Status)
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	return q, nil
}

// Signals reads published trading signals.
type Signals struct {
	api API
}

// NewSignals returns the signals service backed by api.
func NewSignals(api API) *Signals {
	return &Signals{api: api}
}

type signalsResponse struct {
	Signals []Signal `json:"signals"`
	Count   int      `json:"count"`
}

type signalResponse struct {
	Signal *Signal `json:"signal"`
}

// Live returns the currently active house signals.
func (s *Signals) Live(ctx context.Context) ([]Signal, error) {
	var out signalsResponse
	if err := s.api.JSON(ctx, gateway.Request{Method: http.MethodGet, Path: "/api/house-signals/live"}, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Signals), nil
}

// List returns signals matching opts.
func (s *Signals) List(ctx context.Context, opts ListOptions) ([]Signal, error) {
	q, err := opts.query()
	if err != nil {
		return nil, err
	}
	var out signalsResponse
	if err := s.api.JSON(ctx, gateway.Request{Method: http.MethodGet, Path: "/api/signals", Query: q}, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Signals), nil
}

// Get returns one signal.
func (s *Signals) Get(ctx context.Context, id int64) (Signal, error) {
	if id <= 0 {
		return Signal{}, validate.Field("id", "The id must be a positive number.")
	}
	var out signalResponse
	path := "/api/signals/" + strconv.FormatInt(id, 10)
	if err := s.api.JSON(ctx, gateway.Request{Method: http.MethodGet, Path: path}, &out); err != nil {
		return Signal{}, err
	}
	if out.Signal == nil {
		return Signal{}, &gateway.Error{Op: "GET " + path, Kind: gateway.ErrNetwork, Message: "malformed response: missing signal"}
	}
	return *out.Signal, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
