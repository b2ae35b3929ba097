package trading

import (
	"context"
	"net/http"

	"verzek/cmd/internal/gateway"
	"verzek/cmd/internal/validate"
)

// DefaultClosedLimit is how many closed positions Closed fetches by default.
const DefaultClosedLimit = 50

// Positions reads and closes auto-trade positions.
type Positions struct {
	api API
}

// NewPositions returns the positions service backed by api.
func NewPositions(api API) *Positions {
	return &Positions{api: api}
}

type positionsResponse struct {
	Positions []Position `json:"positions"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// List returns positions matching opts.
func (p *Positions) List(ctx context.Context, opts ListOptions) ([]Position, error) {
	q, err := opts.query()
	if err != nil {
		return nil, err
	}
	var out positionsResponse
	if err := p.api.JSON(ctx, gateway.Request{Method: http.MethodGet, Path: "/api/positions", Query: q}, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Positions), nil
}

// Open returns positions still in the market.
func (p *Positions) Open(ctx context.Context) ([]Position, error) {
	return p.List(ctx, ListOptions{Status: string(PositionOpen)})
}

// Closed returns the most recent closed positions. limit <= 0 means DefaultClosedLimit.
func (p *Positions) Closed(ctx context.Context, limit int) ([]Position, error) {
	if limit <= 0 {
		limit = DefaultClosedLimit
	}
	return p.List(ctx, ListOptions{Status: string(PositionClosed), Limit: limit})
}

// Close asks the backend to close a position at market.
func (p *Positions) Close(ctx context.Context, id int64) (string, error) {
	if id <= 0 {
		return "", validate.Field("position_id", "The position_id must be a positive number.")
	}
	var out messageResponse
	req := gateway.Request{
		Method: http.MethodPost,
		Path:   "/api/positions/close",
		Body:   map[string]int64{"position_id": id},
	}
	if err := p.api.JSON(ctx, req, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}
