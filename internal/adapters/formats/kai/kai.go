// Package kai decodes score history from partner services that expose the
// shared Kai-style JSON envelope. One decoder per game serves every partner;
// a partner is only configuration.
package kai

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/scoreimport/internal/adapters/formats"
	"github.com/okian/scoreimport/internal/domain/game"
	"github.com/okian/scoreimport/internal/domain/model"
)

// Sentinel errors.
var (
	ErrNoFetcher     = errors.New("kai: no fetcher configured")
	ErrAuthMismatch  = errors.New("kai: auth document belongs to another service")
	ErrGameNotServed = errors.New("kai: partner does not serve game")
)

// DefaultMaxPages bounds pagination when the request does not set a limit.
const DefaultMaxPages = 100

// AuthDocument is the token material the caller obtained for a partner.
type AuthDocument struct {
	Service      string `json:"service"`
	UserID       string `json:"userID"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Fetcher retrieves one page or resource from a partner.
type Fetcher interface {
	Fetch(ctx context.Context, p Partner, url string, auth AuthDocument) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, p Partner, url string, auth AuthDocument) ([]byte, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, p Partner, url string, auth AuthDocument) ([]byte, error) {
	return f(ctx, p, url, auth)
}

// Request is a partner import: where to fetch from and with which credentials.
type Request struct {
	formats.Request
	Auth     AuthDocument
	Fetcher  Fetcher
	MaxPages int
}

func (r Request) maxPages() int {
	if r.MaxPages <= 0 {
		return DefaultMaxPages
	}
	return r.MaxPages
}

// Parse fetches every page of g's play history from p and validates all
// items before any score is produced.
func Parse(ctx context.Context, p Partner, g game.Game, req Request) (model.Output, error) {
	dec, ok := decoders[g]
	if !ok || !p.Serves(g) {
		return model.Output{}, fmt.Errorf("%w: %s %s", ErrGameNotServed, p.Name, g)
	}
	if req.Fetcher == nil {
		return model.Output{}, ErrNoFetcher
	}
	if req.Auth.Service != p.Name {
		return model.Output{}, fmt.Errorf("%w: got %q, want %q", ErrAuthMismatch, req.Auth.Service, p.Name)
	}
	if req.ImportType == "" {
		req.ImportType = p.ImportType(g)
	}

	items, err := fetchAll(ctx, p, req, p.historyURL(g))
	if err != nil {
		return model.Output{}, err
	}
	inputs, err := dec.decodeAll(p, items)
	if err != nil {
		return model.Output{}, err
	}
	provider := classProvider(p, g, req.Fetcher, req.Auth)
	return formats.Emit(req.Request, p.Name, g, inputs, model.WithClassProvider(provider)), nil
}

// ParseFloIIDX imports IIDX scores from FLO.
func ParseFloIIDX(ctx context.Context, req Request) (model.Output, error) {
	return Parse(ctx, FLO, game.IIDX, req)
}

// ParseFloSDVX imports SDVX scores from FLO.
func ParseFloSDVX(ctx context.Context, req Request) (model.Output, error) {
	return Parse(ctx, FLO, game.SDVX, req)
}

// ParseEagIIDX imports IIDX scores from EAG.
func ParseEagIIDX(ctx context.Context, req Request) (model.Output, error) {
	return Parse(ctx, EAG, game.IIDX, req)
}

// ParseEagSDVX imports SDVX scores from EAG.
func ParseEagSDVX(ctx context.Context, req Request) (model.Output, error) {
	return Parse(ctx, EAG, game.SDVX, req)
}

// ParseMinSDVX imports SDVX scores from MIN.
func ParseMinSDVX(ctx context.Context, req Request) (model.Output, error) {
	return Parse(ctx, MIN, game.SDVX, req)
}
