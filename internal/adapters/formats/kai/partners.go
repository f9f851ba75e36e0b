package kai

import (
	"maps"
	"slices"
	"strings"

	"github.com/okian/scoreimport/internal/domain/game"
)

// AuthStyle is how a partner expects the token to be presented.
type AuthStyle int

const (
	// AuthBearer sends "Authorization: Bearer <token>" and supports refresh.
	AuthBearer AuthStyle = iota
	// AuthAPIKey sends the token verbatim in APIKeyHeader.
	AuthAPIKey
)

func (s AuthStyle) String() string {
	switch s {
	case AuthBearer:
		return "bearer"
	case AuthAPIKey:
		return "api-key"
	default:
		return "unknown"
	}
}

// Endpoints are the per-game paths of a partner, relative to BaseURL.
type Endpoints struct {
	History string
	Profile string
}

// Partner describes one Kai-style service.
type Partner struct {
	Name         string
	BaseURL      string
	Auth         AuthStyle
	APIKeyHeader string
	// Fields renames partner-specific item fields to the shared names.
	Fields map[string]string
	Games  map[game.Game]Endpoints
}

var iidxEndpoints = Endpoints{History: "/api/iidx/v2/play_history", Profile: "/api/iidx/v2/player_profile"}

var sdvxEndpoints = Endpoints{History: "/api/sdvx/v1/play_history", Profile: "/api/sdvx/v1/player_profile"}

// Known partners with their default base URLs.
var (
	FLO = Partner{
		Name:    "FLO",
		BaseURL: "https://api.flo.ac",
		Auth:    AuthBearer,
		Games:   map[game.Game]Endpoints{game.IIDX: iidxEndpoints, game.SDVX: sdvxEndpoints},
	}
	EAG = Partner{
		Name:    "EAG",
		BaseURL: "https://api.eag.example",
		Auth:    AuthBearer,
		Games:   map[game.Game]Endpoints{game.IIDX: iidxEndpoints, game.SDVX: sdvxEndpoints},
	}
	MIN = Partner{
		Name:         "MIN",
		BaseURL:      "https://api.min.example",
		Auth:         AuthAPIKey,
		APIKeyHeader: "X-Api-Key",
		Fields:       map[string]string{"played_at": "timestamp"},
		Games:        map[game.Game]Endpoints{game.SDVX: sdvxEndpoints},
	}
)

// Partners returns the known partners.
func Partners() []Partner { return []Partner{FLO, EAG, MIN} }

// sourceField returns the partner's own name for a shared field.
func (p Partner) sourceField(shared string) (string, bool) {
	for from, to := range p.Fields {
		if to == shared {
			return from, true
		}
	}
	return "", false
}

// WithBaseURL returns a copy of p pointed at base. An empty base keeps the default.
func (p Partner) WithBaseURL(base string) Partner {
	if base != "" {
		p.BaseURL = base
	}
	return p
}

// Serves reports whether p exposes g.
func (p Partner) Serves(g game.Game) bool {
	_, ok := p.Games[g]
	return ok
}

// ServedGames returns the games p exposes in a fixed order.
func (p Partner) ServedGames() []game.Game {
	return slices.Sorted(maps.Keys(p.Games))
}

// ImportType is the registry name of p's importer for g.
func (p Partner) ImportType(g game.Game) string {
	return "api/" + strings.ToLower(p.Name) + "-" + string(g)
}

func (p Partner) historyURL(g game.Game) string {
	return strings.TrimSuffix(p.BaseURL, "/") + p.Games[g].History
}

func (p Partner) profileURL(g game.Game) string {
	return strings.TrimSuffix(p.BaseURL, "/") + p.Games[g].Profile
}
