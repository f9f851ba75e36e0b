package kai

import (
	"context"
	"fmt"

	"github.com/okian/scoreimport/internal/domain/game"
	"github.com/okian/scoreimport/internal/domain/model"
	"github.com/okian/scoreimport/internal/domain/validate"
)

// classProvider fetches the player profile once per invocation and reads the
// dan class of every summarised playtype. A side without a dan is omitted.
func classProvider(p Partner, g game.Game, f Fetcher, auth AuthDocument) model.ClassProvider {
	return func(ctx context.Context, summary model.ClassSummary) (model.Achievements, error) {
		if summary.Game != g {
			return nil, fmt.Errorf("%w: summary for %s, import for %s", ErrGameNotServed, summary.Game, g)
		}
		playtypes := summary.Playtypes()
		if len(playtypes) == 0 {
			return model.Achievements{}, nil
		}
		body, err := fetch(ctx, p, f, auth, p.profileURL(g))
		if err != nil {
			return nil, err
		}
		profile, err := validate.DecodeObject(p.ImportType(g), body)
		if err != nil {
			return nil, err
		}

		out := make(model.Achievements, len(playtypes))
		for _, pt := range playtypes {
			gpt := game.GPT{Game: g, Playtype: pt}
			info, ok := game.Lookup(gpt)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrGameNotServed, gpt)
			}
			dans := info.Classes[game.ClassDan]
			field, offset := danField(gpt)
			idx, err := validate.OptionalInt(profile, field, offset, offset+len(dans)-1)
			if err != nil {
				return nil, err
			}
			if idx == nil {
				continue
			}
			out[gpt] = model.Classes{game.ClassDan: dans[*idx-offset]}
		}
		return out, nil
	}
}

// danField names the profile field holding the dan and the value of its
// lowest class. IIDX dans are zero-based per side; SDVX skill levels start at 1.
func danField(gpt game.GPT) (string, int) {
	switch gpt {
	case game.IIDXSP:
		return "sp_dan", 0
	case game.IIDXDP:
		return "dp_dan", 0
	default:
		return "skill_level", 1
	}
}
