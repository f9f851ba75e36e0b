package game

import (
	"fmt"

	"github.com/okian/scoreimport/internal/domain/importerr"
)

// ModeTable maps the mode tokens of one source format onto canonical pairs.
// Each decoder owns exactly one table so its mode vocabulary is auditable in
// one place.
type ModeTable[K comparable] map[K]GPT

// Resolve returns the pair for token or an UnrecognizedModeError naming the
// record and field the token came from.
func (t ModeTable[K]) Resolve(index int, field string, token K) (GPT, error) {
	gpt, ok := t[token]
	if !ok || !Supported(gpt) {
		return GPT{}, &importerr.UnrecognizedModeError{
			Index: index,
			Field: field,
			Value: fmt.Sprintf("%#v", token),
		}
	}
	return gpt, nil
}
