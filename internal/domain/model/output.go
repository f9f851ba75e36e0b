package model

import (
	"context"
	"errors"
	"iter"
	"maps"
	"slices"
	"sync/atomic"

	"github.com/okian/scoreimport/internal/domain/game"
)

// ErrSequenceConsumed is yielded when a score sequence is ranged a second time.
var ErrSequenceConsumed = errors.New("score sequence already consumed")

// Context is the optional per-format key-value side channel.
type Context map[string]string

// ClassSummary is what the caller hands a ClassProvider after persisting
// every score of the batch: the persisted score count per playtype.
type ClassSummary struct {
	UserID string
	Game   game.Game
	Counts map[game.Playtype]int
}

// Playtypes returns the playtypes with at least one score, sorted.
func (s ClassSummary) Playtypes() []game.Playtype {
	out := make([]game.Playtype, 0, len(s.Counts))
	for pt, n := range s.Counts {
		if n > 0 {
			out = append(out, pt)
		}
	}
	slices.Sort(out)
	return out
}

// Classes maps a class set to the achieved value.
type Classes map[game.ClassSet]string

// Achievements holds the classes derived for each pair of an import.
type Achievements map[game.GPT]Classes

// ClassProvider derives class achievements for the importing user. The
// caller invokes it exactly once per import, after persistence.
type ClassProvider func(ctx context.Context, summary ClassSummary) (Achievements, error)

// Output is the uniform contract of every parser. Context and class provider
// are optional; use the accessors to tell absent from empty.
type Output struct {
	Game game.Game

	context       Context
	hasContext    bool
	classProvider ClassProvider
	seq           iter.Seq2[Score, error]
	consumed      *atomic.Bool
}

// OutputOption configures optional parts of an Output.
type OutputOption func(*Output)

// WithContext attaches a context bag.
func WithContext(c Context) OutputOption {
	return func(o *Output) {
		o.context = maps.Clone(c)
		o.hasContext = true
	}
}

// WithClassProvider attaches a class provider. A nil provider is ignored.
func WithClassProvider(p ClassProvider) OutputOption {
	return func(o *Output) {
		if p != nil {
			o.classProvider = p
		}
	}
}

// NewOutput builds an Output around a lazy score sequence.
func NewOutput(g game.Game, seq iter.Seq2[Score, error], opts ...OutputOption) Output {
	o := Output{Game: g, seq: seq, consumed: new(atomic.Bool)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Context returns the context bag and whether the format supplied one.
func (o Output) Context() (Context, bool) {
	if !o.hasContext {
		return nil, false
	}
	return maps.Clone(o.context), true
}

// ClassProvider returns the class provider and whether the format supplied one.
func (o Output) ClassProvider() (ClassProvider, bool) {
	return o.classProvider, o.classProvider != nil
}

// Scores returns the lazy sequence. Each element is produced when the caller
// asks for it, in source order. The sequence can be ranged once; later
// attempts yield ErrSequenceConsumed.
func (o Output) Scores() iter.Seq2[Score, error] {
	return func(yield func(Score, error) bool) {
		if o.seq == nil {
			return
		}
		if o.consumed == nil || !o.consumed.CompareAndSwap(false, true) {
			yield(Score{}, ErrSequenceConsumed)
			return
		}
		o.seq(yield)
	}
}

// Wrap returns a copy whose sequence is wrap(original). The copy has its own
// consumption guard.
func (o Output) Wrap(wrap func(iter.Seq2[Score, error]) iter.Seq2[Score, error]) Output {
	inner := o.seq
	o.seq = wrap(inner)
	o.consumed = new(atomic.Bool)
	return o
}
