// Package repository persists canonical scores, per-user classes and
// import statuses.
package repository

import (
	"context"

	"github.com/okian/scoreimport/internal/domain/game"
	"github.com/okian/scoreimport/internal/domain/model"
)

// ScoreFilter selects a user's scores. Zero Game or Playtype matches all.
type ScoreFilter struct {
	UserID   string
	Game     game.Game
	Playtype game.Playtype
	// Limit caps the result; zero means no cap.
	Limit int
}

// ScoreStore persists canonical scores.
type ScoreStore interface {
	// SaveBatch stores every score of one import or none of them. Scores
	// already held for the user are skipped. Returns how many were added.
	SaveBatch(ctx context.Context, userID string, scores []model.Score) (int, error)

	// Scores returns matching scores, newest first.
	Scores(ctx context.Context, f ScoreFilter) ([]model.Score, error)

	// Summary counts the user's stored scores of g for each listed
	// playtype, or for every playtype held when none is listed.
	Summary(ctx context.Context, userID string, g game.Game, playtypes ...game.Playtype) model.ClassSummary

	// SaveClasses merges achieved classes for the user, pair by pair.
	SaveClasses(ctx context.Context, userID string, achieved model.Achievements) error

	// Classes returns the user's classes for gpt.
	Classes(ctx context.Context, userID string, gpt game.GPT) (model.Classes, error)

	// Count returns the number of stored scores.
	Count(ctx context.Context) int
}

// JobStore keeps import statuses.
type JobStore interface {
	SaveJob(ctx context.Context, status model.ImportStatus) error
	Job(ctx context.Context, id string) (model.ImportStatus, error)
}

// Store is the full persistence surface of the service.
type Store interface {
	ScoreStore
	JobStore
}
