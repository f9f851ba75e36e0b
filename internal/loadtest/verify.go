package loadtest

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/scoreimport/pkg/logger"
)

// verify checks that every user has exactly the scores their imports added.
func verify(ctx context.Context, client *Client, expected map[string]int, stats *Stats, log logger.Logger) error {
	users := make([]string, 0, len(expected))
	for u := range expected {
		users = append(users, u)
	}
	sort.Strings(users)

	var mismatched int
	for _, u := range users {
		scores, err := client.Scores(ctx, u, maxScoresPerUser)
		if err != nil {
			return fmt.Errorf("fetch scores: %w", err)
		}
		if len(scores) != expected[u] {
			mismatched++
			log.Warn(ctx, "score count mismatch",
				logger.String("user_id", u),
				logger.Int("expected", expected[u]),
				logger.Int("stored", len(scores)),
			)
			continue
		}
		for i := 1; i < len(scores); i++ {
			cur, prev := scores[i].TimeAchieved, scores[i-1].TimeAchieved
			if cur != nil && prev != nil && cur.After(*prev) {
				mismatched++
				log.Warn(ctx, "scores not newest first", logger.String("user_id", u))
				break
			}
		}
		stats.Verified += len(scores)
	}
	if mismatched > 0 {
		return fmt.Errorf("%w: %d of %d users", ErrMismatch, mismatched, len(users))
	}
	log.Info(ctx, "stored scores verified", logger.Int("users", len(users)), logger.Int("scores", stats.Verified))
	return nil
}
