package loadtest

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const merTimeLayout = "2006-01-02 15:04:05"

var (
	merDifficulties = []string{"NORMAL", "HYPER", "ANOTHER"}
	merClearTypes   = []string{"FAILED", "EASY CLEAR", "CLEAR", "HARD CLEAR", "EX HARD CLEAR", "FULLCOMBO CLEAR"}
	merPlayTypes    = []string{"SINGLE", "DOUBLE"}
)

// batchNamespace derives stable user ids from the seed.
var batchNamespace = uuid.MustParse("5b0c3e1e-3f9a-4c52-9d07-1a8e6b1f40d2")

type merRecord struct {
	MusicID    int    `json:"music_id"`
	MusicName  string `json:"music_name"`
	PlayType   string `json:"play_type"`
	DiffType   string `json:"diff_type"`
	Score      int    `json:"score"`
	MissCount  int    `json:"miss_count"`
	ClearType  string `json:"clear_type"`
	UpdateTime string `json:"update_time"`
	Note       int    `json:"note"`
}

// Batch is one upload.
type Batch struct {
	UserID  string
	Data    []byte
	Records int
}

// Generate builds cfg.Users*cfg.Batches Mer uploads. Every record of a user
// names a distinct chart so each one is stored as a new score.
func Generate(cfg Config) ([]Batch, error) {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	batches := make([]Batch, 0, cfg.Users*cfg.Batches)
	for u := range cfg.Users {
		user := uuid.NewSHA1(batchNamespace, fmt.Appendf(nil, "%d/%d", cfg.Seed, u)).String()
		for b := range cfg.Batches {
			recs := make([]merRecord, cfg.Records)
			for i := range recs {
				notes := 300 + rng.IntN(1700)
				id := 1000 + b*cfg.Records + i
				recs[i] = merRecord{
					MusicID:    id,
					MusicName:  fmt.Sprintf("Song %d", id),
					PlayType:   merPlayTypes[rng.IntN(len(merPlayTypes))],
					DiffType:   merDifficulties[rng.IntN(len(merDifficulties))],
					Score:      rng.IntN(notes*2 + 1),
					MissCount:  rng.IntN(notes/10 + 1),
					ClearType:  merClearTypes[rng.IntN(len(merClearTypes))],
					UpdateTime: base.Add(time.Duration(rng.IntN(365*24)) * time.Hour).Format(merTimeLayout),
					Note:       notes,
				}
			}
			data, err := json.Marshal(recs)
			if err != nil {
				return nil, fmt.Errorf("marshal batch %d of user %d: %w", b, u, err)
			}
			batches = append(batches, Batch{UserID: user, Data: data, Records: len(recs)})
		}
	}
	return batches, nil
}
