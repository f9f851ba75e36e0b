package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/scoreimport/internal/domain/game"
	"github.com/okian/scoreimport/internal/domain/model"
)

func score(id string, gpt game.GPT, at *time.Time) model.Score {
	return model.Score{ID: id, Game: gpt.Game, Playtype: gpt.Playtype, TimeAchieved: at}
}

func at(day int) *time.Time {
	t := time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestMemoryStoreScores(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		s := NewMemoryStore()

		Convey("A batch is stored and repeats are skipped", func() {
			batch := []model.Score{score("a", game.IIDXSP, at(1)), score("b", game.IIDXSP, at(2))}
			added, err := s.SaveBatch(ctx, "u1", batch)
			So(err, ShouldBeNil)
			So(added, ShouldEqual, 2)

			added, err = s.SaveBatch(ctx, "u1", append(batch, score("c", game.IIDXDP, nil)))
			So(err, ShouldBeNil)
			So(added, ShouldEqual, 1)
			So(s.Count(ctx), ShouldEqual, 3)

			Convey("The same ID for another user is a separate score", func() {
				added, err := s.SaveBatch(ctx, "u2", batch[:1])
				So(err, ShouldBeNil)
				So(added, ShouldEqual, 1)
				So(s.Count(ctx), ShouldEqual, 4)
			})
		})

		Convey("A batch with an unidentified score stores nothing", func() {
			_, err := s.SaveBatch(ctx, "u1", []model.Score{score("a", game.IIDXSP, nil), {}})
			So(errors.Is(err, ErrMissingID), ShouldBeTrue)
			So(s.Count(ctx), ShouldEqual, 0)
		})

		Convey("A batch without a user is refused", func() {
			_, err := s.SaveBatch(ctx, "", nil)
			So(errors.Is(err, ErrMissingUser), ShouldBeTrue)
		})

		Convey("Queries filter by pair and sort newest first", func() {
			_, _ = s.SaveBatch(ctx, "u1", []model.Score{
				score("old", game.IIDXSP, at(1)),
				score("undated", game.IIDXSP, nil),
				score("new", game.IIDXSP, at(9)),
				score("sdvx", game.SDVXSingle, at(5)),
			})
			got, err := s.Scores(ctx, ScoreFilter{UserID: "u1", Game: game.IIDX, Playtype: game.SP})
			So(err, ShouldBeNil)
			ids := make([]string, len(got))
			for i, sc := range got {
				ids[i] = sc.ID
			}
			So(ids, ShouldResemble, []string{"new", "old", "undated"})

			got, _ = s.Scores(ctx, ScoreFilter{UserID: "u1", Limit: 1})
			So(got[0].ID, ShouldEqual, "new")

			sum := s.Summary(ctx, "u1", game.IIDX, game.SP, game.DP)
			So(sum.Counts, ShouldResemble, map[game.Playtype]int{game.SP: 3, game.DP: 0})
			So(sum.Playtypes(), ShouldResemble, []game.Playtype{game.SP})
			So(s.Summary(ctx, "u1", game.SDVX).Counts, ShouldResemble, map[game.Playtype]int{game.Single: 1})
			So(s.Summary(ctx, "u1", game.CHUNITHM).Counts, ShouldBeEmpty)
		})
	})
}

func TestMemoryStoreClassesAndJobs(t *testing.T) {
	Convey("Given a store", t, func() {
		ctx := context.Background()
		s := NewMemoryStore(WithMaxJobs(2))

		Convey("Classes merge per user and pair", func() {
			_, err := s.Classes(ctx, "u1", game.IIDXSP)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)

			So(s.SaveClasses(ctx, "u1", model.Achievements{game.IIDXSP: {game.ClassDan: "7th dan"}}), ShouldBeNil)
			So(s.SaveClasses(ctx, "u1", model.Achievements{
				game.IIDXSP: {game.ClassDan: "KAIDEN"},
				game.IIDXDP: {game.ClassDan: "1st dan"},
			}), ShouldBeNil)
			c, err := s.Classes(ctx, "u1", game.IIDXSP)
			So(err, ShouldBeNil)
			So(c[game.ClassDan], ShouldEqual, "KAIDEN")
			c, err = s.Classes(ctx, "u1", game.IIDXDP)
			So(err, ShouldBeNil)
			So(c[game.ClassDan], ShouldEqual, "1st dan")
		})

		Convey("Job statuses are replaced in place and the oldest is evicted", func() {
			So(s.SaveJob(ctx, model.ImportStatus{ID: "j1", State: model.ImportQueued}), ShouldBeNil)
			So(s.SaveJob(ctx, model.ImportStatus{ID: "j1", State: model.ImportSucceeded}), ShouldBeNil)
			So(s.SaveJob(ctx, model.ImportStatus{ID: "j2"}), ShouldBeNil)

			st, err := s.Job(ctx, "j1")
			So(err, ShouldBeNil)
			So(st.State, ShouldEqual, model.ImportSucceeded)
			So(st.Done(), ShouldBeTrue)

			So(s.SaveJob(ctx, model.ImportStatus{ID: "j3"}), ShouldBeNil)
			_, err = s.Job(ctx, "j1")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			_, err = s.Job(ctx, "j3")
			So(err, ShouldBeNil)
		})
	})
}
