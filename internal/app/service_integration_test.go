package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/scoreimport/internal/app"
	"github.com/okian/scoreimport/internal/adapters/formats/kai"
	"github.com/okian/scoreimport/internal/adapters/kaiclient"
	"github.com/okian/scoreimport/internal/adapters/repository"
	"github.com/okian/scoreimport/internal/domain/game"
	"github.com/okian/scoreimport/internal/domain/model"
	"github.com/okian/scoreimport/internal/domain/normalize"
	"github.com/okian/scoreimport/internal/parser"
	"github.com/okian/scoreimport/pkg/logger"
)

const floItem = `{"music_id":%d,"play_style":%q,"difficulty":"ANOTHER","lamp":5,"ex_score":1500,"miss_count":4,"fast_count":20,"slow_count":10,"timestamp":"2021-05-01T12:00:00Z"}`

// floServer serves one page of IIDX history and the player profile.
func floServer(profileCalls *atomic.Int32) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/iidx/v2/play_history", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"_links":{"_next":null},"_items":[%s,%s]}`,
			fmt.Sprintf(floItem, 1000, "SINGLE"), fmt.Sprintf(floItem, 1001, "DOUBLE"))
	})
	mux.HandleFunc("/api/iidx/v2/player_profile", func(w http.ResponseWriter, _ *http.Request) {
		profileCalls.Add(1)
		fmt.Fprint(w, `{"sp_dan":18,"dp_dan":7}`)
	})
	return httptest.NewServer(mux)
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service wired to a partner over HTTP", t, func() {
		var profileCalls atomic.Int32
		srv := floServer(&profileCalls)
		defer srv.Close()

		store := repository.NewMemoryStore()
		svc := service.New(
			service.WithLogger(logger.Nop()),
			service.WithWorkerCount(2),
			service.WithQueueSize(16),
			service.WithStore(store),
			service.WithPartners(kai.FLO.WithBaseURL(srv.URL)),
			service.WithFetcher(kaiclient.New(kaiclient.Config{})),
			service.WithChartMaxima(normalize.ChartMaximaFunc(
				func(game.GPT, model.ChartRef) (int, bool) { return 2000, true })),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Only the configured partner is accepted", func() {
			_, err := svc.Submit(ctx, service.Job{UserID: "u1", ImportType: parser.APIEagIIDX,
				Auth: &kai.AuthDocument{Service: "EAG", Token: "t"}})
			So(errors.Is(err, service.ErrUnsupportedType), ShouldBeTrue)
		})

		Convey("An API import stores scores and classifies once across playtypes", func() {
			auth := &kai.AuthDocument{Service: "FLO", UserID: "p1", Token: "tok"}
			st, err := svc.Submit(ctx, service.Job{UserID: "u1", ImportType: parser.APIFloIIDX, Auth: auth})
			So(err, ShouldBeNil)

			done := waitDone(svc, st.ID)
			So(done.State, ShouldEqual, model.ImportSucceeded)
			So(done.Error, ShouldBeEmpty)
			So(done.Added, ShouldEqual, 2)
			So(profileCalls.Load(), ShouldEqual, 1)
			So(done.Classes["iidx:SP"][game.ClassDan], ShouldEqual, "KAIDEN")
			So(done.Classes["iidx:DP"][game.ClassDan], ShouldEqual, "1DAN")

			classes, err := svc.Classes(ctx, "u1", game.IIDXDP)
			So(err, ShouldBeNil)
			So(classes[game.ClassDan], ShouldEqual, "1DAN")

			scores, err := svc.Scores(ctx, repository.ScoreFilter{UserID: "u1", Playtype: game.SP})
			So(err, ShouldBeNil)
			So(len(scores), ShouldEqual, 1)
			So(scores[0].Percent, ShouldEqual, 75.0)

			Convey("Syncing again adds nothing but is not a duplicate", func() {
				st, err := svc.Submit(ctx, service.Job{UserID: "u1", ImportType: parser.APIFloIIDX, Auth: auth})
				So(err, ShouldBeNil)
				done := waitDone(svc, st.ID)
				So(done.State, ShouldEqual, model.ImportSucceeded)
				So(done.Scores, ShouldEqual, 2)
				So(done.Added, ShouldEqual, 0)
				So(store.Count(ctx), ShouldEqual, 2)
			})
		})

		Convey("A batch-manual upload stores its declared classes", func() {
			doc := `{"meta":{"game":"sdvx","playtype":"Single","service":"script"},
				"scores":[{"score":9900000,"lamp":"CLEAR","matchType":"inGameID","identifier":"1204","difficulty":"MXM","timeAchieved":null}],
				"classes":{"dan":"DAN_11"}}`
			st, err := svc.Submit(ctx, service.Job{UserID: "u1", ImportType: parser.FileBatchManual, Data: []byte(doc)})
			So(err, ShouldBeNil)
			done := waitDone(svc, st.ID)
			So(done.State, ShouldEqual, model.ImportSucceeded)
			So(done.Classes["sdvx:Single"][game.ClassDan], ShouldEqual, "DAN_11")
		})

		Convey("A batch failing normalization stores nothing", func() {
			noMax := service.New(
				service.WithLogger(logger.Nop()),
				service.WithWorkerCount(1),
				service.WithStore(store),
				service.WithPartners(kai.FLO.WithBaseURL(srv.URL)),
				service.WithFetcher(kaiclient.New(kaiclient.Config{})),
			)
			So(noMax.Start(ctx), ShouldBeNil)
			defer noMax.Stop()

			st, err := noMax.Submit(ctx, service.Job{UserID: "u9", ImportType: parser.APIFloIIDX,
				Auth: &kai.AuthDocument{Service: "FLO", Token: "tok"}})
			So(err, ShouldBeNil)
			done := waitDone(noMax, st.ID)
			So(done.State, ShouldEqual, model.ImportFailed)
			So(done.ErrorKind, ShouldEqual, "normalization")
			So(profileCalls.Load(), ShouldEqual, 0)
			scores, err := store.Scores(ctx, repository.ScoreFilter{UserID: "u9"})
			So(err, ShouldBeNil)
			So(scores, ShouldBeEmpty)
		})
	})
}
