package parser_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/scoreimport/internal/adapters/formats/kai"
	"github.com/okian/scoreimport/internal/domain/game"
	"github.com/okian/scoreimport/internal/domain/importerr"
	"github.com/okian/scoreimport/internal/domain/model"
	"github.com/okian/scoreimport/internal/domain/normalize"
	"github.com/okian/scoreimport/internal/parser"
	"github.com/okian/scoreimport/pkg/logger"
)

const merBatch = `[
 {"music_id":3007,"music_name":"Presto","play_type":"SINGLE","diff_type":"HYPER","score":566,"miss_count":46,"clear_type":"NO PLAY","update_time":"2019-06-01 19:56:59","note":498},
 {"music_id":3013,"music_name":"THE SAFARI","play_type":"SINGLE","diff_type":"NORMAL","score":681,"miss_count":102,"clear_type":"FAILED","update_time":"2019-05-30 03:21:57","note":500},
 {"music_id":3213,"music_name":"TAKE ON ME","play_type":"DOUBLE","diff_type":"ANOTHER","score":922,"miss_count":56,"clear_type":"FULLCOMBO CLEAR","update_time":"2019-05-03 02:10:58","note":800}
]`

// The second record has no note count and no lookup is configured.
const merWithoutMaximum = `[
 {"music_id":3007,"music_name":"Presto","play_type":"SINGLE","diff_type":"HYPER","score":566,"miss_count":46,"clear_type":"NO PLAY","update_time":"2019-06-01 19:56:59","note":498},
 {"music_id":3013,"music_name":"THE SAFARI","play_type":"SINGLE","diff_type":"NORMAL","score":681,"miss_count":102,"clear_type":"FAILED","update_time":"2019-05-30 03:21:57"}
]`

func TestRegistry(t *testing.T) {
	Convey("Given the default registry", t, func() {
		r := parser.NewRegistry()

		Convey("Every file format and default partner import is registered", func() {
			So(r.Types(), ShouldResemble, []parser.ImportType{
				parser.APIEagIIDX, parser.APIEagSDVX, parser.APIFloIIDX, parser.APIFloSDVX, parser.APIMinSDVX,
				parser.FileBatchManual, parser.FileEamusementIIDXCSV, parser.FileMerIIDX,
			})
			So(r.Supports("api/min-iidx"), ShouldBeFalse)
			So(parser.APIMinSDVX.IsAPI(), ShouldBeTrue)
			So(parser.FileMerIIDX.IsAPI(), ShouldBeFalse)
		})

		Convey("Configured partners replace the defaults", func() {
			only := parser.NewRegistry(kai.FLO.WithBaseURL("http://localhost:9000"))
			So(only.Types(), ShouldContain, parser.APIFloSDVX)
			So(only.Supports(parser.APIEagIIDX), ShouldBeFalse)
		})
	})
}

func TestParse(t *testing.T) {
	Convey("Given a registry and a recording logger", t, func() {
		r := parser.NewRegistry()
		log := logger.NewRecorder()
		ctx := context.Background()

		Convey("A valid batch logs completion once, after it drains", func() {
			out, err := r.Parse(ctx, parser.FileMerIIDX, parser.Input{Data: []byte(merBatch)}, parser.Aux{}, log)
			So(err, ShouldBeNil)
			So(log.Entries(), ShouldBeEmpty)

			scores, err := parser.Drain(out)
			So(err, ShouldBeNil)
			So(len(scores), ShouldEqual, 3)
			So(scores[2].Lamp, ShouldEqual, game.LampFullCombo)

			entries := log.Entries()
			So(len(entries), ShouldEqual, 1)
			So(entries[0].Message, ShouldEqual, "import completed")
			So(entries[0].Fields["scores"], ShouldEqual, 3)
		})

		Convey("Parsing the same bytes twice gives identical scores", func() {
			a, err := r.Parse(ctx, parser.FileMerIIDX, parser.Input{Data: []byte(merBatch)}, parser.Aux{}, log)
			So(err, ShouldBeNil)
			b, err := r.Parse(ctx, parser.FileMerIIDX, parser.Input{Data: []byte(merBatch)}, parser.Aux{}, log)
			So(err, ShouldBeNil)
			sa, _ := parser.Drain(a)
			sb, _ := parser.Drain(b)
			So(cmp.Diff(sa, sb), ShouldBeEmpty)
		})

		Convey("An unknown import type is rejected at dispatch", func() {
			_, err := r.Parse(ctx, "file/nope", parser.Input{}, parser.Aux{}, log)
			var se *parser.StageError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.Stage, ShouldEqual, parser.StageDispatch)
			So(errors.Is(err, parser.ErrUnknownImportType), ShouldBeTrue)
			So(parser.Kind(err), ShouldEqual, "unknown_import_type")
			So(log.Count("warn"), ShouldEqual, 1)
		})

		Convey("A decode failure is logged once with its record index", func() {
			_, err := r.Parse(ctx, parser.FileMerIIDX, parser.Input{Data: []byte(`{"not":"an array"}`)}, parser.Aux{}, log)
			So(errors.Is(err, importerr.ErrMalformedInput), ShouldBeTrue)
			So(parser.Kind(err), ShouldEqual, "malformed_input")

			bad := `[{"music_id":1,"music_name":"x","play_type":"TRIPLE","diff_type":"HYPER","score":1,"miss_count":0,"clear_type":"CLEAR","update_time":"2019-06-01 19:56:59"}]`
			_, err = r.Parse(ctx, parser.FileMerIIDX, parser.Input{Data: []byte(bad)}, parser.Aux{}, log)
			So(errors.Is(err, importerr.ErrUnrecognizedMode), ShouldBeTrue)

			entries := log.Entries()
			So(len(entries), ShouldEqual, 2)
			So(entries[1].Fields["stage"], ShouldEqual, "decode")
			So(entries[1].Fields["record_index"], ShouldEqual, 0)
			So(entries[0].Fields["record_index"], ShouldBeNil)
		})

		Convey("A normalization failure ends the sequence and is logged once", func() {
			out, err := r.Parse(ctx, parser.FileMerIIDX, parser.Input{Data: []byte(merWithoutMaximum)}, parser.Aux{}, log)
			So(err, ShouldBeNil)
			scores, err := parser.Drain(out)
			So(scores, ShouldBeNil)
			So(errors.Is(err, importerr.ErrNormalization), ShouldBeTrue)
			So(importerr.RecordIndex(err), ShouldEqual, 1)
			var se *parser.StageError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.Stage, ShouldEqual, parser.StageNormalize)
			So(log.Count("warn"), ShouldEqual, 1)
			So(log.Count("info"), ShouldEqual, 0)
		})

		Convey("A lookup supplies missing chart maxima", func() {
			aux := parser.Aux{ChartMaxima: maxima(1000)}
			out, err := r.Parse(ctx, parser.FileMerIIDX, parser.Input{Data: []byte(merWithoutMaximum)}, aux, log)
			So(err, ShouldBeNil)
			scores, err := parser.Drain(out)
			So(err, ShouldBeNil)
			So(scores[1].Percent, ShouldEqual, 68.1)
		})

		Convey("Stopping early logs nothing", func() {
			out, err := r.Parse(ctx, parser.FileMerIIDX, parser.Input{Data: []byte(merBatch)}, parser.Aux{}, log)
			So(err, ShouldBeNil)
			for range out.Scores() {
				break
			}
			So(log.Entries(), ShouldBeEmpty)
		})

		Convey("Partner imports need an auth document", func() {
			_, err := r.Parse(ctx, parser.APIFloIIDX, parser.Input{}, parser.Aux{}, log)
			So(errors.Is(err, parser.ErrMissingAuth), ShouldBeTrue)
			So(parser.Kind(err), ShouldEqual, "auth")
		})

		Convey("Partner imports go through the fetcher", func() {
			fetcher := kai.FetcherFunc(func(_ context.Context, _ kai.Partner, url string, _ kai.AuthDocument) ([]byte, error) {
				return []byte(`{"_links":{"_next":null},"_items":[{"song_id":5,"music_difficulty":2,"score":9000000,"clear_type":2,"max_chain":900,"critical":800,"near":90,"error":10,"timestamp":"2021-05-01T12:00:00Z"}]}`), nil
			})
			auth := &kai.AuthDocument{Service: "EAG", Token: "t"}
			out, err := r.Parse(ctx, parser.APIEagSDVX, parser.Input{Auth: auth}, parser.Aux{Fetcher: fetcher}, log)
			So(err, ShouldBeNil)
			scores, err := parser.Drain(out)
			So(err, ShouldBeNil)
			So(len(scores), ShouldEqual, 1)
			So(scores[0].Provenance.ImportType, ShouldEqual, "api/eag-sdvx")
			So(scores[0].Provenance.Service, ShouldEqual, "EAG")
		})
	})
}

func maxima(n int) normalize.ChartMaximaFunc {
	return func(game.GPT, model.ChartRef) (int, bool) { return n, true }
}
