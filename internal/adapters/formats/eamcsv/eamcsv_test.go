package eamcsv

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"

	"github.com/okian/scoreimport/internal/adapters/formats"
	"github.com/okian/scoreimport/internal/domain/game"
	"github.com/okian/scoreimport/internal/domain/importerr"
	"github.com/okian/scoreimport/internal/domain/model"
	"github.com/okian/scoreimport/internal/domain/normalize"
)

func group(level, score, pgreat, great int, bp, lamp, grade string) []string {
	return []string{strconv.Itoa(level), strconv.Itoa(score), strconv.Itoa(pgreat), strconv.Itoa(great), bp, lamp, grade}
}

func currentRow(title string) []string {
	row := []string{"IIDX RED", title, "TRANCE", "Artist", "12"}
	row = append(row, group(0, 0, 0, 0, "---", "NO PLAY", "---")...)
	row = append(row, group(5, 800, 350, 100, "12", "CLEAR", "A")...)
	row = append(row, group(9, 0, 0, 0, "---", "NO PLAY", "---")...)
	row = append(row, group(11, 1700, 800, 100, "3", "HARD CLEAR", "AAA")...)
	row = append(row, group(0, 0, 0, 0, "---", "NO PLAY", "---")...)
	return append(row, "2023-04-05 06:07")
}

func toCSV(rows ...[]string) []byte {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(strings.Join(r, ","))
		b.WriteString("\r\n")
	}
	return []byte(b.String())
}

func fixedMaxima() *normalize.Normalizer {
	return normalize.New(normalize.WithChartMaxima(normalize.ChartMaximaFunc(
		func(game.GPT, model.ChartRef) (int, bool) { return 2000, true })))
}

func request(data []byte) formats.Request {
	return formats.Request{ImportType: Format, Data: data, Playtype: "SP", Normalizer: fixedMaxima()}
}

func collect(out model.Output) ([]model.Score, error) {
	var scores []model.Score
	for s, err := range out.Scores() {
		if err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, nil
}

func TestDecode(t *testing.T) {
	Convey("Given a current-layout export", t, func() {
		data := toCSV(buildHeader(layouts[LayoutCurrent]), currentRow("Song A"), currentRow("Song B"))

		Convey("Played difficulties become scores and unplayed ones are skipped", func() {
			out, err := Decode(request(data))
			So(err, ShouldBeNil)
			scores, err := collect(out)
			So(err, ShouldBeNil)
			So(len(scores), ShouldEqual, 4)
			So(scores[0].Chart.Difficulty, ShouldEqual, "NORMAL")
			So(scores[1].Chart.Difficulty, ShouldEqual, "ANOTHER")
			So(scores[1].Lamp, ShouldEqual, game.LampHardClear)
			So(scores[1].Judgements, ShouldResemble, map[string]int{"pgreat": 800, "great": 100})
			So(*scores[1].HitMeta.BP, ShouldEqual, 3)
			So(scores[1].Percent, ShouldEqual, 85.0)
			So(scores[2].Chart.Identifier, ShouldEqual, "Song B")
			So(scores[2].Provenance.RecordIndex, ShouldEqual, 1)
		})

		Convey("The context reports playtype and layout", func() {
			out, err := Decode(request(data))
			So(err, ShouldBeNil)
			c, ok := out.Context()
			So(ok, ShouldBeTrue)
			So(c[ContextPlaytype], ShouldEqual, "SP")
			So(c[ContextLayout], ShouldEqual, LayoutCurrent)
		})

		Convey("Shift_JIS text decodes the same", func() {
			sjis, err := japanese.ShiftJIS.NewEncoder().Bytes(data)
			So(err, ShouldBeNil)
			out, err := Decode(request(sjis))
			So(err, ShouldBeNil)
			scores, err := collect(out)
			So(err, ShouldBeNil)
			So(len(scores), ShouldEqual, 4)
		})

		Convey("A byte-order mark is ignored", func() {
			_, err := Decode(request(append([]byte("\xEF\xBB\xBF"), data...)))
			So(err, ShouldBeNil)
		})

		Convey("A workbook re-saved as XLSX decodes the same", func() {
			f := excelize.NewFile()
			rows := [][]string{buildHeader(layouts[LayoutCurrent]), currentRow("Song A")}
			for i, r := range rows {
				cellName, err := excelize.CoordinatesToCellName(1, i+1)
				So(err, ShouldBeNil)
				So(f.SetSheetRow("Sheet1", cellName, &r), ShouldBeNil)
			}
			buf, err := f.WriteToBuffer()
			So(err, ShouldBeNil)
			So(f.Close(), ShouldBeNil)

			out, err := Decode(request(buf.Bytes()))
			So(err, ShouldBeNil)
			scores, err := collect(out)
			So(err, ShouldBeNil)
			So(len(scores), ShouldEqual, 2)
		})
	})

	Convey("Given a legacy-layout export", t, func() {
		row := []string{"IIDX RED", "Old Song", "TRANCE", "Artist", "3"}
		row = append(row, group(5, 700, 300, 100, "20", "EASY CLEAR", "B")...)
		row = append(row, group(8, 0, 0, 0, "---", "NO PLAY", "---")...)
		row = append(row, group(10, 900, 400, 100, "---", "FAILED", "C")...)
		row = append(row, "2015-01-01 00:00")
		out, err := Decode(request(toCSV(buildHeader(layouts[LayoutLegacy]), row)))
		So(err, ShouldBeNil)
		c, _ := out.Context()
		So(c[ContextLayout], ShouldEqual, LayoutLegacy)
		scores, err := collect(out)
		So(err, ShouldBeNil)
		So(len(scores), ShouldEqual, 2)
		So(scores[1].HitMeta.BP, ShouldBeNil)
	})
}

func TestDecodeRejects(t *testing.T) {
	Convey("Given invalid exports", t, func() {
		header := buildHeader(layouts[LayoutCurrent])

		Convey("A missing playtype is an unrecognized mode", func() {
			req := request(toCSV(header, currentRow("A")))
			req.Playtype = ""
			_, err := Decode(req)
			So(errors.Is(err, importerr.ErrUnrecognizedMode), ShouldBeTrue)
		})

		Convey("An unknown header is malformed", func() {
			_, err := Decode(request(toCSV([]string{"a", "b"}, []string{"1", "2"})))
			So(errors.Is(err, importerr.ErrMalformedInput), ShouldBeTrue)
		})

		Convey("A short row is malformed", func() {
			_, err := Decode(request(toCSV(header, []string{"x", "y"})))
			So(errors.Is(err, importerr.ErrMalformedInput), ShouldBeTrue)
		})

		Convey("An unknown clear type names its row", func() {
			bad := currentRow("A")
			bad[len(songColumns)+len(groupColumns)+5] = "SUPER CLEAR"
			_, err := Decode(request(toCSV(header, currentRow("ok"), bad)))
			var fv *importerr.FieldValidationError
			So(errors.As(err, &fv), ShouldBeTrue)
			So(fv.Index, ShouldEqual, 1)
			So(fv.Field, ShouldEqual, "NORMAL クリアタイプ")
		})

		Convey("A bad timestamp fails validation", func() {
			bad := currentRow("A")
			bad[len(bad)-1] = "yesterday"
			_, err := Decode(request(toCSV(header, bad)))
			So(errors.Is(err, importerr.ErrFieldValidation), ShouldBeTrue)
		})
	})
}
