// Command parse runs one file import offline and prints the canonical scores
// as JSON. Nothing is stored.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/scoreimport/internal/adapters/charts"
	"github.com/okian/scoreimport/internal/domain/game"
	"github.com/okian/scoreimport/internal/domain/model"
	"github.com/okian/scoreimport/internal/parser"
	"github.com/okian/scoreimport/pkg/logger"
)

type options struct {
	importType string
	playtype   string
	zone       string
	chartsFile string
	path       string
}

// result is what the command prints for a successful batch.
type result struct {
	ImportType string                   `json:"importType"`
	Game       string                   `json:"game"`
	Context    model.Context            `json:"context,omitempty"`
	Scores     []model.Score            `json:"scores"`
	Classes    map[string]model.Classes `json:"classes,omitempty"`
}

func main() {
	var opts options
	flag.StringVar(&opts.importType, "type", string(parser.FileMerIIDX), "import type")
	flag.StringVar(&opts.playtype, "playtype", "", "playtype for formats that need one (SP or DP)")
	flag.StringVar(&opts.zone, "zone", "Asia/Tokyo", "zone for timestamps without an offset")
	flag.StringVar(&opts.chartsFile, "charts", "", "optional YAML chart maxima table")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: parse [flags] FILE")
		flag.PrintDefaults()
		os.Exit(2)
	}
	opts.path = flag.Arg(0)

	if err := logger.InitWithWriter(os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	if err := run(context.Background(), opts, os.Stdout, logger.Get()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, w io.Writer, log logger.Logger) error {
	t := parser.ImportType(opts.importType)
	if t.IsAPI() {
		err := fmt.Errorf("%s needs a partner account; submit it to the service instead", t)
		log.Error(ctx, "unsupported import", logger.Error(err))
		return err
	}
	data, err := os.ReadFile(opts.path)
	if err != nil {
		log.Error(ctx, "reading input", logger.Error(err))
		return err
	}
	loc, err := time.LoadLocation(opts.zone)
	if err != nil {
		log.Error(ctx, "loading zone", logger.Error(err))
		return err
	}
	aux := parser.Aux{Playtype: opts.playtype, Location: loc}
	if opts.chartsFile != "" {
		tbl, err := charts.Load(opts.chartsFile)
		if err != nil {
			log.Error(ctx, "loading chart table", logger.Error(err))
			return err
		}
		aux.ChartMaxima = tbl
	}

	// The registry logs rejections itself.
	out, err := parser.NewRegistry().Parse(ctx, t, parser.Input{Data: data, Filename: filepath.Base(opts.path)}, aux, log)
	if err != nil {
		return err
	}
	scores, err := parser.Drain(out)
	if err != nil {
		return err
	}

	res := result{ImportType: string(t), Game: string(out.Game), Scores: scores}
	if c, ok := out.Context(); ok {
		res.Context = c
	}
	if provider, ok := out.ClassProvider(); ok {
		res.Classes, err = offlineClasses(ctx, provider, out, scores)
		if err != nil {
			log.Warn(ctx, "class provider failed", logger.Error(err))
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return errors.Join(errors.New("writing output"), err)
	}
	return nil
}

// offlineClasses runs the provider against a summary of this batch alone.
func offlineClasses(ctx context.Context, provider model.ClassProvider, out model.Output, scores []model.Score) (map[string]model.Classes, error) {
	summary := model.ClassSummary{Game: out.Game, Counts: map[game.Playtype]int{}}
	for _, s := range scores {
		summary.Counts[s.Playtype]++
	}
	achieved, err := provider(ctx, summary)
	if err != nil {
		return nil, err
	}
	return achieved.Flatten(), nil
}
