package kai

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/okian/scoreimport/internal/domain/importerr"
	"github.com/okian/scoreimport/internal/domain/validate"
)

const (
	linksField = "_links"
	nextField  = "_next"
	itemsField = "_items"
)

// fetchAll walks the envelope's _next links and returns every item across
// all pages, indexed in page order. Nothing is decoded until the last page
// has arrived.
func fetchAll(ctx context.Context, p Partner, req Request, first string) ([]validate.Record, error) {
	format := req.ImportType
	base, err := url.Parse(first)
	if err != nil {
		return nil, importerr.Malformed(format, "invalid partner URL", err)
	}

	var items []validate.Record
	seen := map[string]bool{}
	next := first
	for page := 0; next != ""; page++ {
		if page >= req.maxPages() {
			return nil, importerr.Malformed(format, "more than "+strconv.Itoa(req.maxPages())+" pages", nil)
		}
		if seen[next] {
			return nil, importerr.Malformed(format, "pagination loops back to "+next, nil)
		}
		seen[next] = true

		body, err := fetch(ctx, p, req.Fetcher, req.Auth, next)
		if err != nil {
			return nil, err
		}
		pageItems, link, err := decodePage(format, body)
		if err != nil {
			return nil, err
		}
		for _, it := range pageItems {
			items = append(items, validate.NewRecord(len(items), renamed(p, it)))
		}
		if next, err = resolveNext(format, base, next, link); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func fetch(ctx context.Context, p Partner, f Fetcher, auth AuthDocument, u string) ([]byte, error) {
	body, err := f.Fetch(ctx, p, u, auth)
	if err != nil {
		var fe *importerr.FetchError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &importerr.FetchError{Service: p.Name, URL: u, Err: err}
	}
	return body, nil
}

func decodePage(format string, body []byte) ([]validate.Record, string, error) {
	doc, err := validate.DecodeObject(format, body)
	if err != nil {
		return nil, "", err
	}
	items, err := validate.ObjectArray(format, doc, itemsField)
	if err != nil {
		return nil, "", err
	}
	links, ok, err := validate.OptionalObject(doc, linksField)
	if err != nil || !ok {
		return nil, "", importerr.Malformed(format, "missing "+linksField, err)
	}
	raw, ok := links.Lookup(nextField)
	if !ok {
		return nil, "", importerr.Malformed(format, "missing "+linksField+"."+nextField, nil)
	}
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return items, "", nil
	}
	var next string
	if err := json.Unmarshal(raw, &next); err != nil {
		return nil, "", importerr.Malformed(format, linksField+"."+nextField+" is not a string or null", err)
	}
	return items, next, nil
}

// resolveNext resolves a possibly relative link and keeps pagination on the
// partner's host.
func resolveNext(format string, base *url.URL, current, link string) (string, error) {
	if link == "" {
		return "", nil
	}
	cur, err := url.Parse(current)
	if err != nil {
		return "", importerr.Malformed(format, "invalid page URL", err)
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", importerr.Malformed(format, "invalid "+nextField+" link", err)
	}
	abs := cur.ResolveReference(ref)
	if abs.Scheme != base.Scheme || abs.Host != base.Host {
		return "", importerr.Malformed(format, nextField+" link leaves partner host: "+abs.Host, nil)
	}
	return abs.String(), nil
}

func renamed(p Partner, rec validate.Record) map[string]json.RawMessage {
	if len(p.Fields) == 0 {
		return rec.Fields()
	}
	out := make(map[string]json.RawMessage, len(rec.Fields()))
	for k, v := range rec.Fields() {
		if _, aliased := p.Fields[k]; !aliased {
			out[k] = v
		}
	}
	// Aliased partner fields win over a shared name sent alongside them.
	for k, v := range rec.Fields() {
		if to, aliased := p.Fields[k]; aliased {
			out[to] = v
		}
	}
	return out
}
