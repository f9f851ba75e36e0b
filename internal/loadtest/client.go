package loadtest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/scoreimport/internal/domain/model"
	"github.com/okian/scoreimport/internal/parser"
)

// maxScoresPerUser is the server's default /scores limit.
const maxScoresPerUser = 500

// Client talks to the import API.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient returns a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{http: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.get(ctx, "/healthz")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthz returned %d", resp.StatusCode)
	}
	return nil
}

// SubmitFile posts data to /imports/file. The status code is returned along
// with the decoded body when the import was accepted.
func (c *Client) SubmitFile(ctx context.Context, t parser.ImportType, user string, data []byte) (int, model.ImportStatus, error) {
	q := url.Values{"type": {string(t)}, "user": {user}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/imports/file?"+q.Encode(), bytes.NewReader(data))
	if err != nil {
		return 0, model.ImportStatus{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, model.ImportStatus{}, err
	}
	defer resp.Body.Close()

	var st model.ImportStatus
	if resp.StatusCode == http.StatusAccepted {
		if err := decode(resp.Body, &st); err != nil {
			return resp.StatusCode, st, err
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, st, nil
}

// Status fetches GET /imports/{id}.
func (c *Client) Status(ctx context.Context, id string) (model.ImportStatus, error) {
	var st model.ImportStatus
	resp, err := c.get(ctx, "/imports/"+url.PathEscape(id))
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("status of %s returned %d", id, resp.StatusCode)
	}
	return st, decode(resp.Body, &st)
}

// Scores fetches up to limit stored scores of user.
func (c *Client) Scores(ctx context.Context, user string, limit int) ([]model.Score, error) {
	q := url.Values{"user": {user}, "limit": {strconv.Itoa(limit)}}
	resp, err := c.get(ctx, "/scores?"+q.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scores of %s returned %d", user, resp.StatusCode)
	}
	var scores []model.Score
	return scores, decode(resp.Body, &scores)
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

func decode(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
