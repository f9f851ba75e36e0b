package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/scoreimport/internal/adapters/repository"
	"github.com/okian/scoreimport/internal/domain/game"
)

type scoresHandler struct {
	deps     Dependencies
	maxLimit int
}

// handleList handles GET /scores?user=&game=&playtype=&limit=.
func (h *scoresHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.ScoreFilter{
		UserID:   q.Get("user"),
		Game:     game.Game(q.Get("game")),
		Playtype: game.Playtype(q.Get("playtype")),
		Limit:    h.maxLimit,
	}
	if f.UserID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing user", ErrBadRequest))
		return
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid limit", ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", fmt.Errorf("%w: limit above %d", ErrBadRequest, h.maxLimit))
			return
		}
		f.Limit = n
	}

	scores, err := h.deps.Scores(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}
