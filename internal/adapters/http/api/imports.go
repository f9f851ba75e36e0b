package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	service "github.com/okian/scoreimport/internal/app"
	"github.com/okian/scoreimport/internal/adapters/formats/kai"
	"github.com/okian/scoreimport/internal/adapters/repository"
	"github.com/okian/scoreimport/internal/parser"
)

const maxAPIRequestBytes = 64 << 10

// apiImportRequest is the body of POST /imports/api.
type apiImportRequest struct {
	UserID     string            `json:"user"`
	ImportType string            `json:"importType"`
	Auth       *kai.AuthDocument `json:"auth"`
}

type importsHandler struct {
	deps      Dependencies
	maxUpload int64
}

// handleFile handles POST /imports/file?type=&user=&playtype=. The body is
// either the raw file or a multipart form with a "file" part.
func (h *importsHandler) handleFile(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	t := parser.ImportType(q.Get("type"))
	switch {
	case t == "":
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing type", ErrBadRequest))
		return
	case t.IsAPI():
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %s is submitted to /imports/api", ErrBadRequest, t))
		return
	}

	data, filename, err := readUpload(w, r, h.maxUpload)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Errorf("%w: limit %d bytes", ErrPayloadTooLarge, tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if filename == "" {
		filename = q.Get("filename")
	}

	h.submit(w, r, service.Job{
		UserID:     q.Get("user"),
		ImportType: t,
		Data:       data,
		Filename:   filename,
		Playtype:   q.Get("playtype"),
	})
}

func readUpload(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mt, "multipart/") {
		data, err := io.ReadAll(r.Body)
		return data, "", err
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	return data, hdr.Filename, err
}

// handleAPI handles POST /imports/api.
func (h *importsHandler) handleAPI(w http.ResponseWriter, r *http.Request) {
	var req apiImportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAPIRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	t := parser.ImportType(req.ImportType)
	if !t.IsAPI() {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %q is not a partner import", ErrBadRequest, req.ImportType))
		return
	}
	h.submit(w, r, service.Job{UserID: req.UserID, ImportType: t, Auth: req.Auth})
}

func (h *importsHandler) submit(w http.ResponseWriter, r *http.Request, job service.Job) {
	st, err := h.deps.Submit(r.Context(), job)
	if err != nil {
		status, code := submitError(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusAccepted, st)
}

// handleStatus handles GET /imports/{id}.
func (h *importsHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.deps.Status(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	default:
		writeJSON(w, http.StatusOK, st)
	}
}
