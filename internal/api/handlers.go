package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/curator/internal/analyzer"
	"github.com/starford/curator/internal/quality"
	"github.com/starford/curator/internal/vaultservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *vaultservice.Service
	now func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(svc *vaultservice.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

// notePath extracts the note path from the wildcard URL segment.
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Orphans handles GET /api/orphans.
//
//	@Summary		List isolated notes
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	OrphansResponse
//	@Security		BearerAuth
//	@Router			/orphans [get]
func (h *Handler) Orphans(w http.ResponseWriter, r *http.Request) {
	orphans, err := h.svc.Orphans(r.Context())
	if err != nil {
		writeError(w, "orphans", err)
		return
	}
	writeJSON(w, http.StatusOK, OrphansResponse{Orphans: orphans, Count: len(orphans)})
}

// BrokenLinks handles GET /api/broken-links.
//
//	@Summary		Classify unresolved wiki-links
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	BrokenLinksResponse
//	@Security		BearerAuth
//	@Router			/broken-links [get]
func (h *Handler) BrokenLinks(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.BrokenLinks(r.Context())
	if err != nil {
		writeError(w, "broken links", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Backlinks handles GET /api/backlinks/*.
//
//	@Summary		List notes linking to a note
//	@Tags			graph
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	BacklinksResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backlinks/{path} [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	bl, err := h.svc.Backlinks(r.Context(), path)
	if err != nil {
		writeError(w, "backlinks", err, slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Path: path, Backlinks: bl})
}

// QualityReport handles GET /api/quality.
//
//	@Summary		Score every note
//	@Description	format=markdown returns the rendered report instead of JSON.
//	@Tags			quality
//	@Produce		json
//	@Produce		text/markdown
//	@Param			format	query		string	false	"Output format"	Enums(json, markdown)
//	@Success		200		{object}	quality.Summary
//	@Security		BearerAuth
//	@Router			/quality [get]
func (h *Handler) QualityReport(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.QualityReport(r.Context())
	if err != nil {
		writeError(w, "quality report", err)
		return
	}
	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := quality.RenderReport(w, sum, h.svc.VaultName(), h.now()); err != nil {
			slog.Error("api: render quality report failed", slog.String("error", err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Quality handles GET /api/quality/*.
//
//	@Summary		Score a single note
//	@Tags			quality
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	quality.NoteReport
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/quality/{path} [get]
func (h *Handler) Quality(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	rep, err := h.svc.Quality(r.Context(), path)
	if err != nil {
		writeError(w, "quality", err, slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Related handles GET /api/related/*.
//
//	@Summary		Suggest related notes
//	@Tags			related
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	RelatedResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/related/{path} [get]
func (h *Handler) Related(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	sugs, err := h.svc.Related(r.Context(), path)
	if err != nil {
		writeError(w, "related", err, slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, RelatedResponse{Path: path, Suggestions: sugs})
}

// AppendRelated handles POST /api/related/*.
//
//	@Summary		Append related-note links to a note
//	@Tags			related
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	AppendRelatedResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/related/{path} [post]
func (h *Handler) AppendRelated(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	added, err := h.svc.AppendRelated(r.Context(), path)
	if err != nil {
		writeError(w, "append related", err, slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, AppendRelatedResponse{Path: path, Added: added})
}

// Invariants handles GET /api/invariants.
//
//	@Summary		List invariants
//	@Tags			invariants
//	@Produce		json
//	@Success		200	{object}	InvariantsResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/invariants [get]
func (h *Handler) Invariants(w http.ResponseWriter, r *http.Request) {
	invs, err := h.svc.Invariants(r.Context())
	if err != nil {
		writeError(w, "invariants", err)
		return
	}
	writeJSON(w, http.StatusOK, InvariantsResponse{File: h.svc.InvariantsFile(), Invariants: invs})
}

// CheckInvariants handles POST /api/invariants/check/*.
//
//	@Summary		Check a note against every invariant
//	@Tags			invariants
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	InvariantCheckResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/invariants/check/{path} [post]
func (h *Handler) CheckInvariants(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	res, err := h.svc.CheckInvariants(r.Context(), path)
	if err != nil {
		writeError(w, "check invariants", err, slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, InvariantCheckResponse{Path: path, Results: res})
}

// Analyze handles POST /api/analyze.
//
//	@Summary		Run the improvement analysis
//	@Tags			improvements
//	@Produce		json
//	@Success		200	{object}	models.Run
//	@Security		BearerAuth
//	@Router			/analyze [post]
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.Analyze(r.Context(), analyzer.TriggerManual)
	if err != nil {
		writeError(w, "analyze", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// Apply handles POST /api/improvements/apply.
//
//	@Summary		Apply an improvement
//	@Description	Select by id from the latest run, or by action and path.
//	@Tags			improvements
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ApplyRequest	true	"Improvement to apply"
//	@Success		200		{object}	analyzer.ApplyResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/improvements/apply [post]
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.Apply(r.Context(), req)
	if err != nil {
		writeError(w, "apply", err, slog.String("action", req.Action), slog.String("id", req.ID))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Changes handles GET /api/changes.
//
//	@Summary		List recent vault changes
//	@Tags			improvements
//	@Produce		json
//	@Param			since	query		string	false	"RFC 3339 timestamp; only later changes are returned"
//	@Success		200		{object}	ChangesResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/changes [get]
func (h *Handler) Changes(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("since must be an RFC 3339 timestamp"))
			return
		}
		since = t
	}
	writeJSON(w, http.StatusOK, ChangesResponse{Changes: h.svc.Changes(r.Context(), since)})
}

// Activity handles GET /api/activity.
//
//	@Summary		List activity log entries
//	@Tags			improvements
//	@Produce		json
//	@Success		200	{object}	ActivityResponse
//	@Security		BearerAuth
//	@Router			/activity [get]
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Activity(r.Context())
	if err != nil {
		writeError(w, "activity", err)
		return
	}
	writeJSON(w, http.StatusOK, ActivityResponse{Entries: entries})
}

// WeeklySummary handles POST /api/summary/weekly.
//
//	@Summary		Write last week's summary into the vault
//	@Tags			improvements
//	@Produce		json
//	@Success		201	{object}	WeeklySummaryResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/summary/weekly [post]
func (h *Handler) WeeklySummary(w http.ResponseWriter, r *http.Request) {
	path, wk, err := h.svc.WeeklySummary(r.Context())
	if err != nil {
		writeError(w, "weekly summary", err)
		return
	}
	writeJSON(w, http.StatusCreated, WeeklySummaryResponse{Path: path, Summary: wk})
}

// Search handles GET /api/search.
//
//	@Summary		Text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err, slog.String("query", q))
		return
	}
	out := make([]SearchResult, len(results))
	for i, res := range results {
		out[i] = SearchResult{Path: res.Path, Title: res.Title, Snippet: res.Snippet}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: out})
}
