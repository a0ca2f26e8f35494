package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lexikon/internal/apperr"
	"github.com/starford/lexikon/internal/batch"
	"github.com/starford/lexikon/internal/registerservice"
)

const maxUpdateBody = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *registerservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *registerservice.Service) *Handler {
	return &Handler{svc: svc}
}

// urlParam returns a decoded chi URL parameter. Volume names carry commas
// and spaces, which clients may percent-encode.
func urlParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListVolumes handles GET /api/volumes.
//
//	@Summary		List every cataloged volume
//	@Tags			volumes
//	@Produce		json
//	@Success		200	{object}	VolumeListResponse
//	@Security		BearerAuth
//	@Router			/volumes [get]
func (h *Handler) ListVolumes(w http.ResponseWriter, r *http.Request) {
	volumes := h.svc.Volumes(r.Context())
	writeJSON(w, http.StatusOK, VolumeListResponse{Volumes: volumes, Total: len(volumes)})
}

// GetVolume handles GET /api/volumes/{name}.
//
//	@Summary		Get the register of a volume
//	@Tags			volumes
//	@Produce		json
//	@Param			name	path		string	true	"Volume name, e.g. I,1"
//	@Success		200		{object}	VolumeResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/volumes/{name} [get]
func (h *Handler) GetVolume(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	records, err := h.svc.Volume(r.Context(), name)
	if err != nil {
		writeError(w, "get volume", err)
		return
	}
	writeJSON(w, http.StatusOK, VolumeResponse{Volume: name, Lemmas: records})
}

// GetVolumeTable handles GET /api/volumes/{name}/table.
//
//	@Summary		Render the register of a volume as a wiki table
//	@Tags			volumes
//	@Produce		plain
//	@Param			name	path		string	true	"Volume name"
//	@Success		200		{string}	string
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/volumes/{name}/table [get]
func (h *Handler) GetVolumeTable(w http.ResponseWriter, r *http.Request) {
	table, err := h.svc.RenderVolume(r.Context(), urlParam(r, "name"))
	if err != nil {
		writeError(w, "render volume", err)
		return
	}
	writeText(w, table)
}

// ListAlphabetic handles GET /api/alphabetic.
//
//	@Summary		List the alphabetic register ranges
//	@Tags			alphabetic
//	@Produce		json
//	@Success		200	{object}	RangeListResponse
//	@Security		BearerAuth
//	@Router			/alphabetic [get]
func (h *Handler) ListAlphabetic(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RangeListResponse{Ranges: h.svc.AlphabeticRanges(r.Context())})
}

// GetAlphabeticTable handles GET /api/alphabetic/{start}/table.
//
//	@Summary		Render one alphabetic register as a wiki table
//	@Tags			alphabetic
//	@Produce		plain
//	@Param			start	path		string	true	"Range start, e.g. ak"
//	@Success		200		{string}	string
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/alphabetic/{start}/table [get]
func (h *Handler) GetAlphabeticTable(w http.ResponseWriter, r *http.Request) {
	table, err := h.svc.RenderAlphabetic(r.Context(), urlParam(r, "start"))
	if err != nil {
		writeError(w, "render alphabetic", err)
		return
	}
	writeText(w, table)
}

// LookupLemmas handles GET /api/lemmas.
//
//	@Summary		Find lemmas by sort key prefix across every volume
//	@Tags			lemmas
//	@Produce		json
//	@Param			q		query		string	true	"Headword or prefix"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	LemmaListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/lemmas [get]
func (h *Handler) LookupLemmas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.svc.Lookup(r.Context(), q, limit)
	if err != nil {
		writeError(w, "lookup", err)
		return
	}
	writeJSON(w, http.StatusOK, LemmaListResponse{Lemmas: nonNilRows(rows)})
}

// Referrers handles GET /api/referrers.
//
//	@Summary		List entries whose neighbor or redirect link names a title
//	@Tags			lemmas
//	@Produce		json
//	@Param			title	query		string	true	"Exact lemma title"
//	@Success		200		{object}	LemmaListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/referrers [get]
func (h *Handler) Referrers(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'title' is required"))
		return
	}
	rows, err := h.svc.Referrers(r.Context(), title)
	if err != nil {
		writeError(w, "referrers", err)
		return
	}
	writeJSON(w, http.StatusOK, LemmaListResponse{Lemmas: nonNilRows(rows)})
}

// ApplyUpdates handles POST /api/updates.
//
//	@Summary		Apply a batch of update records
//	@Description	Accepts a single update item or an array of them. Rejected records are reported, not fatal.
//	@Tags			updates
//	@Accept			json
//	@Produce		json
//	@Param			body	body		[]UpdateItem	true	"Update items"
//	@Success		200		{object}	BatchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/updates [post]
func (h *Handler) ApplyUpdates(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpdateBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	items, err := batch.Decode(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	res, err := h.svc.ApplyBatch(r.Context(), items)
	if err != nil {
		writeError(w, "apply updates", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SeedVolume handles PUT /api/volumes/{name}.
//
//	@Summary		Install the initial register of a volume
//	@Tags			volumes
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string		true	"Volume name"
//	@Param			replace	query		bool		false	"Replace a loaded register"
//	@Param			body	body		[]Record	true	"Register entries in order"
//	@Success		201		{object}	VolumeResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/volumes/{name} [put]
func (h *Handler) SeedVolume(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	r.Body = http.MaxBytesReader(w, r.Body, maxUpdateBody)
	var records []Record
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&records); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid register: "+err.Error()))
		return
	}
	replace := r.URL.Query().Get("replace") == "true"
	if err := h.svc.Seed(r.Context(), name, records, replace); err != nil {
		writeError(w, "seed volume", err)
		return
	}
	out, err := h.svc.Volume(r.Context(), name)
	if err != nil {
		writeError(w, "seed volume", err)
		return
	}
	writeJSON(w, http.StatusCreated, VolumeResponse{Volume: name, Lemmas: out})
}

// DropVolume handles DELETE /api/volumes/{name}.
//
//	@Summary		Unload a volume's register and delete its file
//	@Tags			volumes
//	@Param			name	path	string	true	"Volume name"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/volumes/{name} [delete]
func (h *Handler) DropVolume(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Drop(r.Context(), urlParam(r, "name")); err != nil {
		writeError(w, "drop volume", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Check handles GET /api/check.
//
//	@Summary		Run the integrity check over every loaded register
//	@Tags			check
//	@Produce		json
//	@Success		200	{object}	CheckResponse
//	@Security		BearerAuth
//	@Router			/check [get]
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	issues := h.svc.Check(r.Context())
	if issues == nil {
		issues = []Issue{}
	}
	writeJSON(w, http.StatusOK, CheckResponse{Issues: issues, Total: len(issues)})
}

// Export handles GET /api/export.
//
//	@Summary		Download every register as a Parquet file
//	@Tags			export
//	@Produce		octet-stream
//	@Success		200	{file}	binary
//	@Security		BearerAuth
//	@Router			/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.apache.parquet")
	w.Header().Set("Content-Disposition", `attachment; filename="registers.parquet"`)
	if _, err := h.svc.Export(r.Context(), w); err != nil {
		// Headers may already be sent; the client sees a truncated body.
		slog.Error("export failed", slog.String("error", err.Error()))
	}
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, op string, err error) {
	var valErr *apperr.ValidationError
	switch {
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrUnknownVolume):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.As(err, &valErr):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
