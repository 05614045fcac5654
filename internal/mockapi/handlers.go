package mockapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"
)

var paginationParams = map[string]struct{}{"limit": {}, "offset": {}}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// list answers GET /api/v1/{resource}. Query parameters other than limit and offset
// filter on field equality.
func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")
	query := r.URL.Query()

	filter := make(map[string]string)
	for key := range query {
		if _, skip := paginationParams[key]; skip {
			continue
		}
		filter[key] = query.Get(key)
	}

	records := s.store.List(resource, filter)

	offset := cast.ToInt(query.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	if offset > len(records) {
		offset = len(records)
	}
	records = records[offset:]
	if limit := cast.ToInt(query.Get("limit")); limit > 0 && limit < len(records) {
		records = records[:limit]
	}

	SendData(w, http.StatusOK, records)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")

	var record Record
	if !s.decode(w, r, &record) {
		return
	}

	created, err := s.store.Create(resource, record)
	if err != nil {
		SendError(w, r, err)
		return
	}
	SendData(w, http.StatusCreated, created)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.Get(chi.URLParam(r, "resource"), chi.URLParam(r, "id"))
	if err != nil {
		SendError(w, r, err)
		return
	}
	SendData(w, http.StatusOK, record)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var patch Record
	if !s.decode(w, r, &patch) {
		return
	}

	record, err := s.store.Update(chi.URLParam(r, "resource"), chi.URLParam(r, "id"), patch)
	if err != nil {
		SendError(w, r, err)
		return
	}
	SendData(w, http.StatusOK, record)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(chi.URLParam(r, "resource"), chi.URLParam(r, "id")); err != nil {
		SendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) bulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		SendValidationError(w, r, "ids are required", map[string]any{
			"fields": map[string]any{"ids": "ids are required"},
		})
		return
	}

	deleted := s.store.DeleteMany(chi.URLParam(r, "resource"), req.IDs)
	SendData(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (s *Server) bulkUpsert(w http.ResponseWriter, r *http.Request) {
	var records []Record
	if !s.decode(w, r, &records) {
		return
	}

	SendData(w, http.StatusOK, s.store.Upsert(chi.URLParam(r, "resource"), records))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, s.config.MaxBodySize)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		SendValidationError(w, r, "invalid request body", map[string]any{
			"error": err.Error(),
		})
		return false
	}
	return true
}
