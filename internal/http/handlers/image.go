package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"imageserver/internal/domain"
)

func parseDim(raw string) (domain.Dim, error) {
	if raw == "" {
		return domain.Dim{}, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return domain.Dim{}, err
	}
	return domain.SomeDim(v), nil
}

// GetImage serves a rendition of the asset. Approved assets are public; a
// valid bearer key additionally unlocks assets still in moderation. Width,
// height and quality come from query parameters.
func (a *App) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	width, errW := parseDim(query.Get("width"))
	height, errH := parseDim(query.Get("height"))
	quality, errQ := parseDim(query.Get("quality"))
	if errW != nil || errH != nil || errQ != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "width, height and quality must be integers")
		return
	}

	data, err := a.Svc.Resolve(r.Context(), id, a.bearerValid(r), width, height, quality)
	if err != nil {
		a.domainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", id.String()+domain.RenditionExt))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
