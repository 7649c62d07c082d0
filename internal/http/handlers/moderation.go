package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (a *App) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// Submit moves a pending upload into moderation. Like the upload itself it
// requires no credential: a submitter can only expose their own upload to the
// moderators, not to the public.
func (a *App) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	if err := a.Svc.Submit(r.Context(), id); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"id": id.String()})
}

// Approve promotes an asset to the publicly servable stage.
func (a *App) Approve(w http.ResponseWriter, r *http.Request) {
	if !a.requireAuth(w, r) {
		return
	}
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	if err := a.Svc.Approve(r.Context(), id); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"id": id.String()})
}

// Unapprove pulls a public asset back into moderation.
func (a *App) Unapprove(w http.ResponseWriter, r *http.Request) {
	if !a.requireAuth(w, r) {
		return
	}
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	if err := a.Svc.Unapprove(r.Context(), id); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"id": id.String()})
}

// Rotate re-encodes a submitted or approved asset rotated by the angle query
// parameter.
func (a *App) Rotate(w http.ResponseWriter, r *http.Request) {
	if !a.requireAuth(w, r) {
		return
	}
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	angle, err := strconv.Atoi(r.URL.Query().Get("angle"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid angle")
		return
	}
	if err := a.Svc.Rotate(r.Context(), id, angle); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"id": id.String()})
}

// DeleteImage removes an asset from every lifecycle stage together with its
// raw companion and cached renditions.
func (a *App) DeleteImage(w http.ResponseWriter, r *http.Request) {
	if !a.requireAuth(w, r) {
		return
	}
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	if err := a.Svc.Delete(r.Context(), id); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"id": id.String()})
}
