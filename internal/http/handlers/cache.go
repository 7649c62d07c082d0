package handlers

import "net/http"

// CacheStatus reports entry counts and sizes aggregated by rendition
// parameter. All cache administration requires a valid bearer key.
func (a *App) CacheStatus(w http.ResponseWriter, r *http.Request) {
	if !a.requireAuth(w, r) {
		return
	}
	status, err := a.Svc.CacheStatus()
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, status)
}

// CachePurge drops every cached rendition.
func (a *App) CachePurge(w http.ResponseWriter, r *http.Request) {
	if !a.requireAuth(w, r) {
		return
	}
	purged, err := a.Svc.CachePurge()
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]int{"purged": purged})
}

// CacheDelete drops the cached renditions of a single asset.
func (a *App) CacheDelete(w http.ResponseWriter, r *http.Request) {
	if !a.requireAuth(w, r) {
		return
	}
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	if err := a.Svc.CacheInvalidate(id); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"id": id.String()})
}
