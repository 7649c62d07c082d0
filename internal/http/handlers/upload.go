package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
)

// Upload accepts a multipart upload and stores its first field as a new
// pending asset. An optional angle query parameter rotates the image before it
// is persisted.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > a.MaxUploadBytes {
		a.payloadTooLarge(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes)

	angle := 0
	if raw := r.URL.Query().Get("angle"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid angle")
			return
		}
		angle = parsed
	}

	mr, err := r.MultipartReader()
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "multipart body required")
		return
	}
	part, err := mr.NextPart()
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "no fields provided")
		return
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		// The multipart reader may wrap or swallow the MaxBytesReader error,
		// so a read that stops at the body limit counts as oversized too.
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || int64(len(data)) >= a.MaxUploadBytes {
			a.payloadTooLarge(w)
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "unable to read upload")
		return
	}

	id, err := a.Svc.Upload(r.Context(), data, angle)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]string{"id": id.String()})
}
