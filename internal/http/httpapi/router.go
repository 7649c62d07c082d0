package httpapi

import (
	stdhttp "net/http"

	"imageserver/internal/http/handlers"
	"imageserver/internal/infra"
	mw "imageserver/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		mw.Logger(logger),
		mw.CORS(cfg.CORSAllowedOrigins),
	)

	r.Get("/", app.Index)
	r.Get("/healthz", app.Health)

	r.Post("/upload", app.Upload)
	r.Post("/submit/{id}", app.Submit)
	r.Post("/approve/{id}", app.Approve)
	r.Post("/unapprove/{id}", app.Unapprove)
	r.Post("/rotate/{id}", app.Rotate)

	r.Get("/image/{id}", app.GetImage)
	r.Delete("/image/{id}", app.DeleteImage)

	r.Route("/cache", func(r chi.Router) {
		r.Get("/status", app.CacheStatus)
		r.Delete("/", app.CachePurge)
		r.Delete("/{id}", app.CacheDelete)
	})

	return r
}
