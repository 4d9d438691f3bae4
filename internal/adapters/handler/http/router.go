package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Poll     *PollHandler
	Response *ResponseHandler
	Stats    *StatsHandler
}

// NewHandler builds the router. auth guards every /api route; metrics is
// mounted on /metrics when non-nil.
func NewHandler(h Handlers, auth func(http.Handler) http.Handler, metrics http.Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORS(allowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(auth)

		r.Route("/polls", func(r chi.Router) {
			r.Post("/", h.Poll.CreatePoll)
			r.Get("/", h.Poll.ListPolls)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Poll.GetPoll)
				r.Patch("/", h.Poll.UpdatePoll)
				r.Post("/responses", h.Response.SubmitResponse)
				r.Get("/stats", h.Stats.GetStats)
				r.Post("/peek", h.Stats.Peek)
			})
		})
	})

	return r
}
