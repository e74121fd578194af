// Package httpapi exposes the judging engine over JSON/HTTP.
//
// Routes live under /v1. Error responses share one shape:
//
//	{"request_id": "...", "error": {"code": "NOT_FOUND", "message": "...", "details": ...}}
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ahrav/go-gavel-contests/internal/application"
)

// Server adapts an application.Engine to HTTP handlers.
type Server struct {
	engine *application.Engine
	logger *slog.Logger
}

// NewServer creates a Server. A nil logger uses slog.Default.
func NewServer(engine *application.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: engine, logger: logger}
}

// Routes builds the router. extra mounts additional handlers, such as a
// metrics endpoint, next to /health.
func (s *Server) Routes(extra map[string]http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	for pattern, h := range extra {
		r.Handle(pattern, h)
	}

	r.Route("/v1", func(api chi.Router) {
		api.Route("/sessions", func(sr chi.Router) {
			sr.Post("/", s.createSession)
			sr.Route("/{sessionID}", func(one chi.Router) {
				one.Get("/", s.getSession)
				one.Post("/scores", s.submitScore)
				one.Get("/results", s.getResults)
				one.Post("/discussion", s.addComment)
				one.Get("/discussion", s.getDiscussion)
			})
		})

		api.Get("/submissions/{submissionID}/scores/{judgeID}", s.getJudgeScore)

		api.Route("/contests/{contestID}", func(cr chi.Router) {
			cr.Put("/judges", s.assignJudges)
			cr.Get("/judges", s.getContestJudges)
			cr.Get("/judges/history", s.getJudgeHistory)
			cr.Post("/winners", s.selectContestWinners)
			cr.Get("/winner-stats", s.winnerStats(application.KindContest, "contestID"))
		})

		api.Route("/giveaways/{giveawayID}", func(gr chi.Router) {
			gr.Post("/winners", s.selectGiveawayWinners)
			gr.Get("/winner-stats", s.winnerStats(application.KindGiveaway, "giveawayID"))
		})
	})
	return r
}

// requestLogger logs one line per request at Info, or Warn for 5xx.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		level := slog.LevelInfo
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.LogAttrs(r.Context(), level, "http request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
