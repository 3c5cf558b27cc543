package http

import (
	"net/http"
	"time"

	_ "github.com/DRSN-tech/visual-matcher/docs" // регистрация swagger-спецификации
	"github.com/DRSN-tech/visual-matcher/internal/usecase"
	"github.com/DRSN-tech/visual-matcher/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

const serviceBanner = "Visual Product Matcher API is running"

type Router struct {
	router         *chi.Mux
	maxUploadBytes int64
	logger         logger.Logger
}

func NewRouter(router *chi.Mux, maxUploadBytes int64, logger logger.Logger) *Router {
	return &Router{router: router, maxUploadBytes: maxUploadBytes, logger: logger}
}

func (r *Router) Init(matchUC usecase.MatchUC) {
	r.router.Use(middleware.RequestID)
	r.router.Use(r.requestLogger)
	r.router.Use(middleware.Recoverer)

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.router.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		WriteSuccess(w, http.StatusOK, map[string]string{"message": serviceBanner})
	})
	r.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.router.Route("/api/v1", func(v1 chi.Router) {
		matchHandler := NewMatchHandler(matchUC, r.maxUploadBytes, r.logger)
		registerMatchRoutes(v1, matchHandler)
	})
}

func registerMatchRoutes(router chi.Router, matchHandler *MatchHandler) {
	router.Post("/match", matchHandler.findSimilar)
}

// requestLogger пишет строку access-лога на каждый запрос.
func (r *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, req)

		r.logger.With("request_id", middleware.GetReqID(req.Context())).
			Debugf("%s %s -> %d (%d bytes, %s)", req.Method, req.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start))
	})
}
