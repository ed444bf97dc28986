package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	auth "github.com/mind-engage/mindengage-iq/internal/auth/middleware"
	"github.com/mind-engage/mindengage-iq/internal/rbac"
	"github.com/mind-engage/mindengage-iq/internal/storage"
)

type Deps struct {
	Quiz       QuizService
	Auth       *auth.AuthService
	Users      *auth.UserStore // nil disables login, register and the stored-role check
	Blobs      storage.BlobStore
	Events     EventLister
	Commentary Commentator
	Ready      func(ctx context.Context) error

	EnableRegister bool
	CORSOrigins    []string
	Timeout        time.Duration
}

func NewRouter(d Deps) chi.Router {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if d.Users != nil {
		r.Post("/auth/login", auth.LoginHandler(d.Auth, d.Users))
		if d.EnableRegister {
			r.Post("/auth/register", auth.RegisterHandler(d.Auth, d.Users))
		}
	}

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))
		if d.Users != nil {
			pr.Use(auth.AttachRoleFromDB(d.Users))
		}

		pr.With(rbac.Require(rbac.TestView)).Get("/tests", ListTestsHandler(d.Quiz))
		pr.With(rbac.Require(rbac.TestView)).Get("/tests/{testID}", GetTestHandler(d.Quiz))
		pr.With(rbac.Require(rbac.AttemptCreate)).
			Post("/tests/{testID}/attempts", StartAttemptHandler(d.Quiz))

		pr.Route("/attempts/{attemptID}", func(ar chi.Router) {
			ar.With(rbac.RequireAny(rbac.AttemptAnswer, rbac.AttemptViewOwn)).
				Get("/questions/{n}", QuestionHandler(d.Quiz))
			ar.With(rbac.Require(rbac.AttemptAnswer)).
				Post("/questions/{n}", AnswerHandler(d.Quiz))
			ar.With(rbac.Require(rbac.AttemptSubmit)).
				Post("/submit", SubmitAttemptHandler(d.Quiz))
			ar.With(rbac.Require(rbac.AttemptViewOwn)).
				Get("/result", ResultHandler(d.Quiz, d.Commentary))
		})

		pr.With(rbac.Require(rbac.DashboardView)).Get("/me/dashboard", DashboardHandler(d.Quiz))

		if d.Events != nil {
			pr.With(rbac.Require(rbac.EventsRead)).Get("/events", EventsHandler(d.Events))
		}
		if d.Blobs != nil {
			pr.Route("/assets", func(ar chi.Router) {
				MountAssets(ar, d.Blobs)
			})
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	return r
}
