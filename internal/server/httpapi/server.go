// Package httpapi exposes the services over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sanguetsu/ikebana/internal/logging"
	"github.com/sanguetsu/ikebana/internal/server/media"
	"github.com/sanguetsu/ikebana/internal/server/models"
	"github.com/sanguetsu/ikebana/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

// Authenticator resolves an access token to the account identity.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

type AccountService interface {
	Register(ctx context.Context, email, fullName, password string) (*models.Account, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RecoverPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, identity, newPassword string) error
	Verify(ctx context.Context, identity string) (*models.Account, error)
	BecomePartner(ctx context.Context, identity string, c models.Contact) (bool, error)
	Profile(ctx context.Context, identity string) (*services.Profile, error)
	UpdateProfile(ctx context.Context, identity, fullName, bio string, picture *media.Upload) error
	ChangePassword(ctx context.Context, identity, oldPassword, newPassword string) error
	ClearNotifications(ctx context.Context, identity string) (int64, error)
	MarkNotificationRead(ctx context.Context, identity string, notificationID int64) error
	Refresh(ctx context.Context, refreshToken string) (string, error)
	AuthorPublic(ctx context.Context, projectID int64) (*services.Profile, error)
}

type ProjectService interface {
	Create(ctx context.Context, identity string, in services.ProjectInput) (*models.Project, error)
	ListOwn(ctx context.Context, identity string) ([]models.Project, error)
	Update(ctx context.Context, identity string, projectID int64, in services.ProjectInput) (*models.Project, error)
	Delete(ctx context.Context, identity string, projectID int64) error
	ListAll(ctx context.Context) ([]models.Project, error)
	Search(ctx context.Context, term string) ([]models.Project, error)
	Get(ctx context.Context, projectID int64) (*models.Project, error)
	Like(ctx context.Context, identity string, projectID int64) error
	Solicit(ctx context.Context, identity string, projectIDs []int64, note string) error
}

type IdentityService interface {
	Begin(ctx context.Context) (string, error)
	Complete(ctx context.Context, code, state string) (*services.TokenPair, error)
}

type Server struct {
	address  string
	accounts AccountService
	projects ProjectService
	identity IdentityService
	auth     Authenticator
	logger   logging.Logger
}

func NewServer(address string, l logging.Logger, auth Authenticator, accounts AccountService,
	projects ProjectService, identity IdentityService) *Server {
	return &Server{
		address:  address,
		accounts: accounts,
		projects: projects,
		identity: identity,
		auth:     auth,
		logger:   l.With("module", "http_server"),
	}
}

// Routes builds the router with every endpoint mounted.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)

	r.Post("/login", s.login)
	r.Post("/user_register", s.register)
	r.Post("/recover_pass", s.recoverPassword)
	r.Post("/refresh", s.refresh)
	r.Get("/autor_public/{id}", s.authorPublic)

	r.Get("/list", s.listProjects)
	r.Get("/get_project/{id}", s.getProject)
	r.Post("/search", s.search)

	r.Get("/oauth_login", s.oauthLogin)
	r.Get("/callback", s.oauthCallback)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAccess)

		r.Post("/reset_pass", s.resetPassword)
		r.Get("/verify", s.verify)
		r.Post("/become_partner", s.becomePartner)
		r.Get("/user", s.getUser)
		r.Post("/user", s.postUser)
		r.Delete("/user", s.deleteNotifications)
		r.Post("/update_notif", s.markNotificationRead)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.ownProjects)
			r.Post("/", s.createProject)
			r.Put("/", s.updateProject)
			r.Delete("/", s.deleteProject)
		})
		r.Post("/like_project", s.likeProject)
		r.Post("/solicitation", s.solicit)
	})

	return r
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
