// Package httpapi is the HTTP transport of the gateway: routing, the auth
// gate, CORS, request logging, compression and JSON encoding.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/dmitrijs2005/camvault/internal/capture"
	"github.com/dmitrijs2005/camvault/internal/logging"
	"github.com/dmitrijs2005/camvault/internal/server/models"
)

// UserGateway is what the transport needs from the user service.
type UserGateway interface {
	Register(ctx context.Context, name, password string) (*models.Session, error)
	Login(ctx context.Context, name, password string) (*models.Session, error)
	Authenticate(ctx context.Context, token string) (*models.Identity, error)
	ChangeRole(ctx context.Context, actor *models.Identity, targetID int64, role models.Role) error
	DeleteUser(ctx context.Context, actor *models.Identity, targetID int64) error
	ListUsers(ctx context.Context, actor *models.Identity) ([]models.UserSummary, error)
	CountUsers(ctx context.Context) (int, error)
}

// MediaGateway is what the transport needs from the media service.
type MediaGateway interface {
	ListFrames(ctx context.Context, page int) (*models.FramePage, error)
	FetchFrame(ctx context.Context, name string) (*models.FrameData, error)
	FetchLive(ctx context.Context) (*models.FrameData, error)
	LiveName(ctx context.Context) (string, error)
}

type Options struct {
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	// CaptureStats is set when the capture loop runs in the same process.
	CaptureStats func() capture.Stats
}

type HTTPServer struct {
	address string
	users   UserGateway
	media   MediaGateway
	opts    Options
	logger  logging.Logger
	handler http.Handler
}

func NewHTTPServer(address string, l logging.Logger, us UserGateway, ms MediaGateway, opts Options) *HTTPServer {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}

	s := &HTTPServer{
		address: address,
		users:   us,
		media:   ms,
		opts:    opts,
		logger:  l.With("module", "http_server"),
	}
	s.handler = s.requestLog(s.cors(gzhttp.GzipHandler(s.routes())))

	return s
}

// Handler returns the full middleware chain, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler { return s.handler }

func (s *HTTPServer) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /register", s.register)
	mux.HandleFunc("POST /login", s.login)

	mux.HandleFunc("GET /images", s.requireRole(models.RoleMember, s.listImages))
	mux.HandleFunc("GET /image/{filename}", s.requireRole(models.RoleMember, s.image))
	mux.HandleFunc("GET /live", s.requireRole(models.RoleMember, s.live))
	mux.HandleFunc("GET /live/meta", s.requireRole(models.RoleMember, s.liveMeta))

	mux.HandleFunc("PATCH /user/role", s.requireRole(models.RoleAdmin, s.changeRole))
	mux.HandleFunc("DELETE /user/delete", s.requireRole(models.RoleAdmin, s.deleteUser))
	mux.HandleFunc("GET /users", s.requireRole(models.RoleAdmin, s.listUsers))

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-stopped
}
