package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/schedule"
	"github.com/trezcool/darasa/core/user"
)

type (
	// ServerDeps holds the Server's dependencies.
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		DB             core.DB
		UserSvc        user.ServiceInterface
		CourseSvc      course.ServiceInterface
		SessionSvc     schedule.ServiceInterface
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	initAuth(deps.Conf)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.app.GET("/health", s.health)

	api := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(api, jwt, s.deps.UserSvc, s.deps.Validate)
	registerCourseAPI(api, jwt, s.deps.CourseSvc, s.deps.Validate)
	registerSessionAPI(api, jwt, s.deps.SessionSvc, s.deps.UserSvc, s.deps.Validate)

	// TODO: swagger !!
}

// Start starts the Server on Config.Server.Host; any listener failure lands on Errors().
func (s *Server) Start() {
	s.errs <- s.app.Start(s.deps.Conf.Server.Host)
}

// Errors reports server startup/runtime errors.
func (s *Server) Errors() <-chan error {
	return s.errs
}

// ShutdownSignal relays SIGINT/SIGTERM; integrity errors caught by the error
// handler are reported here as a SIGTERM as well.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

// Shutdown stops the Server gracefully; pending requests get until ctx's deadline to complete.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

// Close stops the Server immediately.
func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Darasa API!")
}

func (s *Server) health(ctx echo.Context) error {
	if s.deps.DB != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request().Context(), time.Second)
		defer cancel()
		if err := s.deps.DB.PingContext(pingCtx); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "database unreachable")
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
