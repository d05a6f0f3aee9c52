// Package remote exposes the running player over HTTP so other
// devices and the CLI can drive it, plus the typed client that talks
// to it.
package remote

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"

	"github.com/murexstreams/murex/internal/auth"
	"github.com/murexstreams/murex/internal/errors"
	"github.com/murexstreams/murex/internal/library"
	"github.com/murexstreams/murex/internal/logging"
	"github.com/murexstreams/murex/internal/market"
	"github.com/murexstreams/murex/internal/playback"
	"github.com/murexstreams/murex/internal/social"
)

// Options carries the server's collaborators.
type Options struct {
	Player  playback.Service
	Library *library.Store
	Market  *market.Market
	Social  *social.Graph
	Users   *auth.Store
	Tokens  *auth.Tokens
	Logger  *logging.Logger
}

// Server is the remote control API.
type Server struct {
	echo   *echo.Echo
	player playback.Service
	store  *library.Store
	market *market.Market
	graph  *social.Graph
	users  *auth.Store
	tokens *auth.Tokens
	log    *logging.Logger
}

// NewServer wires the API routes over the given collaborators.
func NewServer(opts Options) (*Server, error) {
	if opts.Player == nil {
		return nil, fmt.Errorf("remote server needs a player")
	}
	if opts.Library == nil {
		return nil, fmt.Errorf("remote server needs a library store")
	}
	if opts.Tokens == nil || opts.Users == nil {
		return nil, fmt.Errorf("remote server needs the auth stores")
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		player: opts.Player,
		store:  opts.Library,
		market: opts.Market,
		graph:  opts.Social,
		users:  opts.Users,
		tokens: opts.Tokens,
		log:    log,
	}
	e.HTTPErrorHandler = s.httpError

	e.Use(middleware.Recover())
	e.Use(s.requestLogger)

	api := e.Group("/api")
	api.GET("/health", s.health)
	api.POST("/signup", s.signup)
	api.POST("/login", s.login)

	guarded := api.Group("", middleware.JWT(s.tokens.Secret()))

	guarded.GET("/player", s.playerState)
	guarded.POST("/player/play", s.play)
	guarded.POST("/player/pause", s.pause)
	guarded.POST("/player/stop", s.stop)
	guarded.POST("/player/toggle", s.toggle)
	guarded.POST("/player/next", s.next)
	guarded.POST("/player/previous", s.previous)
	guarded.POST("/player/seek", s.seek)
	guarded.POST("/player/volume", s.volume)
	guarded.POST("/player/shuffle", s.shuffle)
	guarded.POST("/player/repeat", s.repeat)

	guarded.GET("/queue", s.queue)
	guarded.POST("/queue", s.queueAdd)
	guarded.DELETE("/queue", s.queueClear)
	guarded.POST("/queue/jump", s.queueJump)

	guarded.GET("/tracks", s.tracks)
	guarded.GET("/tracks/:id", s.track)
	guarded.POST("/tracks/:id/like", s.like)
	guarded.DELETE("/tracks/:id/like", s.unlike)

	guarded.GET("/artists/:id", s.artist)
	guarded.POST("/artists/:id/follow", s.follow)
	guarded.DELETE("/artists/:id/follow", s.unfollow)

	guarded.POST("/invest", s.invest)
	guarded.GET("/portfolio", s.portfolio)
	guarded.GET("/history", s.history)

	return s, nil
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Infof("remote API listening on %s", addr)
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("remote API: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		s.log.Debugf("%s %s -> %d in %s",
			c.Request().Method, c.Request().URL.Path, c.Response().Status, time.Since(start))
		return err
	}
}

// httpError renders framework-level failures in the same shape as
// jsonError, so clients always get an api error body. A request with
// no token reads as "log in first", not as a malformed request.
func (s *Server) httpError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	message := err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		message = fmt.Sprintf("%v", he.Message)
		if err == middleware.ErrJWTMissing {
			status = http.StatusUnauthorized
		}
	}
	suggestion := ""
	if status == http.StatusUnauthorized {
		suggestion = errors.GetSuggestion(errors.ErrNotAuthenticated)
	}
	if werr := c.JSON(status, &APIError{Message: message, Suggestion: suggestion}); werr != nil {
		s.log.Warnf("writing error response: %v", werr)
	}
}

// jsonError maps domain sentinels to HTTP statuses and attaches the
// user-facing suggestion.
func jsonError(c echo.Context, err error) error {
	return c.JSON(httpStatus(err), &APIError{
		Message:    err.Error(),
		Suggestion: errors.GetSuggestion(err),
	})
}

func httpStatus(err error) int {
	switch {
	case stderrors.Is(err, errors.ErrNotAuthenticated), stderrors.Is(err, errors.ErrBadCredentials):
		return http.StatusUnauthorized
	case stderrors.Is(err, errors.ErrUserExists):
		return http.StatusConflict
	case stderrors.Is(err, errors.ErrTrackNotFound),
		stderrors.Is(err, errors.ErrArtistNotFound),
		stderrors.Is(err, errors.ErrInvestmentMissing):
		return http.StatusNotFound
	case stderrors.Is(err, errors.ErrEmptyQueue),
		stderrors.Is(err, errors.ErrInvalidIndex),
		stderrors.Is(err, errors.ErrNoCurrentTrack),
		stderrors.Is(err, errors.ErrInvalidAmount),
		stderrors.Is(err, errors.ErrInvestmentSettled):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
