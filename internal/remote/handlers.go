package remote

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo"

	"github.com/murexstreams/murex/internal/auth"
	"github.com/murexstreams/murex/internal/core"
	"github.com/murexstreams/murex/internal/errors"
	"github.com/murexstreams/murex/internal/market"
)

// userID extracts the authenticated user from the JWT middleware.
func userID(c echo.Context) string {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	id, _ := claims["user_id"].(string)
	return id
}

// bindOptional binds the body when one was sent; an empty body leaves
// the defaults in place.
func bindOptional(c echo.Context, v interface{}) error {
	if c.Request().ContentLength == 0 {
		return nil
	}
	return c.Bind(v)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status": "ok",
		"engine": s.player.EngineName(),
	})
}

func (s *Server) signup(c echo.Context) error {
	var creds Credentials
	if err := c.Bind(&creds); err != nil {
		return jsonError(c, fmt.Errorf("invalid signup body: %v", err))
	}

	user, err := s.users.Create(c.Request().Context(), creds.Username, creds.Password)
	if err != nil {
		return jsonError(c, err)
	}

	token, expires, err := s.tokens.Issue(user.ID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, &auth.Session{
		UserID:    user.ID,
		Username:  user.Username,
		Token:     token,
		ExpiresAt: expires,
	})
}

func (s *Server) login(c echo.Context) error {
	var creds Credentials
	if err := c.Bind(&creds); err != nil {
		return jsonError(c, fmt.Errorf("invalid login body: %v", err))
	}

	user, err := s.users.Authenticate(c.Request().Context(), creds.Username, creds.Password)
	if err != nil {
		return jsonError(c, err)
	}

	token, expires, err := s.tokens.Issue(user.ID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, &auth.Session{
		UserID:    user.ID,
		Username:  user.Username,
		Token:     token,
		ExpiresAt: expires,
	})
}

func (s *Server) playerState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.player.State())
}

func (s *Server) play(c echo.Context) error {
	var req PlayRequest
	if err := bindOptional(c, &req); err != nil {
		return jsonError(c, fmt.Errorf("invalid play body: %v", err))
	}

	if len(req.TrackIDs) > 0 {
		tracks, err := s.store.Tracks.ByIDs(c.Request().Context(), req.TrackIDs)
		if err != nil {
			return jsonError(c, err)
		}
		if len(tracks) == 0 {
			return jsonError(c, errors.ErrTrackNotFound)
		}
		if err := s.player.PlayQueue(tracks, req.Index); err != nil {
			return jsonError(c, err)
		}
	} else if err := s.player.Play(); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, s.player.State())
}

func (s *Server) pause(c echo.Context) error {
	if err := s.player.Pause(); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, s.player.State())
}

func (s *Server) stop(c echo.Context) error {
	if err := s.player.Stop(); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, s.player.State())
}

func (s *Server) toggle(c echo.Context) error {
	if err := s.player.Toggle(); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, s.player.State())
}

func (s *Server) next(c echo.Context) error {
	if err := s.player.Next(); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, s.player.State())
}

func (s *Server) previous(c echo.Context) error {
	if err := s.player.Previous(); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, s.player.State())
}

func (s *Server) seek(c echo.Context) error {
	var req SeekRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, fmt.Errorf("invalid seek body: %v", err))
	}

	switch {
	case req.PositionMillis != nil:
		if err := s.player.SeekTo(time.Duration(*req.PositionMillis) * time.Millisecond); err != nil {
			return jsonError(c, err)
		}
	case req.DeltaMillis != nil:
		if err := s.player.Seek(time.Duration(*req.DeltaMillis) * time.Millisecond); err != nil {
			return jsonError(c, err)
		}
	default:
		return jsonError(c, fmt.Errorf("seek needs position_ms or delta_ms"))
	}
	return c.JSON(http.StatusOK, s.player.State())
}

func (s *Server) volume(c echo.Context) error {
	var req VolumeRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, fmt.Errorf("invalid volume body: %v", err))
	}
	if err := s.player.SetVolume(req.Volume); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, s.player.State())
}

func (s *Server) shuffle(c echo.Context) error {
	var req ShuffleRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, fmt.Errorf("invalid shuffle body: %v", err))
	}
	s.player.SetShuffle(req.Enabled)
	return c.JSON(http.StatusOK, s.player.State())
}

func (s *Server) repeat(c echo.Context) error {
	var req RepeatRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, fmt.Errorf("invalid repeat body: %v", err))
	}
	mode, err := core.ParseRepeatMode(req.Mode)
	if err != nil {
		return jsonError(c, err)
	}
	s.player.SetRepeatMode(mode)
	return c.JSON(http.StatusOK, s.player.State())
}

func (s *Server) queue(c echo.Context) error {
	return c.JSON(http.StatusOK, s.player.Queue())
}

func (s *Server) queueAdd(c echo.Context) error {
	var req QueueAddRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, fmt.Errorf("invalid queue body: %v", err))
	}

	tracks, err := s.store.Tracks.ByIDs(c.Request().Context(), req.TrackIDs)
	if err != nil {
		return jsonError(c, err)
	}
	if len(tracks) == 0 {
		return jsonError(c, errors.ErrTrackNotFound)
	}
	if err := s.player.Add(tracks...); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, s.player.Queue())
}

func (s *Server) queueClear(c echo.Context) error {
	if err := s.player.Clear(); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, s.player.Queue())
}

func (s *Server) queueJump(c echo.Context) error {
	var req JumpRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, fmt.Errorf("invalid jump body: %v", err))
	}
	if err := s.player.JumpTo(req.Index); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, s.player.State())
}

func (s *Server) tracks(c echo.Context) error {
	ctx := c.Request().Context()

	var (
		tracks []core.Track
		err    error
	)
	if q := c.QueryParam("q"); q != "" {
		tracks, err = s.store.Tracks.Search(ctx, q)
	} else {
		tracks, err = s.store.Tracks.List(ctx)
	}
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, tracks)
}

func (s *Server) track(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	track, err := s.store.Tracks.ByID(ctx, id)
	if err != nil {
		return jsonError(c, err)
	}

	info := TrackInfo{Track: track}
	if plays, err := s.store.Plays.CountForTrack(ctx, id); err == nil {
		info.Plays = plays
	}
	if s.graph != nil {
		if likes, err := s.graph.LikeCount(ctx, id); err == nil {
			info.Likes = likes
		}
		if liked, err := s.graph.IsLiked(ctx, userID(c), id); err == nil {
			info.Liked = liked
		}
	}
	if s.market != nil {
		if total, err := s.market.TrackTotal(ctx, id); err == nil {
			info.InvestedCents = total
		}
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) like(c echo.Context) error {
	if s.graph == nil {
		return jsonError(c, fmt.Errorf("social graph disabled"))
	}
	if _, err := s.graph.Like(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return jsonError(c, err)
	}
	return s.track(c)
}

func (s *Server) unlike(c echo.Context) error {
	if s.graph == nil {
		return jsonError(c, fmt.Errorf("social graph disabled"))
	}
	if _, err := s.graph.Unlike(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return jsonError(c, err)
	}
	return s.track(c)
}

func (s *Server) artist(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	artist, err := s.store.Artists.ByID(ctx, id)
	if err != nil {
		return jsonError(c, err)
	}

	info := ArtistInfo{Artist: artist}
	if s.graph != nil {
		if followers, err := s.graph.FollowerCount(ctx, id); err == nil {
			info.Followers = followers
		}
		if following, err := s.graph.IsFollowing(ctx, userID(c), id); err == nil {
			info.Following = following
		}
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) follow(c echo.Context) error {
	if s.graph == nil {
		return jsonError(c, fmt.Errorf("social graph disabled"))
	}
	if _, err := s.graph.Follow(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return jsonError(c, err)
	}
	return s.artist(c)
}

func (s *Server) unfollow(c echo.Context) error {
	if s.graph == nil {
		return jsonError(c, fmt.Errorf("social graph disabled"))
	}
	if _, err := s.graph.Unfollow(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return jsonError(c, err)
	}
	return s.artist(c)
}

func (s *Server) invest(c echo.Context) error {
	if s.market == nil {
		return jsonError(c, fmt.Errorf("market disabled"))
	}

	var req InvestRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, fmt.Errorf("invalid invest body: %v", err))
	}
	ctx := c.Request().Context()

	// The stake must target a real track.
	if _, err := s.store.Tracks.ByID(ctx, req.TrackID); err != nil {
		return jsonError(c, err)
	}

	inv, err := s.market.Invest(ctx, userID(c), req.TrackID, req.AmountCents)
	if err != nil {
		return jsonError(c, err)
	}
	total, err := s.market.TrackTotal(ctx, req.TrackID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, &InvestResponse{
		Investment:      inv,
		TrackTotalCents: total,
	})
}

func (s *Server) portfolio(c echo.Context) error {
	if s.market == nil {
		return jsonError(c, fmt.Errorf("market disabled"))
	}

	positions, err := s.market.Portfolio(c.Request().Context(), userID(c), s.store.Plays)
	if err != nil {
		return jsonError(c, err)
	}
	if positions == nil {
		positions = []market.Position{}
	}
	return c.JSON(http.StatusOK, positions)
}

func (s *Server) history(c echo.Context) error {
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.store.Plays.Recent(c.Request().Context(), limit)
	if err != nil {
		return jsonError(c, err)
	}
	if entries == nil {
		entries = []core.HistoryEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}
