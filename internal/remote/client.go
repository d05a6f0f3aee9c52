package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/murexstreams/murex/internal/auth"
	"github.com/murexstreams/murex/internal/core"
	"github.com/murexstreams/murex/internal/errors"
	"github.com/murexstreams/murex/internal/market"
)

const (
	// Retry configuration for transient errors
	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// BaseURL turns a listen address into the API base URL.
func BaseURL(listen string) string {
	if !strings.Contains(listen, "://") {
		listen = "http://" + listen
	}
	return strings.TrimSuffix(listen, "/") + "/api"
}

// Client talks to a running murex server over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	storage    *auth.SessionStorage
	session    *auth.Session
	mu         sync.RWMutex
	verbose    bool
	logFunc    func(format string, args ...interface{})
}

// NewClient creates a client for the given API base URL.
func NewClient(baseURL string, storage *auth.SessionStorage) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		storage:    storage,
	}
}

// SetVerbose enables verbose logging.
func (c *Client) SetVerbose(verbose bool, logFunc func(format string, args ...interface{})) {
	c.verbose = verbose
	c.logFunc = logFunc
}

func (c *Client) log(format string, args ...interface{}) {
	if c.verbose && c.logFunc != nil {
		c.logFunc(format, args...)
	}
}

// LoadSession loads the saved session from storage, if any.
func (c *Client) LoadSession() error {
	if c.storage == nil {
		return nil
	}
	session, err := c.storage.Load()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
	return nil
}

// Session returns the current session, or nil when logged out.
func (c *Client) Session() *auth.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// IsAuthenticated returns true if there is a valid (non-expired) session.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session != nil && !c.session.IsExpired()
}

func (c *Client) setSession(session *auth.Session) error {
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
	if c.storage == nil {
		return nil
	}
	if session == nil {
		return c.storage.Delete()
	}
	return c.storage.Save(session)
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.Token
}

// Get performs a GET request against the server.
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	return c.request(ctx, "GET", path, nil, result)
}

// Post performs a POST request against the server.
func (c *Client) Post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.request(ctx, "POST", path, body, result)
}

// Delete performs a DELETE request against the server.
func (c *Client) Delete(ctx context.Context, path string, result interface{}) error {
	return c.request(ctx, "DELETE", path, nil, result)
}

func (c *Client) request(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	fullURL := c.baseURL + path

	if jsonBody != nil {
		c.log("[remote] %s %s\n  body: %s", method, fullURL, string(jsonBody))
	} else {
		c.log("[remote] %s %s", method, fullURL)
	}

	token := c.bearer()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Wait before retry (skip on first attempt)
		if attempt > 0 {
			wait := baseRetryWait * time.Duration(1<<(attempt-1)) // exponential backoff
			c.log("[remote] retry %d/%d after %v (last error: %v)", attempt, maxRetries, wait, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		var bodyReader io.Reader
		if jsonBody != nil {
			bodyReader = strings.NewReader(string(jsonBody))
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			c.log("[remote] network error: %v", err)
			continue // Retry on network error
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			c.log("[remote] read error: %v", err)
			continue
		}

		c.log("[remote] response: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		if resp.StatusCode >= 400 {
			c.log("[remote] response body: %s", string(respBody))
		}

		if resp.StatusCode == http.StatusNoContent {
			return nil
		}

		// Retry on 5xx server errors
		if resp.StatusCode >= 500 {
			lastErr = decodeAPIError(resp.StatusCode, respBody)
			c.log("[remote] server error, will retry: %v", lastErr)
			continue // Retry
		}

		// Don't retry 4xx errors
		if resp.StatusCode >= 400 {
			return decodeAPIError(resp.StatusCode, respBody)
		}

		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("%w: %v", errors.ErrRemoteUnreachable, lastErr)
}

func decodeAPIError(status int, body []byte) error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		apiErr.Status = status
		return &apiErr
	}
	return fmt.Errorf("server returned %d: %s", status, string(body))
}

// IsAuthError checks whether an error is a 401 from the server.
func IsAuthError(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Status == http.StatusUnauthorized
	}
	return false
}

// IsNotFoundError checks whether an error is a 404 from the server.
func IsNotFoundError(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Status == http.StatusNotFound
	}
	return false
}

// buildURL builds a path with query parameters.
func buildURL(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}

	u, _ := url.Parse(path)
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Health checks that the server is up and reports its engine.
func (c *Client) Health(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
		Engine string `json:"engine"`
	}
	if err := c.Get(ctx, "/health", &out); err != nil {
		return "", err
	}
	return out.Engine, nil
}

// Signup registers a new account and persists the returned session.
func (c *Client) Signup(ctx context.Context, username, password string) (*auth.Session, error) {
	var session auth.Session
	creds := Credentials{Username: username, Password: password}
	if err := c.Post(ctx, "/signup", &creds, &session); err != nil {
		return nil, err
	}
	if err := c.setSession(&session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return &session, nil
}

// Login authenticates and persists the returned session.
func (c *Client) Login(ctx context.Context, username, password string) (*auth.Session, error) {
	var session auth.Session
	creds := Credentials{Username: username, Password: password}
	if err := c.Post(ctx, "/login", &creds, &session); err != nil {
		return nil, err
	}
	if err := c.setSession(&session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return &session, nil
}

// Logout discards the session locally. The token simply expires server-side.
func (c *Client) Logout() error {
	return c.setSession(nil)
}

// PlayerState returns the server's current playback state.
func (c *Client) PlayerState(ctx context.Context) (*core.PlaybackState, error) {
	var state core.PlaybackState
	if err := c.Get(ctx, "/player", &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// PlayerQueue returns the server's current queue.
func (c *Client) PlayerQueue(ctx context.Context) (*core.Queue, error) {
	var queue core.Queue
	if err := c.Get(ctx, "/queue", &queue); err != nil {
		return nil, err
	}
	return &queue, nil
}

// Play starts the given tracks, or resumes when none are given.
func (c *Client) Play(ctx context.Context, trackIDs []string, index int) (*core.PlaybackState, error) {
	var body interface{}
	if len(trackIDs) > 0 {
		body = &PlayRequest{TrackIDs: trackIDs, Index: index}
	}
	return c.transport(ctx, "/player/play", body)
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) (*core.PlaybackState, error) {
	return c.transport(ctx, "/player/pause", nil)
}

// Stop stops playback and releases the current track.
func (c *Client) Stop(ctx context.Context) (*core.PlaybackState, error) {
	return c.transport(ctx, "/player/stop", nil)
}

// Toggle flips between playing and paused.
func (c *Client) Toggle(ctx context.Context) (*core.PlaybackState, error) {
	return c.transport(ctx, "/player/toggle", nil)
}

// Next advances to the next track.
func (c *Client) Next(ctx context.Context) (*core.PlaybackState, error) {
	return c.transport(ctx, "/player/next", nil)
}

// Previous restarts the track or steps back in the queue.
func (c *Client) Previous(ctx context.Context) (*core.PlaybackState, error) {
	return c.transport(ctx, "/player/previous", nil)
}

// SeekTo jumps to an absolute position in the current track.
func (c *Client) SeekTo(ctx context.Context, pos time.Duration) (*core.PlaybackState, error) {
	ms := pos.Milliseconds()
	return c.transport(ctx, "/player/seek", &SeekRequest{PositionMillis: &ms})
}

// SeekBy moves the position by a signed delta.
func (c *Client) SeekBy(ctx context.Context, delta time.Duration) (*core.PlaybackState, error) {
	ms := delta.Milliseconds()
	return c.transport(ctx, "/player/seek", &SeekRequest{DeltaMillis: &ms})
}

// SetVolume sets playback volume in the range 0.0 to 1.0.
func (c *Client) SetVolume(ctx context.Context, v float64) (*core.PlaybackState, error) {
	return c.transport(ctx, "/player/volume", &VolumeRequest{Volume: v})
}

// SetShuffle enables or disables shuffle.
func (c *Client) SetShuffle(ctx context.Context, enabled bool) (*core.PlaybackState, error) {
	return c.transport(ctx, "/player/shuffle", &ShuffleRequest{Enabled: enabled})
}

// SetRepeat sets the repeat mode ("none", "one" or "all").
func (c *Client) SetRepeat(ctx context.Context, mode string) (*core.PlaybackState, error) {
	return c.transport(ctx, "/player/repeat", &RepeatRequest{Mode: mode})
}

func (c *Client) transport(ctx context.Context, path string, body interface{}) (*core.PlaybackState, error) {
	var state core.PlaybackState
	if err := c.Post(ctx, path, body, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// QueueAdd appends tracks to the queue.
func (c *Client) QueueAdd(ctx context.Context, trackIDs []string) (*core.Queue, error) {
	var queue core.Queue
	if err := c.Post(ctx, "/queue", &QueueAddRequest{TrackIDs: trackIDs}, &queue); err != nil {
		return nil, err
	}
	return &queue, nil
}

// QueueClear empties the queue.
func (c *Client) QueueClear(ctx context.Context) (*core.Queue, error) {
	var queue core.Queue
	if err := c.Delete(ctx, "/queue", &queue); err != nil {
		return nil, err
	}
	return &queue, nil
}

// QueueJump jumps to the queue entry at index.
func (c *Client) QueueJump(ctx context.Context, index int) (*core.PlaybackState, error) {
	return c.transport(ctx, "/queue/jump", &JumpRequest{Index: index})
}

// Tracks lists the library, filtered by query when one is given.
func (c *Client) Tracks(ctx context.Context, query string) ([]core.Track, error) {
	path := "/tracks"
	if query != "" {
		path = buildURL(path, map[string]string{"q": query})
	}
	var tracks []core.Track
	if err := c.Get(ctx, path, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// Track fetches one track with its play, like and market stats.
func (c *Client) Track(ctx context.Context, id string) (*TrackInfo, error) {
	var info TrackInfo
	if err := c.Get(ctx, "/tracks/"+url.PathEscape(id), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Like marks a track as liked and returns its refreshed stats.
func (c *Client) Like(ctx context.Context, id string) (*TrackInfo, error) {
	var info TrackInfo
	if err := c.Post(ctx, "/tracks/"+url.PathEscape(id)+"/like", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Unlike removes a like and returns the track's refreshed stats.
func (c *Client) Unlike(ctx context.Context, id string) (*TrackInfo, error) {
	var info TrackInfo
	if err := c.Delete(ctx, "/tracks/"+url.PathEscape(id)+"/like", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Artist fetches one artist with follower stats.
func (c *Client) Artist(ctx context.Context, id string) (*ArtistInfo, error) {
	var info ArtistInfo
	if err := c.Get(ctx, "/artists/"+url.PathEscape(id), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Follow follows an artist and returns their refreshed stats.
func (c *Client) Follow(ctx context.Context, id string) (*ArtistInfo, error) {
	var info ArtistInfo
	if err := c.Post(ctx, "/artists/"+url.PathEscape(id)+"/follow", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Unfollow unfollows an artist and returns their refreshed stats.
func (c *Client) Unfollow(ctx context.Context, id string) (*ArtistInfo, error) {
	var info ArtistInfo
	if err := c.Delete(ctx, "/artists/"+url.PathEscape(id)+"/follow", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Invest stakes money on a track.
func (c *Client) Invest(ctx context.Context, trackID string, amountCents int64) (*InvestResponse, error) {
	var out InvestResponse
	req := InvestRequest{TrackID: trackID, AmountCents: amountCents}
	if err := c.Post(ctx, "/invest", &req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Portfolio returns the caller's committed positions with valuations.
func (c *Client) Portfolio(ctx context.Context) ([]market.Position, error) {
	var positions []market.Position
	if err := c.Get(ctx, "/portfolio", &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// History returns recent plays, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]core.HistoryEntry, error) {
	path := "/history"
	if limit > 0 {
		path = buildURL(path, map[string]string{"limit": fmt.Sprintf("%d", limit)})
	}
	var entries []core.HistoryEntry
	if err := c.Get(ctx, path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
