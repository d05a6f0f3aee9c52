package remote

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/murexstreams/murex/internal/audio"
	"github.com/murexstreams/murex/internal/auth"
	"github.com/murexstreams/murex/internal/core"
	"github.com/murexstreams/murex/internal/library"
	"github.com/murexstreams/murex/internal/logging"
	"github.com/murexstreams/murex/internal/market"
	"github.com/murexstreams/murex/internal/playback"
	"github.com/murexstreams/murex/internal/social"
)

type testEnv struct {
	server *Server
	store  *library.Store
	ts     *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := library.Open("sqlite://:memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := library.NewStore(db)
	seedLibrary(t, store)

	ledger, err := market.NewLedger(db)
	if err != nil {
		t.Fatalf("NewLedger() error = %v", err)
	}
	mkt := market.New(ledger, market.Config{PayoutPerPlayCents: 10, MinInvestCents: 100}, nil)

	graph, err := social.NewGraph(db, nil, nil)
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}

	users, err := auth.NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	tokens, err := auth.NewTokens("remote-test-secret")
	if err != nil {
		t.Fatalf("NewTokens() error = %v", err)
	}

	player, err := playback.New(audio.NewMock(), playback.Options{Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("playback.New() error = %v", err)
	}
	t.Cleanup(func() { player.Close() })

	srv, err := NewServer(Options{
		Player:  player,
		Library: store,
		Market:  mkt,
		Social:  graph,
		Users:   users,
		Tokens:  tokens,
		Logger:  logging.Discard(),
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{server: srv, store: store, ts: ts}
}

func seedLibrary(t *testing.T, store *library.Store) {
	t.Helper()
	ctx := context.Background()

	artist := core.Artist{ID: "a1", Name: "Neon Tide", JoinedAt: time.Now().UTC()}
	if err := store.Artists.Upsert(ctx, artist); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	tracks := []core.Track{
		{ID: "t1", Title: "Electric Sunrise", ArtistID: "a1", Album: "First Light", Duration: 3 * time.Minute, AudioPath: "/music/t1.wav", Fingerprint: "fp-t1"},
		{ID: "t2", Title: "Glass Harbor", ArtistID: "a1", Album: "First Light", Duration: 4 * time.Minute, AudioPath: "/music/t2.wav", Fingerprint: "fp-t2"},
		{ID: "t3", Title: "Undertow", ArtistID: "a1", Album: "First Light", Duration: 2 * time.Minute, AudioPath: "/music/t3.wav", Fingerprint: "fp-t3"},
	}
	for _, track := range tracks {
		track.AddedAt = time.Now().UTC()
		if err := store.Tracks.Insert(ctx, track, library.Analysis{}); err != nil {
			t.Fatalf("Insert(%s) error = %v", track.ID, err)
		}
	}
}

// newClient returns a client with a fresh account already logged in.
func (env *testEnv) newClient(t *testing.T, username string) *Client {
	t.Helper()
	client := NewClient(BaseURL(env.ts.URL), nil)
	if _, err := client.Signup(context.Background(), username, "correct-horse"); err != nil {
		t.Fatalf("Signup(%s) error = %v", username, err)
	}
	return client
}

func TestHealthOpen(t *testing.T) {
	env := newTestEnv(t)
	client := NewClient(BaseURL(env.ts.URL), nil)

	engine, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if engine != "mock" {
		t.Errorf("engine = %q, want %q", engine, "mock")
	}
}

func TestGuardedRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	client := NewClient(BaseURL(env.ts.URL), nil)

	_, err := client.PlayerState(context.Background())
	if err == nil {
		t.Fatal("PlayerState() without login succeeded, want 401")
	}
	if !IsAuthError(err) {
		t.Errorf("IsAuthError(%v) = false, want true", err)
	}
}

func TestSignupAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := NewClient(BaseURL(env.ts.URL), nil)

	session, err := client.Signup(ctx, "Ada", "correct-horse")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if session.Username != "ada" {
		t.Errorf("Username = %q, want %q", session.Username, "ada")
	}
	if session.Token == "" {
		t.Error("Token is empty")
	}
	if !client.IsAuthenticated() {
		t.Error("IsAuthenticated() = false after signup")
	}

	// The same name cannot be registered twice.
	other := NewClient(BaseURL(env.ts.URL), nil)
	_, err = other.Signup(ctx, "ada", "another-pass")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("duplicate Signup() error = %v, want *APIError", err)
	}
	if apiErr.Status != 409 {
		t.Errorf("Status = %d, want 409", apiErr.Status)
	}
	if apiErr.Suggestion == "" {
		t.Error("Suggestion is empty")
	}

	// Wrong password is a 401 without leaking which part was wrong.
	_, err = other.Login(ctx, "ada", "wrong")
	if !IsAuthError(err) {
		t.Errorf("IsAuthError(%v) = false, want true", err)
	}

	if _, err := other.Login(ctx, "ADA", "correct-horse"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := other.PlayerState(ctx); err != nil {
		t.Errorf("PlayerState() after login error = %v", err)
	}
}

func TestSessionPersistence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	storage, err := auth.NewSessionStorage(path)
	if err != nil {
		t.Fatalf("NewSessionStorage() error = %v", err)
	}

	first := NewClient(BaseURL(env.ts.URL), storage)
	if _, err := first.Signup(ctx, "mallory", "correct-horse"); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	// A fresh client picks the session up from disk.
	second := NewClient(BaseURL(env.ts.URL), storage)
	if err := second.LoadSession(); err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if !second.IsAuthenticated() {
		t.Fatal("IsAuthenticated() = false after LoadSession")
	}
	if _, err := second.PlayerState(ctx); err != nil {
		t.Errorf("PlayerState() error = %v", err)
	}

	if err := second.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	session, err := storage.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if session != nil {
		t.Error("session survived logout")
	}
}

func TestPlayerFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "carol")

	// Resuming an empty queue is an error the server reports cleanly.
	_, err := client.Play(ctx, nil, 0)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Play() on empty queue error = %v, want *APIError", err)
	}
	if apiErr.Status != 400 {
		t.Errorf("Status = %d, want 400", apiErr.Status)
	}

	state, err := client.Play(ctx, []string{"t1", "t2"}, 0)
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if !state.IsPlaying {
		t.Error("IsPlaying = false after play")
	}
	if state.Track == nil || state.Track.ID != "t1" {
		t.Fatalf("Track = %+v, want t1", state.Track)
	}

	state, err = client.Pause(ctx)
	if err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if state.IsPlaying {
		t.Error("IsPlaying = true after pause")
	}

	state, err = client.Toggle(ctx)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if !state.IsPlaying {
		t.Error("IsPlaying = false after toggle")
	}

	state, err = client.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if state.Track == nil || state.Track.ID != "t2" {
		t.Fatalf("Track after next = %+v, want t2", state.Track)
	}

	state, err = client.SetVolume(ctx, 0.5)
	if err != nil {
		t.Fatalf("SetVolume() error = %v", err)
	}
	if state.Volume != 0.5 {
		t.Errorf("Volume = %v, want 0.5", state.Volume)
	}

	state, err = client.SetRepeat(ctx, "all")
	if err != nil {
		t.Fatalf("SetRepeat() error = %v", err)
	}
	if state.Repeat != core.RepeatAll {
		t.Errorf("Repeat = %q, want %q", state.Repeat, core.RepeatAll)
	}
	if _, err := client.SetRepeat(ctx, "sideways"); err == nil {
		t.Error("SetRepeat(sideways) succeeded, want error")
	}

	state, err = client.SetShuffle(ctx, true)
	if err != nil {
		t.Fatalf("SetShuffle() error = %v", err)
	}
	if !state.Shuffle {
		t.Error("Shuffle = false after enabling")
	}

	state, err = client.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if state.IsPlaying {
		t.Error("IsPlaying = true after stop")
	}
}

func TestSeek(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "dave")

	if _, err := client.Play(ctx, []string{"t1"}, 0); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	state, err := client.SeekTo(ctx, 30*time.Second)
	if err != nil {
		t.Fatalf("SeekTo() error = %v", err)
	}
	if state.Position != 30*time.Second {
		t.Errorf("Position = %v, want 30s", state.Position)
	}

	state, err = client.SeekBy(ctx, -10*time.Second)
	if err != nil {
		t.Fatalf("SeekBy() error = %v", err)
	}
	if state.Position != 20*time.Second {
		t.Errorf("Position = %v, want 20s", state.Position)
	}
}

func TestQueueOps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "erin")

	_, err := client.QueueAdd(ctx, []string{"nope"})
	if !IsNotFoundError(err) {
		t.Errorf("IsNotFoundError(%v) = false, want true", err)
	}

	queue, err := client.QueueAdd(ctx, []string{"t1", "t2", "t3"})
	if err != nil {
		t.Fatalf("QueueAdd() error = %v", err)
	}
	if queue.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", queue.Len())
	}

	queue, err = client.PlayerQueue(ctx)
	if err != nil {
		t.Fatalf("PlayerQueue() error = %v", err)
	}
	if queue.Len() != 3 {
		t.Errorf("Len() = %d, want 3", queue.Len())
	}

	state, err := client.QueueJump(ctx, 2)
	if err != nil {
		t.Fatalf("QueueJump() error = %v", err)
	}
	if state.Track == nil || state.Track.ID != "t3" {
		t.Fatalf("Track after jump = %+v, want t3", state.Track)
	}

	_, err = client.QueueJump(ctx, 99)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("QueueJump(99) error = %v, want *APIError", err)
	}
	if apiErr.Status != 400 {
		t.Errorf("Status = %d, want 400", apiErr.Status)
	}

	queue, err = client.QueueClear(ctx)
	if err != nil {
		t.Fatalf("QueueClear() error = %v", err)
	}
	if !queue.IsEmpty() {
		t.Errorf("queue not empty after clear: %d tracks", queue.Len())
	}
}

func TestTracksAndSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "frank")

	tracks, err := client.Tracks(ctx, "")
	if err != nil {
		t.Fatalf("Tracks() error = %v", err)
	}
	if len(tracks) != 3 {
		t.Errorf("len(tracks) = %d, want 3", len(tracks))
	}
	if tracks[0].Artist != "Neon Tide" {
		t.Errorf("Artist = %q, want %q", tracks[0].Artist, "Neon Tide")
	}

	tracks, err = client.Tracks(ctx, "harbor")
	if err != nil {
		t.Fatalf("Tracks(harbor) error = %v", err)
	}
	if len(tracks) != 1 || tracks[0].ID != "t2" {
		t.Errorf("search results = %+v, want just t2", tracks)
	}
}

func TestTrackInfo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "grace")

	info, err := client.Track(ctx, "t1")
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	if info.Title != "Electric Sunrise" {
		t.Errorf("Title = %q, want %q", info.Title, "Electric Sunrise")
	}
	if info.Liked || info.Likes != 0 || info.Plays != 0 || info.InvestedCents != 0 {
		t.Errorf("fresh track has stats: %+v", info)
	}

	if _, err := env.store.Plays.Record(ctx, "t1", "someone"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	info, err = client.Like(ctx, "t1")
	if err != nil {
		t.Fatalf("Like() error = %v", err)
	}
	if !info.Liked {
		t.Error("Liked = false after like")
	}
	if info.Likes != 1 {
		t.Errorf("Likes = %d, want 1", info.Likes)
	}
	if info.Plays != 1 {
		t.Errorf("Plays = %d, want 1", info.Plays)
	}

	info, err = client.Unlike(ctx, "t1")
	if err != nil {
		t.Fatalf("Unlike() error = %v", err)
	}
	if info.Liked || info.Likes != 0 {
		t.Errorf("after unlike: Liked = %v, Likes = %d", info.Liked, info.Likes)
	}

	if _, err := client.Track(ctx, "missing"); !IsNotFoundError(err) {
		t.Errorf("Track(missing) error = %v, want 404", err)
	}
}

func TestArtistFollow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "heidi")

	info, err := client.Artist(ctx, "a1")
	if err != nil {
		t.Fatalf("Artist() error = %v", err)
	}
	if info.Name != "Neon Tide" {
		t.Errorf("Name = %q, want %q", info.Name, "Neon Tide")
	}
	if info.Following || info.Followers != 0 {
		t.Errorf("fresh artist has followers: %+v", info)
	}

	info, err = client.Follow(ctx, "a1")
	if err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	if !info.Following || info.Followers != 1 {
		t.Errorf("after follow: Following = %v, Followers = %d", info.Following, info.Followers)
	}

	info, err = client.Unfollow(ctx, "a1")
	if err != nil {
		t.Fatalf("Unfollow() error = %v", err)
	}
	if info.Following || info.Followers != 0 {
		t.Errorf("after unfollow: Following = %v, Followers = %d", info.Following, info.Followers)
	}

	if _, err := client.Artist(ctx, "missing"); !IsNotFoundError(err) {
		t.Errorf("Artist(missing) error = %v, want 404", err)
	}
}

func TestInvestAndPortfolio(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "ivan")

	resp, err := client.Invest(ctx, "t1", 500)
	if err != nil {
		t.Fatalf("Invest() error = %v", err)
	}
	if resp.Investment.State != market.StateCommitted {
		t.Errorf("State = %q, want %q", resp.Investment.State, market.StateCommitted)
	}
	if resp.TrackTotalCents != 500 {
		t.Errorf("TrackTotalCents = %d, want 500", resp.TrackTotalCents)
	}

	// Below the minimum stake.
	_, err = client.Invest(ctx, "t1", 50)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Invest(50) error = %v, want *APIError", err)
	}
	if apiErr.Status != 400 {
		t.Errorf("Status = %d, want 400", apiErr.Status)
	}

	if _, err := client.Invest(ctx, "missing", 500); !IsNotFoundError(err) {
		t.Errorf("Invest(missing) error = %v, want 404", err)
	}

	if _, err := env.store.Plays.Record(ctx, "t1", "listener"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	positions, err := client.Portfolio(ctx)
	if err != nil {
		t.Fatalf("Portfolio() error = %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("len(positions) = %d, want 1", len(positions))
	}
	pos := positions[0]
	if pos.TrackID != "t1" || pos.StakeCents != 500 {
		t.Errorf("position = %+v, want 500 on t1", pos)
	}
	if pos.Plays != 1 {
		t.Errorf("Plays = %d, want 1", pos.Plays)
	}
	// Sole investor keeps the whole payout: 1 play at 10 cents.
	if pos.ReturnCents != 10 {
		t.Errorf("ReturnCents = %d, want 10", pos.ReturnCents)
	}

	// A second account starts with nothing.
	other := env.newClient(t, "judy")
	positions, err = other.Portfolio(ctx)
	if err != nil {
		t.Fatalf("Portfolio() error = %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("len(positions) = %d, want 0", len(positions))
	}
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "oscar")

	entries, err := client.History(ctx, 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}

	if _, err := env.store.Plays.Record(ctx, "t1", "oscar"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := env.store.Plays.Record(ctx, "t2", "oscar"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err = client.History(ctx, 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Track.ID != "t2" {
		t.Errorf("newest entry = %q, want t2", entries[0].Track.ID)
	}

	entries, err = client.History(ctx, 1)
	if err != nil {
		t.Fatalf("History(limit=1) error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("len(entries) = %d, want 1", len(entries))
	}
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"127.0.0.1:7707", "http://127.0.0.1:7707/api"},
		{"http://127.0.0.1:7707", "http://127.0.0.1:7707/api"},
		{"http://localhost:7707/", "http://localhost:7707/api"},
	}
	for _, tt := range tests {
		if got := BaseURL(tt.in); got != tt.want {
			t.Errorf("BaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
