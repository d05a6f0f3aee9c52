// Package social maintains the like and follow graph. Edge flips are
// applied to the local cache and visible counts first, then persisted;
// a failed persist rolls the flip back and reports through OnRevert.
package social

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/murexstreams/murex/internal/errors"
	"github.com/murexstreams/murex/internal/kv"
	"github.com/murexstreams/murex/internal/logging"
)

// Relation names the kind of edge a change touches.
type Relation string

const (
	// RelationLike links a user to a track.
	RelationLike Relation = "like"

	// RelationFollow links a user to an artist.
	RelationFollow Relation = "follow"
)

// ChangeState tracks an edge flip through the two-phase pipeline.
type ChangeState string

const (
	ChangePending   ChangeState = "pending"
	ChangeCommitted ChangeState = "committed"
	ChangeReverted  ChangeState = "reverted"
)

// Change is one optimistic edge flip.
type Change struct {
	Relation Relation
	UserID   string
	TargetID string
	Added    bool
	State    ChangeState
}

var graphSchema = []string{
	`CREATE TABLE IF NOT EXISTS likes (
		user_id    TEXT NOT NULL,
		track_id   TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, track_id)
	)`,
	`CREATE TABLE IF NOT EXISTS follows (
		user_id    TEXT NOT NULL,
		artist_id  TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, artist_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_likes_track ON likes(track_id)`,
	`CREATE INDEX IF NOT EXISTS idx_follows_artist ON follows(artist_id)`,
}

// Graph stores likes and follows with an optimistic local cache.
type Graph struct {
	db    *sqlx.DB
	cache kv.Store
	log   *logging.Logger

	mu          sync.Mutex
	likeDelta   map[string]int64
	followDelta map[string]int64
	onRevert    func(Change, error)
}

// NewGraph ensures the social schema and returns the graph. cache may
// be nil, in which case an in-memory store is used.
func NewGraph(db *sqlx.DB, cache kv.Store, log *logging.Logger) (*Graph, error) {
	for _, stmt := range graphSchema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("bootstrapping social schema: %w", err)
		}
	}
	if cache == nil {
		cache = kv.NewMemory()
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Graph{
		db:          db,
		cache:       cache,
		log:         log,
		likeDelta:   make(map[string]int64),
		followDelta: make(map[string]int64),
	}, nil
}

// OnRevert registers a callback fired whenever an edge flip rolls
// back, with the cause.
func (g *Graph) OnRevert(fn func(Change, error)) {
	g.mu.Lock()
	g.onRevert = fn
	g.mu.Unlock()
}

func likeKey(userID, trackID string) string {
	return "social:like:" + userID + ":" + trackID
}

func followKey(userID, artistID string) string {
	return "social:follow:" + userID + ":" + artistID
}

func (g *Graph) edgeKey(rel Relation, userID, targetID string) string {
	if rel == RelationFollow {
		return followKey(userID, targetID)
	}
	return likeKey(userID, targetID)
}

// Op is one staged edge flip awaiting settlement.
type Op struct {
	g *Graph

	mu      sync.Mutex
	change  Change
	key     string
	prev    string
	hadPrev bool
	settled bool
}

// Change returns the op's current view of the flip.
func (op *Op) Change() Change {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.change
}

// Stage flips the cached edge and visible counts immediately. The
// returned Op must be committed or reverted. Staging an edge that is
// already in the requested state fails with ErrNoChange.
func (g *Graph) Stage(ctx context.Context, rel Relation, userID, targetID string, add bool) (*Op, error) {
	current, err := g.hasEdge(ctx, rel, userID, targetID)
	if err != nil {
		return nil, err
	}
	if current == add {
		return nil, errors.ErrNoChange
	}

	key := g.edgeKey(rel, userID, targetID)
	prev, hadPrev, _ := g.cache.Get(key)
	if err := g.cache.Set(key, cacheBool(add)); err != nil {
		return nil, fmt.Errorf("caching %s flip: %w", rel, err)
	}

	g.mu.Lock()
	g.applyDeltaLocked(rel, targetID, add)
	g.mu.Unlock()

	return &Op{
		g: g,
		change: Change{
			Relation: rel,
			UserID:   userID,
			TargetID: targetID,
			Added:    add,
			State:    ChangePending,
		},
		key:     key,
		prev:    prev,
		hadPrev: hadPrev,
	}, nil
}

func (g *Graph) applyDeltaLocked(rel Relation, targetID string, add bool) {
	deltas := g.likeDelta
	if rel == RelationFollow {
		deltas = g.followDelta
	}
	if add {
		deltas[targetID]++
	} else {
		deltas[targetID]--
	}
	if deltas[targetID] == 0 {
		delete(deltas, targetID)
	}
}

// Commit persists the flip. A failed write restores the cache and
// counts, reports through OnRevert, and returns the error.
func (op *Op) Commit(ctx context.Context) error {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.settled {
		return fmt.Errorf("%s change for %s already settled", op.change.Relation, op.change.TargetID)
	}
	op.settled = true

	if err := op.g.persist(ctx, op.change); err != nil {
		op.change.State = ChangeReverted
		op.g.rollback(op.key, op.prev, op.hadPrev, op.change, err)
		return err
	}
	op.change.State = ChangeCommitted

	// The row now carries the edge; drop the staged count.
	op.g.mu.Lock()
	op.g.applyDeltaLocked(op.change.Relation, op.change.TargetID, !op.change.Added)
	op.g.mu.Unlock()
	return nil
}

// Revert rolls the flip back without touching storage. cause is
// surfaced to the OnRevert callback.
func (op *Op) Revert(ctx context.Context, cause error) error {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.settled {
		return fmt.Errorf("%s change for %s already settled", op.change.Relation, op.change.TargetID)
	}
	op.settled = true
	op.change.State = ChangeReverted
	op.g.rollback(op.key, op.prev, op.hadPrev, op.change, cause)
	return nil
}

// rollback restores the cache entry and staged count for a failed
// flip, then notifies the revert callback.
func (g *Graph) rollback(key, prev string, hadPrev bool, change Change, cause error) {
	if hadPrev {
		if err := g.cache.Set(key, prev); err != nil {
			g.log.Warnf("restoring %s cache entry: %v", change.Relation, err)
		}
	} else if err := g.cache.Remove(key); err != nil {
		g.log.Warnf("restoring %s cache entry: %v", change.Relation, err)
	}

	g.mu.Lock()
	g.applyDeltaLocked(change.Relation, change.TargetID, !change.Added)
	fn := g.onRevert
	g.mu.Unlock()

	if fn != nil {
		fn(change, cause)
	}
}

func (g *Graph) persist(ctx context.Context, change Change) error {
	var query string
	switch {
	case change.Relation == RelationLike && change.Added:
		query = `INSERT INTO likes (user_id, track_id, created_at) VALUES (?, ?, ?)
			ON CONFLICT (user_id, track_id) DO NOTHING`
	case change.Relation == RelationLike:
		query = `DELETE FROM likes WHERE user_id = ? AND track_id = ?`
	case change.Relation == RelationFollow && change.Added:
		query = `INSERT INTO follows (user_id, artist_id, created_at) VALUES (?, ?, ?)
			ON CONFLICT (user_id, artist_id) DO NOTHING`
	default:
		query = `DELETE FROM follows WHERE user_id = ? AND artist_id = ?`
	}

	args := []interface{}{change.UserID, change.TargetID}
	if change.Added {
		args = append(args, time.Now().UTC())
	}
	if _, err := g.db.ExecContext(ctx, g.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("persisting %s flip: %w", change.Relation, err)
	}
	return nil
}

func cacheBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Like records userID liking trackID. It reports false when the like
// already existed.
func (g *Graph) Like(ctx context.Context, userID, trackID string) (bool, error) {
	return g.flip(ctx, RelationLike, userID, trackID, true)
}

// Unlike removes a like. It reports false when there was none.
func (g *Graph) Unlike(ctx context.Context, userID, trackID string) (bool, error) {
	return g.flip(ctx, RelationLike, userID, trackID, false)
}

// Follow records userID following artistID. It reports false when the
// follow already existed.
func (g *Graph) Follow(ctx context.Context, userID, artistID string) (bool, error) {
	return g.flip(ctx, RelationFollow, userID, artistID, true)
}

// Unfollow removes a follow. It reports false when there was none.
func (g *Graph) Unfollow(ctx context.Context, userID, artistID string) (bool, error) {
	return g.flip(ctx, RelationFollow, userID, artistID, false)
}

func (g *Graph) flip(ctx context.Context, rel Relation, userID, targetID string, add bool) (bool, error) {
	op, err := g.Stage(ctx, rel, userID, targetID, add)
	if err == errors.ErrNoChange {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := op.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// hasEdge consults the cache first and falls back to the database,
// backfilling the cache on a miss.
func (g *Graph) hasEdge(ctx context.Context, rel Relation, userID, targetID string) (bool, error) {
	key := g.edgeKey(rel, userID, targetID)
	if v, ok, err := g.cache.Get(key); err == nil && ok {
		return v == "1", nil
	}

	query := `SELECT COUNT(*) FROM likes WHERE user_id = ? AND track_id = ?`
	if rel == RelationFollow {
		query = `SELECT COUNT(*) FROM follows WHERE user_id = ? AND artist_id = ?`
	}
	var n int
	if err := g.db.GetContext(ctx, &n, g.db.Rebind(query), userID, targetID); err != nil {
		return false, fmt.Errorf("checking %s edge: %w", rel, err)
	}
	if err := g.cache.Set(key, cacheBool(n > 0)); err != nil {
		g.log.Debugf("backfilling %s cache entry: %v", rel, err)
	}
	return n > 0, nil
}

// IsLiked reports whether userID has liked trackID.
func (g *Graph) IsLiked(ctx context.Context, userID, trackID string) (bool, error) {
	return g.hasEdge(ctx, RelationLike, userID, trackID)
}

// IsFollowing reports whether userID follows artistID.
func (g *Graph) IsFollowing(ctx context.Context, userID, artistID string) (bool, error) {
	return g.hasEdge(ctx, RelationFollow, userID, artistID)
}

// LikeCount returns the visible like count for a track, staged flips
// included.
func (g *Graph) LikeCount(ctx context.Context, trackID string) (int64, error) {
	return g.count(ctx, RelationLike, trackID)
}

// FollowerCount returns the visible follower count for an artist,
// staged flips included.
func (g *Graph) FollowerCount(ctx context.Context, artistID string) (int64, error) {
	return g.count(ctx, RelationFollow, artistID)
}

func (g *Graph) count(ctx context.Context, rel Relation, targetID string) (int64, error) {
	query := `SELECT COUNT(*) FROM likes WHERE track_id = ?`
	deltas := g.likeDelta
	if rel == RelationFollow {
		query = `SELECT COUNT(*) FROM follows WHERE artist_id = ?`
		deltas = g.followDelta
	}

	var n int64
	if err := g.db.GetContext(ctx, &n, g.db.Rebind(query), targetID); err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("counting %ss: %w", rel, err)
	}

	g.mu.Lock()
	n += deltas[targetID]
	g.mu.Unlock()
	if n < 0 {
		n = 0
	}
	return n, nil
}

// LikedTracks lists the track IDs userID has liked, newest first.
func (g *Graph) LikedTracks(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	query := g.db.Rebind(`SELECT track_id FROM likes WHERE user_id = ? ORDER BY created_at DESC`)
	if err := g.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("listing likes for %s: %w", userID, err)
	}
	return ids, nil
}

// FollowedArtists lists the artist IDs userID follows, newest first.
func (g *Graph) FollowedArtists(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	query := g.db.Rebind(`SELECT artist_id FROM follows WHERE user_id = ? ORDER BY created_at DESC`)
	if err := g.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("listing follows for %s: %w", userID, err)
	}
	return ids, nil
}
