package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/murexstreams/murex/internal/audio"
	"github.com/murexstreams/murex/internal/auth"
	"github.com/murexstreams/murex/internal/core"
	"github.com/murexstreams/murex/internal/errors"
	"github.com/murexstreams/murex/internal/kv"
	"github.com/murexstreams/murex/internal/library"
	"github.com/murexstreams/murex/internal/logging"
	"github.com/murexstreams/murex/internal/market"
	"github.com/murexstreams/murex/internal/playback"
	"github.com/murexstreams/murex/internal/remote"
	"github.com/murexstreams/murex/internal/social"
	"github.com/murexstreams/murex/internal/watch"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the station",
	Long: `Runs the station: the playback engine plus the HTTP API that the
other murex commands talk to.

The station records a play each time a track finishes naturally, which
is what drives trending and stake payouts. With --watch, audio files
dropped into the library directory are imported automatically.

Stop with Ctrl+C.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Auto-import files dropped into the library directory")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if cfg.Remote.JWTSecret == "" {
		return errors.WithSuggestion(errors.ErrInvalidConfig,
			"set remote.jwt_secret in your config before serving")
	}

	log, err := openLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()

	dbURL, err := resolveDBURL()
	if err != nil {
		return err
	}
	db, err := library.Open(dbURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	store := library.NewStore(db)

	users, err := auth.NewStore(db)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokens(cfg.Remote.JWTSecret)
	if err != nil {
		return err
	}

	ledger, err := market.NewLedger(db)
	if err != nil {
		return err
	}
	mkt := market.New(ledger, market.Config{
		PayoutPerPlayCents: cfg.Market.PayoutPerPlayCents,
		MinInvestCents:     cfg.Market.MinInvestCents,
	}, log)

	cache, err := kv.NewSQL(db)
	if err != nil {
		return err
	}
	graph, err := social.NewGraph(db, cache, log)
	if err != nil {
		return err
	}

	engine, err := audio.New(cfg.Playback.Engine, time.Duration(cfg.Playback.TickMillis)*time.Millisecond)
	if err != nil {
		return err
	}
	repeat, err := core.ParseRepeatMode(cfg.Playback.Repeat)
	if err != nil {
		return err
	}
	player, err := playback.New(engine, playback.Options{
		Repeat:  repeat,
		Shuffle: cfg.Playback.Shuffle,
		Volume:  float64(cfg.Playback.Volume) / 100,
		Logger:  log,
	})
	if err != nil {
		return err
	}
	defer func() { _ = player.Close() }()

	server, err := remote.NewServer(remote.Options{
		Player:  player,
		Library: store,
		Market:  mkt,
		Social:  graph,
		Users:   users,
		Tokens:  tokens,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Journal natural completions so plays drive trending and payouts.
	// Station plays carry no user.
	recorder := watch.NewRecorder(playJournal{store.Plays}, "", log)
	events := make(chan watch.Event, 16)
	sub := player.Subscribe()
	defer sub.Cancel()
	go bridgeCompletions(sub, events)
	go recorder.Run(ctx, events)

	if serveWatch {
		dir, err := cfg.Library.ResolveDir()
		if err != nil {
			return err
		}
		imp := library.NewImporter(store, log)
		watcher := library.NewWatcher(imp, dir, 2*time.Second, log)
		if err := watcher.Start(); err != nil {
			log.Warnf("library watcher disabled: %v", err)
		} else {
			defer watcher.Stop()
			go logImports(watcher.Events(), log)
		}
	}

	if cfg.Tail.Enabled {
		interval := time.Duration(cfg.Tail.Interval) * time.Millisecond
		statusWatcher := watch.NewWatcher(localSource{player}, interval)
		formatter := watch.NewFormatter(watch.WithEmoji(false))
		go func() {
			if err := statusWatcher.Start(ctx); err != nil && err != context.Canceled {
				log.Warnf("status watcher: %v", err)
			}
		}()
		go func() {
			for e := range statusWatcher.Events() {
				log.Infof("%s", formatter.Format(e))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if !JSONOutput() {
		fmt.Printf("Murex station on http://%s (engine: %s)\n", cfg.Remote.Listen, player.EngineName())
		fmt.Println("Press Ctrl+C to stop.")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(cfg.Remote.Listen) }()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// playJournal adapts the play repository to the recorder's journal.
type playJournal struct {
	plays library.PlayRepository
}

func (j playJournal) Record(ctx context.Context, trackID, userID string) error {
	_, err := j.plays.Record(ctx, trackID, userID)
	return err
}

// localSource adapts the in-process coordinator to the watch.Source
// the status watcher polls.
type localSource struct {
	player playback.Service
}

func (s localSource) PlayerState(ctx context.Context) (*core.PlaybackState, error) {
	state := s.player.State()
	return &state, nil
}

func (s localSource) PlayerQueue(ctx context.Context) (*core.Queue, error) {
	queue := s.player.Queue()
	return &queue, nil
}

// bridgeCompletions republishes coordinator completions as watch
// events for the recorder. The coordinator reports completions
// exactly, so no progress heuristic is involved.
func bridgeCompletions(sub *playback.Subscription, events chan<- watch.Event) {
	defer close(events)
	for {
		select {
		case t := <-sub.Completed:
			state := core.PlaybackState{Track: &t}
			select {
			case events <- watch.Event{
				Type:      watch.EventTrackComplete,
				Timestamp: time.Now(),
				Previous:  &state,
			}:
			default:
			}
		case <-sub.Done:
			return
		}
	}
}

// logImports surfaces watcher imports in the station log. Failures are
// already logged by the watcher itself.
func logImports(events <-chan library.WatchEvent, log *logging.Logger) {
	for ev := range events {
		if ev.Err != nil || ev.Result == nil {
			continue
		}
		if ev.Result.Duplicate {
			log.Debugf("already in catalog: %s", ev.Path)
			continue
		}
		log.Infof("imported %s — %s", ev.Result.Track.Title, ev.Result.Track.Artist)
	}
}
