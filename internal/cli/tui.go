package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/murexstreams/murex/internal/audio"
	"github.com/murexstreams/murex/internal/auth"
	"github.com/murexstreams/murex/internal/core"
	"github.com/murexstreams/murex/internal/kv"
	"github.com/murexstreams/murex/internal/library"
	"github.com/murexstreams/murex/internal/logging"
	"github.com/murexstreams/murex/internal/market"
	"github.com/murexstreams/murex/internal/playback"
	"github.com/murexstreams/murex/internal/remote"
	"github.com/murexstreams/murex/internal/social"
	"github.com/murexstreams/murex/internal/theme"
	"github.com/murexstreams/murex/internal/tui"
	"github.com/murexstreams/murex/internal/watch"
)

var tuiRefresh int

var tuiCmd = &cobra.Command{
	Use:     "ui",
	Aliases: []string{"tui"},
	Short:   "Launch interactive dashboard",
	Long: `Launch the interactive terminal dashboard.

The dashboard runs its own playback engine in this terminal and
provides a live view with:
  • Now Playing - current track, progress, waveform in the full player
  • Library - your imported catalog
  • Queue - upcoming tracks
  • Portfolio - your stakes and returns

Keyboard shortcuts:
  q, Ctrl+C    Quit
  ?            Help
  /            Search the catalog
  Space        Play/Pause
  n / p        Next / previous track
  +/-          Volume up/down
  S / R        Shuffle / repeat mode
  f / m        Full player / mini player
  t            Cycle theme
  Tab          Switch panel
  Enter        Play selection
  a / l / $    Queue / like / back the selected track`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().IntVar(&tuiRefresh, "refresh", 0, "Refresh interval in milliseconds (default from config)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	// The dashboard owns the terminal, so logs go to the configured
	// file or nowhere.
	log := logging.Discard()
	if cfg.Log.File != "" {
		level, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		log, err = logging.Open(level, cfg.Log.File)
		if err != nil {
			return err
		}
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
	themes := theme.NewManager(cache, cfg.TUI.Theme)

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

	// Likes, stakes and journaled plays attach to the logged-in user.
	userID := ""
	if storage, err := auth.NewSessionStorage(""); err == nil {
		if session, err := storage.Load(); err == nil && session != nil && !session.IsExpired() {
			userID = session.UserID
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// The dashboard's engine journals completions too, so plays count
	// toward trending and payouts.
	recorder := watch.NewRecorder(playJournal{store.Plays}, userID, log)
	events := make(chan watch.Event, 16)
	sub := player.Subscribe()
	defer sub.Cancel()
	go bridgeCompletions(sub, events)
	go recorder.Run(ctx, events)

	// Expose the station API alongside the dashboard when enabled, so
	// another terminal can tail or control this session.
	if cfg.Remote.Enabled {
		if cfg.Remote.JWTSecret == "" {
			log.Warnf("remote API disabled: remote.jwt_secret not set")
		} else {
			users, err := auth.NewStore(db)
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokens(cfg.Remote.JWTSecret)
			if err != nil {
				return err
			}
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
			go func() {
				if err := server.Start(cfg.Remote.Listen); err != nil {
					log.Errorf("remote API: %v", err)
				}
			}()
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer shutdownCancel()
				_ = server.Shutdown(shutdownCtx)
			}()
		}
	}

	refresh := time.Duration(tuiRefresh) * time.Millisecond
	if tuiRefresh == 0 {
		refresh = time.Duration(cfg.TUI.RefreshInterval) * time.Millisecond
	}

	return tui.Run(tui.Options{
		Player:  player,
		Store:   store,
		Market:  mkt,
		Graph:   graph,
		Themes:  themes,
		Logger:  log,
		UserID:  userID,
		Refresh: refresh,
	})
}
