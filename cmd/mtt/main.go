// Command mtt is the client-side transport and session core's entry
// point: it dials a Minetest-compatible server, authenticates, syncs
// media and node definitions, and logs the session's progress. It does
// not render anything (spec.md §1 Non-goals) — it exists to prove the
// core against a real server and to give a scriptable headless client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/weqqr/mtt-go/internal/config"
	"github.com/weqqr/mtt-go/internal/session"
	"github.com/weqqr/mtt-go/pkg/mtlog"
)

const version = "0.1.0"

func main() {
	log := mtlog.New()

	if len(os.Args) < 2 {
		log.Fatal("usage: %s <server_address> [player_name]", os.Args[0])
	}
	addr := os.Args[1]

	playerName := os.Getenv("USER")
	if len(os.Args) >= 3 {
		playerName = os.Args[2]
	}
	if playerName == "" {
		log.Fatal("player name not given and $USER is empty")
	}

	// password may be left empty: some servers run with no password
	// checking at all, and the source treats an empty MTT_PASSWORD the
	// same way (see §4.5's login-only note).
	password := os.Getenv("MTT_PASSWORD")

	cfgPath := os.Getenv("MTT_CONFIG")
	if cfgPath == "" {
		cfgPath = "mtt.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal("loading config: %v", err)
	}
	log.SetLevel(mtlog.ParseLevel(cfg.LogLevel))

	mediaCacheDir := cfg.MediaCacheDir
	if mediaCacheDir == "" {
		mediaCacheDir = defaultMediaCacheDir()
	}

	log.Info("mtt-go %s connecting to %s as %s", version, addr, playerName)
	log.Info("media cache: %s", mediaCacheDir)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HandshakeTimeoutMS)*time.Millisecond)
	s, err := session.Open(ctx, addr, playerName, password, mediaCacheDir, log)
	cancel()
	if err != nil {
		log.Fatal("connecting: %v", err)
	}
	log.Success("handshake complete, authenticating")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(runCtx) }()

	reportTicker := time.NewTicker(10 * time.Second)
	defer reportTicker.Stop()

	for {
		select {
		case err := <-runErr:
			if err != nil {
				log.Error("session ended: %v", err)
				os.Exit(1)
			}
			log.Info("session ended")
			return
		case sig := <-sigCh:
			log.Warn("received signal %v, shutting down", sig)
			runCancel()
			s.Shutdown()
			<-runErr
			return
		case <-reportTicker.C:
			reportStatus(log, s)
		}
	}
}

func reportStatus(log *mtlog.Logger, s *session.Session) {
	snap := s.Snapshot()
	dirty := s.TakeDirtyBlocks()
	log.Debug(
		"state=%v pos=(%.1f, %.1f, %.1f) blocks_updated=%s",
		snap.State,
		snap.Player.Pos.X, snap.Player.Pos.Y, snap.Player.Pos.Z,
		humanize.Comma(int64(len(dirty))),
	)
}

func defaultMediaCacheDir() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return ".mtt-media-cache"
	}
	return fmt.Sprintf("%s/mtt-go/media", cacheDir)
}
