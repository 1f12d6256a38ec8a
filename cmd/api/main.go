package main

import (
	"log"
	"os"

	"github.com/tabshare/tabshare/internal/api"
	"github.com/tabshare/tabshare/internal/parse"
	"github.com/tabshare/tabshare/internal/qr"
	"github.com/tabshare/tabshare/internal/realtime"
	"github.com/tabshare/tabshare/internal/session"
	"github.com/tabshare/tabshare/internal/store"
	"github.com/tabshare/tabshare/pkg/utils"
)

// Start the receipt-splitting server
func main() {
	// Find env file
	envFile := ".env"
	if os.Getenv("ENV_FILE") != "" {
		envFile = os.Getenv("ENV_FILE")
	}

	// Load global config
	cfg := utils.NewConfigFromEnv(envFile)

	// Initialize the session store. Without a database URL the server runs
	// on the in-memory store, which is only suitable for local development.
	var st store.Store
	if databaseURL := cfg.Get("DATABASE_URL"); databaseURL != "" {
		mysqlStore, err := store.NewMySqlStore(databaseURL)
		if err != nil {
			log.Fatalf("[API-MAIN]: Failed to initialize session store: %v", err)
		}
		st = mysqlStore
	} else {
		log.Println("[API-MAIN]: DATABASE_URL not set, using in-memory session store")
		st = store.NewMemoryStore()
	}

	// Initialize the receipt parser
	parser, err := parse.New(cfg)
	if err != nil {
		log.Fatalf("[API-MAIN]: Failed to initialize receipt parser: %v", err)
	}

	// Wire the session components around the process-wide membership registry
	tracker := session.NewTracker()
	coordinator := session.NewCoordinator(st, tracker, cfg.GetDuration("STORE_TIMEOUT", session.DefaultStoreTimeout))
	presence := session.NewPresence(tracker, coordinator)

	// Periodic stale-claim sweep
	sweeper, err := session.NewSweeper(tracker, presence, cfg.GetDuration("CLEANUP_INTERVAL", session.DefaultSweepInterval))
	if err != nil {
		log.Fatalf("[API-MAIN]: Failed to initialize cleanup sweep: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Realtime session rooms
	viewerURL := cfg.GetWithDefault("VIEWER_URL", "http://localhost:5173/session")
	qrSize := cfg.GetIntWithDefault("QR_CODE_SIZE", qr.DefaultSize)
	rt := realtime.NewServer(realtime.NewHub(), tracker, presence, coordinator, viewerURL, func(url string) (string, error) {
		return qr.DataURL(url, qrSize)
	})

	// Start
	if err := api.Start(cfg, api.Dependencies{
		Store:       st,
		Parser:      parser,
		Coordinator: coordinator,
		Realtime:    rt,
	}); err != nil {
		log.Fatalf("[API-MAIN]: %v", err)
	}
}
