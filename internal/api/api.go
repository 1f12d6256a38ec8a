package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tabshare/tabshare/internal/parse"
	"github.com/tabshare/tabshare/internal/realtime"
	"github.com/tabshare/tabshare/internal/session"
	"github.com/tabshare/tabshare/internal/store"
	"github.com/tabshare/tabshare/pkg/utils"

	health_module "github.com/tabshare/tabshare/internal/api/modules/health"
	receipt_module "github.com/tabshare/tabshare/internal/api/modules/receipt"
)

// Dependencies are the wired collaborators the API surfaces
type Dependencies struct {
	Store       store.Store
	Parser      parse.Parser
	Coordinator *session.Coordinator
	Realtime    *realtime.Server
}

// Start configures the gin engine and serves the REST and websocket routes.
// Blocks until the server exits.
func Start(cfg *utils.Config, deps Dependencies) error {
	// Initialized configuration settings
	port := cfg.GetWithDefault("API_PORT", "8080")

	// Add app level settings/routes
	engine := gin.Default()

	// Add trusted proxies
	engine.SetTrustedProxies(nil)

	// Add CORS using gin-contrib/cors (https://github.com/gin-contrib/cors for documentation)
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.GetWithDefault("CORS_ALLOWED_ORIGINS", "*"), ","),
		AllowMethods:     []string{"OPTIONS", "GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Base group '/api' for all API routes
	baseGroup := engine.Group("/api")

	// Adding custom modules
	health_module.RegisterRoutes(baseGroup)

	receipt_module.RegisterRoutes(baseGroup)
	receipt_module.Init(cfg, deps.Store, deps.Parser, deps.Coordinator)

	// Realtime session rooms share the same listener
	baseGroup.GET("/ws", deps.Realtime.HandleWebsocket)

	// Then after performing initial setup, start the server
	if err := engine.Run(":" + port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
