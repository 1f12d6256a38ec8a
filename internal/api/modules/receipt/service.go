package receipt

import (
	"log"

	"github.com/tabshare/tabshare/internal/parse"
	"github.com/tabshare/tabshare/internal/qr"
	"github.com/tabshare/tabshare/internal/session"
	"github.com/tabshare/tabshare/internal/store"
	"github.com/tabshare/tabshare/pkg/utils"
)

// Service bundles the collaborators the receipt controllers need
type Service struct {
	Store       store.Store
	Parser      parse.Parser
	Coordinator *session.Coordinator
	ViewerURL   string
	QRSize      int
}

var service *Service

// Init wires the receipt module. Must be called before the routes serve
// traffic.
func Init(cfg *utils.Config, st store.Store, parser parse.Parser, coordinator *session.Coordinator) {
	service = &Service{
		Store:       st,
		Parser:      parser,
		Coordinator: coordinator,
		ViewerURL:   cfg.GetWithDefault("VIEWER_URL", "http://localhost:5173/session"),
		QRSize:      cfg.GetIntWithDefault("QR_CODE_SIZE", qr.DefaultSize),
	}
}

// GetService returns the module's service instance
func GetService() *Service {
	if service == nil {
		log.Fatal("[RECEIPT]: module used before Init")
	}
	return service
}
