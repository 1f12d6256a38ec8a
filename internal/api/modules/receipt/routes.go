package receipt

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the routes for the receipt module
func RegisterRoutes(g *gin.RouterGroup) {
	group := g.Group("/receipts")

	group.POST("", parseReceipt)                // Parse a receipt image into a new session
	group.GET("/:id", getReceipt)               // Get a session's receipt and claim state
	group.POST("/:id/initiator", setInitiator)  // Set the owner's payout handles
	group.POST("/:id/tip", setTip)              // Override the tip amount
	group.GET("/:id/qr", getQRCode)             // Get the join link and QR code
	group.POST("/:id/items/status", bulkStatus) // Apply a bulk item status update
}
