package receipt

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tabshare/tabshare/internal/qr"
	"github.com/tabshare/tabshare/internal/session"
	"github.com/tabshare/tabshare/internal/store"
	"github.com/tabshare/tabshare/pkg/sdk"
)

// parseReceipt handles POST requests to parse a receipt image and store the
// result as a new session
func parseReceipt(c *gin.Context) {
	var req sdk.ParseReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	svc := GetService()
	receipt, err := svc.Parser.Parse(c.Request.Context(), req.Image)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadGateway, "Failed to parse receipt", err).AsGinResponse())
		return
	}

	sessionID, err := svc.Store.CreateSession(c.Request.Context(), receipt.ToSession())
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to store session", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Receipt parsed successfully", sdk.ParseReceiptResponse{
		SessionID: sessionID.String(),
	}).AsGinResponse())
}

// getReceipt handles GET requests for a session's receipt and claim state
func getReceipt(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	svc := GetService()
	sess, err := svc.Store.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Session not found", err).AsGinResponse())
			return
		}
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to get session", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Session retrieved successfully", toReceiptResponse(sess)).AsGinResponse())
}

// setInitiator handles POST requests to set the owner's payout handles
func setInitiator(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	var req sdk.SetInitiatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	svc := GetService()
	err := svc.Store.SetInitiator(c.Request.Context(), sessionID, store.Initiator{
		CashTag:     req.CashTag,
		VenmoHandle: req.VenmoHandle,
		HumanName:   req.HumanName,
	})
	if err != nil {
		respondStoreError(c, err, "Failed to set initiator")
		return
	}

	c.JSON(sdk.NewSuccessResponse("Initiator set successfully", req).AsGinResponse())
}

// setTip handles POST requests to override the tip amount manually
func setTip(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	var req sdk.SetTipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	svc := GetService()
	if err := svc.Store.SetTip(c.Request.Context(), sessionID, req.Tip); err != nil {
		respondStoreError(c, err, "Failed to set tip")
		return
	}

	c.JSON(sdk.NewSuccessResponse("Tip set successfully", req).AsGinResponse())
}

// getQRCode handles GET requests for a session's join link and QR code
func getQRCode(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	svc := GetService()
	if _, err := svc.Store.GetSession(c.Request.Context(), sessionID); err != nil {
		respondStoreError(c, err, "Failed to get session")
		return
	}

	url := fmt.Sprintf("%s/%s", svc.ViewerURL, sessionID)
	code, err := qr.DataURL(url, svc.QRSize)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to generate QR code", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("QR code generated successfully", sdk.QRCodeResponse{
		URL:    url,
		QRCode: code,
	}).AsGinResponse())
}

// bulkStatus handles POST requests that apply a partial status update to a
// batch of items atomically
func bulkStatus(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	var req sdk.BulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	status := store.ItemStatus{
		IsChecked: req.Status.IsChecked,
		CheckedBy: req.Status.CheckedBy,
		IsPaid:    req.Status.IsPaid,
		PaidBy:    req.Status.PaidBy,
	}

	svc := GetService()
	if err := svc.Coordinator.SetBulkStatus(c.Request.Context(), sessionID, req.ItemIDs, status); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Session or item not found", err).AsGinResponse())
			return
		}
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to update items", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Items updated successfully", req).AsGinResponse())
}

// parseSessionID pulls the session uuid out of the path, rejecting malformed
// ids before any store round trip
func parseSessionID(c *gin.Context) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Invalid session id", err).AsGinResponse())
		return uuid.Nil, false
	}
	return sessionID, true
}

// respondStoreError maps store failures onto HTTP responses
func respondStoreError(c *gin.Context, err error, message string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Session not found", err).AsGinResponse())
		return
	}
	c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, message, err).AsGinResponse())
}

// toReceiptResponse converts a stored session into the receipt API view
func toReceiptResponse(sess *store.Session) sdk.ReceiptResponse {
	resp := sdk.ReceiptResponse{
		Merchant: sdk.Merchant{
			Name:    sess.MerchantName,
			Type:    sess.MerchantType,
			Address: sess.MerchantAddress,
		},
		Transaction: sdk.Transaction{
			Items: sess.Subtotal,
			Tip:   sess.Tip,
			Tax:   sess.Tax,
			Total: sess.Total,
		},
		Initiator: sdk.Initiator{
			CashTag:     sess.InitiatorCashTag,
			VenmoHandle: sess.InitiatorVenmoHandle,
			HumanName:   sess.InitiatorName,
		},
	}

	for i := range sess.Items {
		item := &sess.Items[i]
		resp.Items = append(resp.Items, sdk.ReceiptItem{
			ID:          item.ItemID,
			Description: item.Description,
			Quantity:    item.Quantity,
			Price:       item.Price,
			IsChecked:   item.IsChecked,
			CheckedBy:   item.CheckedBy(),
			IsPaid:      item.IsPaid,
			PaidBy:      item.PaidBy,
		})
	}

	return resp
}
