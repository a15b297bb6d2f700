package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"avara-ussd/internal/services"
)

// MintProofHandler exposes mint proof generation to trusted callers (the web
// frontend's backend and the purchase flow itself).
type MintProofHandler struct {
	proofs services.MintProofServiceInterface
}

// NewMintProofHandler creates a new mint proof handler
func NewMintProofHandler(proofs services.MintProofServiceInterface) *MintProofHandler {
	return &MintProofHandler{proofs: proofs}
}

type mintProofRequest struct {
	To      string `json:"to"`
	EventID *int   `json:"eventId"`
}

// Create generates a signed mint authorization for a recipient and event
func (h *MintProofHandler) Create(c *gin.Context) {
	var req mintProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	if req.To == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing required field: to"})
		return
	}
	if !common.IsHexAddress(req.To) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid recipient address"})
		return
	}
	if req.EventID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing required field: eventId"})
		return
	}

	proof, err := h.proofs.CreateProof(req.To, *req.EventID)
	if err != nil {
		if errors.Is(err, services.ErrSignerNotConfigured) {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Signing key not configured on server"})
			return
		}
		log.Printf("Failed to create mint proof: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create mint proof"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": proof})
}
