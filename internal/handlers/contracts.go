package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"avara-ussd/internal/config"
)

// ContractsHandler serves the chain configuration clients need to talk to the
// deployed contracts.
type ContractsHandler struct {
	chain config.ChainConfig
}

// NewContractsHandler creates a new contracts configuration handler
func NewContractsHandler(chain config.ChainConfig) *ContractsHandler {
	return &ContractsHandler{chain: chain}
}

// Config returns the chain id plus contract and signer addresses
func (h *ContractsHandler) Config(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"chainId":           h.chain.ChainID,
			"avaraCore":         nullableString(h.chain.AvaraCoreAddress),
			"ticketNFT":         nullableString(h.chain.TicketNFTAddress),
			"poapNFT":           nullableString(h.chain.POAPNFTAddress),
			"mantleSigner":      nullableString(h.chain.SignerAddress),
			"ticketDeployBlock": nullableInt64(h.chain.TicketDeployBlock),
		},
	})
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt64(n int64) interface{} {
	if n == 0 {
		return nil
	}
	return n
}
