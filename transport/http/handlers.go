package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/swapgate/adapters/siwe"
	"github.com/layer-3/swapgate/core"
	"github.com/layer-3/swapgate/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

// LoginRequest carries the signed SIWE message. SiweMessage is either the
// structured object or the EIP-4361 text.
type LoginRequest struct {
	SiweMessage json.RawMessage `json:"siweMessage" binding:"required"`
	Signature   string          `json:"signature" binding:"required"`
}

// RefreshRequest carries the refresh token; the access token travels as bearer.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Nonce handles the nonce request
func (h *AuthHandlers) Nonce(c *gin.Context) {
	nonce, err := h.authService.IssueNonce(c.Request.Context(), requestLog(c), c.Query("requestId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"nonce": nonce})
}

// Login handles the login request
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	msg, err := decodeSiweMessage(req.SiweMessage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid siwe message"})
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), requestLog(c), msg, req.Signature)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	accessToken, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
		return
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), requestLog(c), accessToken, req.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Logout handles session logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	accessToken, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), requestLog(c), accessToken); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{})
}

// Me returns information about the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	// User address is set by the auth middleware
	address, exists := c.Get(userAddressKey)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": address,
	})
}

func decodeSiweMessage(raw json.RawMessage) (core.SiweMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return core.SiweMessage{}, fmt.Errorf("%w: empty", core.ErrInvalidMessage)
	}

	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return core.SiweMessage{}, err
		}
		return siwe.Parse(text)
	}

	var msg core.SiweMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return core.SiweMessage{}, err
	}
	return msg, nil
}
