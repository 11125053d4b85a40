package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MmmDelicious/lovememory-sub002/config"
)

const tokenTTL = 24 * time.Hour

type LoginRequest struct {
	Name string `json:"name" binding:"required"`
}

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Login issues a guest session. Every login gets a fresh player id; the
// display name is whatever the client asked for.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	playerID := uuid.NewString()
	token, err := IssueToken(config.C.JWT.Secret, playerID, req.Name, tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"playerId": playerID,
		"name":     req.Name,
		"jwt":      token,
	})
}

// Middleware authenticates requests and stores the player identity in the
// gin context. Tokens arrive as a Bearer header, or as a token query
// parameter for websocket upgrades where headers are awkward.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		playerID, name, err := VerifyToken(config.C.JWT.Secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("playerID", playerID)
		c.Set("playerName", name)
		c.Next()
	}
}
