package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/netpong/backend/internal/match"
	"github.com/netpong/backend/internal/protocol"
)

// CreateMatch allocates a fresh match code. The caller shares the code
// with their opponent and both connect to the websocket endpoint.
func CreateMatch(matches *match.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		m := matches.Create()
		c.JSON(http.StatusCreated, gin.H{
			"code": m.Code(),
		})
	}
}

// GetMatchStatus reports whether a code is live and how many seats are
// taken, so the lobby can show "waiting for opponent" before upgrading.
func GetMatchStatus(matches *match.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := strings.ToUpper(c.Param("code"))
		if len(code) != protocol.CodeLength {
			c.JSON(http.StatusBadRequest, gin.H{"error": "match code must be 5 characters"})
			return
		}

		m, ok := matches.Get(code)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"code":    m.Code(),
			"players": m.NumPlayers(),
		})
	}
}
