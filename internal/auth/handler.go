package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Middleware *Middleware
}

func NewHandler(m *Middleware) *Handler {
	return &Handler{Middleware: m}
}

// Ping endpoint
func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "auth service alive!"})
}

// CSRFToken returns the token EnsureCSRFToken placed in the cookie, for
// clients that send it back in the X-CSRF-Token header
func (h *Handler) CSRFToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"csrf_token": c.GetString(ContextCSRFToken)})
}

// Me reports who the bearer token belongs to and what it may do
func (h *Handler) Me(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	capabilities := claims.Capabilities
	if capabilities == nil {
		capabilities = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"user": claims.Subject, "capabilities": capabilities})
}
