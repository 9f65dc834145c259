package auth

import "github.com/gin-gonic/gin"

// RegisterRoutes registers Auth routes
func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	m := handler.Middleware

	authGroup := r.Group("/auth")
	{
		authGroup.GET("/ping", handler.Ping)
		authGroup.GET("/csrf", m.Authenticate(), m.EnsureCSRFToken(), handler.CSRFToken)
		authGroup.GET("/me", m.Authenticate(), handler.Me)
	}
}
