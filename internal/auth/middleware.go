package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Capabilities carried in the bearer token
const (
	CapabilityManageWooCommerce = "manage_woocommerce"
	CapabilityUpdatePlugins     = "update_plugins"
)

// Context keys set by the middleware
const (
	ContextUserID       = "user_id"
	ContextCapabilities = "capabilities"
	ContextCSRFToken    = "csrf_token"
)

// CSRFHeader carries the token for non-form requests
const CSRFHeader = "X-CSRF-Token"

// csrfFormFields are the form fields accepted for the token
var csrfFormFields = []string{"nonce", "csrf_token"}

// Claims is the bearer token payload
type Claims struct {
	Capabilities []string `json:"caps"`
	jwt.RegisteredClaims
}

// Can reports whether the claims grant capability
func (c *Claims) Can(capability string) bool {
	for _, have := range c.Capabilities {
		if have == capability {
			return true
		}
	}
	return false
}

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Middleware authorizes requests by token capability and guards unsafe
// methods with a double-submit CSRF cookie
type Middleware struct {
	secret        []byte
	cookieName    string
	secureCookies bool
	logger        *zap.Logger
}

// NewMiddleware creates the auth middleware
func NewMiddleware(secret, cookieName string, secureCookies bool, logger *zap.Logger) *Middleware {
	if cookieName == "" {
		cookieName = "cor_csrf"
	}
	return &Middleware{
		secret:        []byte(secret),
		cookieName:    cookieName,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// IssueToken signs a token for subject granting capabilities
func (m *Middleware) IssueToken(subject string, capabilities []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Capabilities: capabilities,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a bearer token and returns its claims
func (m *Middleware) ParseToken(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate requires a valid bearer token and stores its claims
func (m *Middleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := m.authenticate(c); !ok {
			return
		}
		c.Next()
	}
}

// RequireCapability authenticates the request and rejects it before any
// handler runs unless the token grants capability
func (m *Middleware) RequireCapability(capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := m.authenticate(c)
		if !ok {
			return
		}

		if !claims.Can(capability) {
			m.logger.Warn("Access denied",
				zap.String("user_id", claims.Subject),
				zap.String("capability", capability),
				zap.String("path", c.FullPath()),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		c.Next()
	}
}

// authenticate resolves the request's claims, aborting with 401 when the
// bearer token is missing or invalid
func (m *Middleware) authenticate(c *gin.Context) (*Claims, bool) {
	if claims, ok := claimsFrom(c); ok {
		return claims, true
	}

	tokenStr := ""
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		tokenStr = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}

	claims, err := m.ParseToken(tokenStr)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: provide a valid bearer token"})
		return nil, false
	}

	c.Set(ContextUserID, claims.Subject)
	c.Set(ContextCapabilities, claims)
	return claims, true
}

// RequireCSRF checks the double-submit token on unsafe methods
func (m *Middleware) RequireCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		cookieToken := m.readCookie(c)
		if cookieToken == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing CSRF token cookie"})
			return
		}

		submitted := strings.TrimSpace(c.GetHeader(CSRFHeader))
		for _, field := range csrfFormFields {
			if submitted != "" {
				break
			}
			submitted = strings.TrimSpace(c.PostForm(field))
		}

		if subtle.ConstantTimeCompare([]byte(cookieToken), []byte(submitted)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid CSRF token"})
			return
		}
		c.Next()
	}
}

// EnsureCSRFToken issues the CSRF cookie when the client has none
func (m *Middleware) EnsureCSRFToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.readCookie(c)
		if token == "" {
			token = NewCSRFToken()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     m.cookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				Secure:   m.secureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Set(ContextCSRFToken, token)
		c.Next()
	}
}

func (m *Middleware) readCookie(c *gin.Context) string {
	value, err := c.Cookie(m.cookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

// NewCSRFToken returns a random token
func NewCSRFToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func claimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(ContextCapabilities)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok && claims != nil
}
