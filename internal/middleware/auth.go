package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/claimlab/annotation-backend/internal/logger"
	"github.com/claimlab/annotation-backend/internal/services"
	"github.com/claimlab/annotation-backend/internal/session"
)

const (
	tokenKey   = "session_token"
	sessionKey = "annotation_session"
)

type SessionMiddleware struct {
	log     *logger.Logger
	service *services.AnnotationService
}

func NewSessionMiddleware(log *logger.Logger, service *services.AnnotationService) *SessionMiddleware {
	return &SessionMiddleware{
		log:     log.With("middleware", "SessionMiddleware"),
		service: service,
	}
}

// RequireSession resolves the bearer token to a live session and hangs
// it on the request context for the handlers.
func (m *SessionMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		sess, err := m.service.Resolve(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(tokenKey, token)
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}

// GetSession returns the session placed by RequireSession, or nil.
func GetSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}

// GetToken returns the bearer token placed by RequireSession.
func GetToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}
