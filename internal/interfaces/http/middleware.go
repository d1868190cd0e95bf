package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"

	actorKey = "actor"
)

// accessLog logs one line per request
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"actor_id", c.GetHeader(headerActorID),
		)
	}
}

// authenticate reads the actor asserted by the upstream identity provider
func authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerActorID))
		role := strings.TrimSpace(c.GetHeader(headerActorRole))
		if id == "" || role == "" {
			abortWithError(c, http.StatusUnauthorized, codeUnauthenticated, "missing actor identity")
			return
		}

		c.Set(actorKey, entity.Actor{ID: id, Role: entity.Role(strings.ToUpper(role))})
		c.Next()
	}
}

// authorize checks the route against the access policy
func (s *Server) authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFrom(c)
		ok, err := s.access.Allowed(actor.Role, c.Request.URL.Path, c.Request.Method)
		if err != nil {
			s.logger.Error("Access check failed", "error", err, "role", actor.Role)
			abortWithError(c, http.StatusInternalServerError, codeInternal, "internal server error")
			return
		}
		if !ok {
			abortWithError(c, http.StatusForbidden, codeForbidden, "role may not call this endpoint")
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) entity.Actor {
	actor, _ := c.Get(actorKey)
	a, _ := actor.(entity.Actor)
	return a
}
