package api

import (
	"net/http"
	"strconv"
	"time"

	"reloop-service/internal/models"
	"reloop-service/internal/service"
	"reloop-service/internal/util"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// identityMiddleware parses the trusted identity headers supplied by the
// auth collaborator in front of this service. The core trusts them without
// revalidation.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing or invalid identity",
			})
			return
		}

		role := c.GetHeader("X-User-Role")
		switch role {
		case service.RoleUser, service.RoleSeller, service.RoleAdmin:
		default:
			role = service.RoleUser
		}

		lat, _ := strconv.ParseFloat(c.GetHeader("X-User-Lat"), 64)
		lng, _ := strconv.ParseFloat(c.GetHeader("X-User-Lng"), 64)

		c.Set(principalKey, service.Principal{
			ID:   userID,
			Role: role,
			Home: models.Coordinate{Lat: lat, Lng: lng},
		})
		c.Next()
	}
}

// authorize restricts a route to the given roles
func authorize(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := principalFrom(c)
		for _, role := range roles {
			if p.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "Insufficient role",
		})
	}
}

func principalFrom(c *gin.Context) service.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(service.Principal); ok {
			return p
		}
	}
	return service.Principal{}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
