package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// RequestObserver records served requests
type RequestObserver interface {
	Observe(method, route, status string)
}

// Metrics reports every request by its route pattern
func Metrics(observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		observer.Observe(c.Request.Method, route, strconv.Itoa(c.Writer.Status()))
	}
}
