package api

import (
	"github.com/elgs/gostrgen"
	"github.com/gin-gonic/gin"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	requestIDSize   = 12
)

// requestID tags every request with the id from the client or a new one
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = newRequestID()
		}

		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func newRequestID() string {
	id, err := gostrgen.RandGen(requestIDSize, gostrgen.Lower|gostrgen.Digit, "", "")
	if err != nil {
		return "unknown"
	}
	return id
}
