package httpapi

import (
	"github.com/gin-gonic/gin"
)

// Envelope is the response body shared by the API routes.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	OK      bool   `json:"ok"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{
		Status:  status,
		Message: message,
		Data:    data,
		OK:      status < 400,
	})
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{
		Status:  status,
		Message: message,
	})
}
