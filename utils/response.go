package utils

import (
	"github.com/gin-gonic/gin"
)

// Envelope is the body of every JSON response. Exactly one of Data and Error is set.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSONResponse writes a success envelope
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Envelope{Status: status, Message: message, Data: data})
}

// JSONError writes an error envelope and aborts the rest of the handler chain.
func JSONError(c *gin.Context, status int, err error, message string) {
	c.AbortWithStatusJSON(status, Envelope{Status: status, Message: message, Error: err.Error()})
}
