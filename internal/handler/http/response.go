// Package http holds the REST gateway: Gin handlers translating
// RoomCoordinator/AuthService calls into the {success, data|error} envelope.
package http

import "github.com/gin-gonic/gin"

func Success(c *gin.Context, code int, data interface{}) {
	c.JSON(code, gin.H{"success": true, "data": data})
}

func Failure(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"success": false, "error": message})
}
