package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports liveness. It does not touch the database or upstreams.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
