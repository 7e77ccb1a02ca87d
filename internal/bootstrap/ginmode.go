package bootstrap

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SetGinMode maps APP_ENV onto gin's modes. Other values leave gin's default.
func SetGinMode(env string) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}
}
