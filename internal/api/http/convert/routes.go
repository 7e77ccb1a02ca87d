package convert

import "github.com/gin-gonic/gin"

// Register mounts the conversion endpoint. mws run before the handler.
func (h *Handler) Register(rg *gin.RouterGroup, mws ...gin.HandlerFunc) {
	rg.POST("/convert", append(mws, h.Convert)...)
}

// RegisterStatic serves dir under /static.
func RegisterStatic(rg *gin.RouterGroup, dir string) {
	rg.Static("/static", dir)
}
