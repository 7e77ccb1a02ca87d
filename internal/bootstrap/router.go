package bootstrap

import (
	"path"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	httpapi "github.com/zcyan2013/jupyterlab-extension/internal/api/http"
	convhttp "github.com/zcyan2013/jupyterlab-extension/internal/api/http/convert"
	"github.com/zcyan2013/jupyterlab-extension/internal/api/http/middleware"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/service"
)

type RouterDeps struct {
	ServiceName string
	Version     string

	BaseURL     string
	URLPath     string
	StaticDir   string
	Token       string
	CORSOrigins []string
	RateLimit   float64
	RateBurst   int

	Converter service.Handler
	Dot       httpapi.DotProbe
	Cache     httpapi.Pinger
}

// ExtensionPath joins base_url and url_path the way the notebook server does.
func ExtensionPath(baseURL, urlPath string) string {
	return path.Join("/", baseURL, urlPath)
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.RequestIDMiddleware())

	if len(dep.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     dep.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id", "X-XSRFToken"},
			ExposeHeaders:    []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Dot, dep.Cache)
	healthHandler.RegisterRoutes(r)

	ext := r.Group(ExtensionPath(dep.BaseURL, dep.URLPath))

	convertHandler := convhttp.NewHandler(dep.Converter)
	convertHandler.Register(ext,
		middleware.TokenAuthMiddleware(dep.Token),
		middleware.RateLimitMiddleware(dep.RateLimit, dep.RateBurst),
	)

	if dep.StaticDir != "" {
		convhttp.RegisterStatic(ext, dep.StaticDir)
	}

	return r
}
