package main

import (
	"context"
	"log"
	"time"

	"github.com/zcyan2013/jupyterlab-extension/config"
	httpapi "github.com/zcyan2013/jupyterlab-extension/internal/api/http"
	"github.com/zcyan2013/jupyterlab-extension/internal/bootstrap"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/repository"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/service"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/utils"
	"github.com/zcyan2013/jupyterlab-extension/internal/logging"
)

const serviceName = "jlab-ext-example"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.SetLevel(cfg.App.LogLevel)
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	rdb, err := bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{URL: cfg.Cache.RedisURL})
	if err != nil {
		log.Printf("Warning: sniff cache disabled: %v", err)
	}

	var (
		sniffCache service.SniffCache
		pinger     httpapi.Pinger
	)
	if rdb != nil {
		defer rdb.Close()
		c := repository.NewSniffCache(rdb, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
		sniffCache, pinger = c, c
	}

	dot := utils.NewGraphviz(cfg.Convert.DotBin)
	if !dot.Available() {
		log.Printf("Warning: graphviz %q not found, dot conversions will fail", cfg.Convert.DotBin)
	}

	svc := service.NewService(service.Options{
		ServerRoot: cfg.Convert.ServerRoot,
		Renderer:   dot,
		Cache:      sniffCache,
	})

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: serviceName,
		Version:     cfg.App.Version,
		BaseURL:     cfg.Server.BaseURL,
		URLPath:     cfg.Server.URLPath,
		StaticDir:   cfg.Server.StaticDir,
		Token:       cfg.Server.Token,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit:   cfg.Convert.RateLimit,
		RateBurst:   cfg.Convert.RateBurst,
		Converter:   svc,
		Dot:         dot,
		Cache:       pinger,
	})

	log.Printf("listening on :%s%s", cfg.Server.Port, bootstrap.ExtensionPath(cfg.Server.BaseURL, cfg.Server.URLPath))
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal(err)
	}
}
