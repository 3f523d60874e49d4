package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Reflector/internal/adapters/signal"
	"github.com/dkeye/Reflector/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *signal.SignalWSController) *gin.Engine {
	gin.SetMode(cfg.Mode)

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	iceServers, err := cfg.ICEServers()
	if err != nil {
		// Load validates this already; an error here means a hand-built config.
		log.Error().Err(err).Str("module", "adapters.http").Msg("ice servers, advertising none")
		iceServers = nil
	}

	signalHandler := func(c *gin.Context) {
		ctl.HandleSignal(ctx, c)
	}
	// Browsers connect to the bare host; the api path is kept for proxies
	// that route by prefix.
	r.GET("/", signalHandler)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":          true,
			"connections": ctl.Active(),
			"registered":  ctl.Orch.Registry.Len(),
		})
	})

	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(ctl.Orch.Metrics.Handler()))
	}

	api := r.Group("/api")
	api.GET("/ws/signal", signalHandler)
	api.GET("/ice", iceHandler(iceServers))

	log.Info().Str("module", "adapters.http").Bool("metrics", cfg.MetricsEnabled).Int("ice_servers", len(iceServers)).Msg("router setup")
	return r
}

type iceResponse struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

func iceHandler(servers []webrtc.ICEServer) gin.HandlerFunc {
	if servers == nil {
		servers = []webrtc.ICEServer{}
	}
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, iceResponse{ICEServers: servers})
	}
}
