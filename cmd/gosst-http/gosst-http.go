package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sghctoma/sst/telemetry/internal/config"
	"github.com/sghctoma/sst/telemetry/internal/db"
	"github.com/sghctoma/sst/telemetry/internal/logging"
	"github.com/sghctoma/sst/telemetry/internal/metrics"
)

type RequestHandler struct {
	Store              *db.Store
	Log                *zap.SugaredLogger
	HighSpeedThreshold float64
	analyses           singleflight.Group
}

func contains(list []string, e string) bool {
	for _, s := range list {
		if s == e {
			return true
		}
	}
	return false
}

func (this *RequestHandler) TokenAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokens, err := this.Store.Tokens(c.Request.Context())
		if err != nil {
			this.Log.Errorw("could not load API tokens", "error", err)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := c.GetHeader("X-Token")
		if token == "" || !contains(tokens, token) {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func NewRouter(rh *RequestHandler, cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logging.GinLogger(rh.Log))
	router.SetTrustedProxies(nil)

	router.GET("/calibrationmethods", rh.GetCalibrationMethods)
	router.GET("/calibrationmethod/:id", rh.GetCalibrationMethod)
	router.PUT("/calibrationmethod", rh.TokenAuthMiddleware(), rh.PutCalibrationMethod)
	router.POST("/calibrationmethod/validate", rh.ValidateCalibrationMethod)
	router.DELETE("/calibrationmethod/:id", rh.TokenAuthMiddleware(), rh.DeleteCalibrationMethod)

	router.GET("/sessions", rh.GetSessions)
	router.GET("/session/:id", rh.GetSession)
	router.GET("/session/:id/analysis", rh.GetSessionAnalysis)
	router.GET("/sessiondata/:id", rh.GetSessionData)
	router.PUT("/session", rh.TokenAuthMiddleware(), rh.PutSession)
	router.DELETE("/session/:id", rh.TokenAuthMiddleware(), rh.DeleteSession)
	router.PATCH("/session/:id", rh.TokenAuthMiddleware(), rh.PatchSession)

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}
	return router
}

func main() {
	var opts struct {
		ConfigFile   string `short:"c" long:"config" description:"YAML configuration file"`
		DatabaseFile string `short:"d" long:"database" description:"SQLite3 database file path"`
		Host         string `short:"h" long:"host" description:"Host to bind on"`
		Port         int    `short:"p" long:"port" description:"Port to bind on"`
		Debug        bool   `long:"debug" description:"Verbose logging"`
	}
	_, err := flags.Parse(&opts)
	if err != nil {
		return
	}

	cfg := config.Default()
	if opts.ConfigFile != "" {
		if cfg, err = config.Load(opts.ConfigFile); err != nil {
			panic(err)
		}
	}
	if opts.DatabaseFile != "" {
		cfg.Database.Path = opts.DatabaseFile
	}
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Server.Port = opts.Port
	}
	cfg.Debug = cfg.Debug || opts.Debug

	log, err := logging.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}

	store, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalw("could not open database", "path", cfg.Database.Path, "error", err)
	}
	defer store.Close()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Register()
	rh := &RequestHandler{Store: store, Log: log, HighSpeedThreshold: cfg.Analysis.HighSpeedThreshold}
	router := NewRouter(rh, cfg)

	log.Infow("listening", "address", cfg.Address())
	if err := router.Run(cfg.Address()); err != nil {
		log.Errorw("server stopped", "error", err)
	}
}
