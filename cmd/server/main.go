package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/hazmap/hazmap/internal/config"
	"github.com/hazmap/hazmap/internal/locate"
	"github.com/hazmap/hazmap/internal/logger"
	"github.com/hazmap/hazmap/internal/server"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE"    description:"Path to configuration file" default:"config.yaml"`
	Addr       string `short:"a" long:"addr"   env:"LISTEN_ADDRESS" description:"Address to listen on"       default:"0.0.0.0"`
	Port       int    `short:"p" long:"port"   env:"LISTEN_PORT"    description:"Port to listen on"          default:"8080"`
	Demo       bool   `short:"d" long:"demo"   env:"DEMO_MODE"      description:"Track a simulated position instead of the browser sensor"`
}

func main() {
	_ = godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	hazards, err := cfg.HazardSet()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid hazard list in configuration")
	}

	srvCtx := server.NewServerContext(cfg, hazards)

	if opts.Demo {
		src := locate.NewSimSource(cfg.DefaultLocation.Lat, cfg.DefaultLocation.Lon, 2*time.Second)
		if err := srvCtx.StartTracking(src); err != nil {
			log.Fatal().Err(err).Msg("Failed to start demo position tracking")
		}
		defer srvCtx.Shutdown()

		log.Info().Msg("Demo mode: tracking a simulated position")
	}

	// Routes
	mux := http.NewServeMux()
	mux.HandleFunc("/api/config", srvCtx.HandleClientConfig)
	mux.HandleFunc("/api/view", srvCtx.HandleView)
	mux.HandleFunc("/api/route", srvCtx.HandleRoute)
	mux.HandleFunc("/api/position", srvCtx.HandlePosition)
	mux.HandleFunc("/api/heatmap.webp", srvCtx.HandleHeatmap)
	mux.HandleFunc("/favicon.svg", srvCtx.HandleFavicon)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", srvCtx.HandleIndex)

	handler := server.RequestLogger(mux)

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	log.Info().
		Str("addr", listenAddr).
		Int("hazards", hazards.Len()).
		Bool("demo", opts.Demo).
		Msg("Web server started")

	if err := http.ListenAndServe(listenAddr, handler); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
