package server

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/pitwall/strategy-engine-go/log"
	"github.com/pitwall/strategy-engine-go/pkg/api"
	"github.com/pitwall/strategy-engine-go/pkg/config"
	"github.com/pitwall/strategy-engine-go/pkg/ingest"
	"github.com/pitwall/strategy-engine-go/pkg/processing"
	"github.com/pitwall/strategy-engine-go/pkg/processing/history"
	"github.com/pitwall/strategy-engine-go/pkg/utils"
)

//nolint:funlen // by design
func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "starts the strategy engine server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer()
		},
	}
	cmd.Flags().StringVarP(&config.HTTPServerAddr,
		"http-server-addr",
		"a",
		"localhost:8080",
		"HTTP API listen address")
	cmd.Flags().StringVar(&config.NatsURL,
		"nats-url",
		"",
		"URL of the NATS server used for telemetry ingest (empty disables NATS)")
	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"json",
		"controls the log output format")
	cmd.Flags().StringVar(&config.LogConfig,
		"log-config",
		"",
		"configuration file for logger levels")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	cmd.Flags().StringVar(&config.StaleDuration,
		"stale-duration",
		"1m",
		"session is removed if no data was received for this duration")
	cmd.Flags().IntVar(&config.BufferCapacity,
		"buffer-capacity",
		history.DefaultCapacity,
		"max samples kept per session history buffer")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

//nolint:funlen,cyclop // by design
func startServer() error {
	var telemetry *config.Telemetry
	log.ResetDefault(setupLogger())

	log.Debug("Config:",
		log.String("httpServerAddr", config.HTTPServerAddr),
		log.String("natsUrl", config.NatsURL),
		log.String("staleDuration", config.StaleDuration),
		log.Int("bufferCapacity", config.BufferCapacity),
	)

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // by design
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	waitForRequiredServices()

	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if telemetry, err = config.SetupTelemetry(context.Background()); err != nil {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	log.Info("Starting server")
	lookup := utils.NewSessionLookup(
		utils.WithStaleDuration(resolveStaleDuration()),
		utils.WithProcessorOptions(
			processing.WithBufferCapacity(config.BufferCapacity)))

	var natsIngest *ingest.NatsIngest
	if config.NatsURL != "" {
		conn, err := ingest.Connect(config.NatsURL, 30*time.Second)
		if err != nil {
			log.Error("server could not be started", log.ErrorField(err))
			return err
		}
		if natsIngest, err = ingest.NewNatsIngest(conn, lookup); err != nil {
			log.Error("server could not be started", log.ErrorField(err))
			return err
		}
		log.Info("NATS telemetry ingest active", log.String("url", config.NatsURL))
	}

	httpServer := setupHTTPServer(lookup)
	go func() {
		log.Info("Starting HTTP server", log.String("addr", config.HTTPServerAddr))
		if err := httpServer.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			log.Fatal("HTTP server stopped", log.ErrorField(err))
		}
	}()
	log.Info("Server started")
	setupGoRoutinesDump()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	v := <-sigChan
	log.Debug("Got signal ", log.Any("signal", v))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	//nolint:errcheck // by design
	httpServer.Shutdown(shutdownCtx)
	if natsIngest != nil {
		natsIngest.Close()
	}
	lookup.Close()
	if telemetry != nil {
		telemetry.Shutdown()
	}

	log.Info("Server terminated")
	return nil
}

func setupLogger() *log.Logger {
	if config.LogConfig != "" {
		if cfg, err := log.LoadConfig(config.LogConfig); err == nil {
			logger, fErr := log.NewWithFilters(
				os.Stderr,
				parseLogLevel(config.LogLevel, log.InfoLevel),
				cfg.Rules(),
				log.WithCaller(true),
				log.AddCallerSkip(1))
			if fErr == nil {
				return logger
			}
			fmt.Fprintf(os.Stderr, "could not apply log filters: %v\n", fErr)
		} else {
			fmt.Fprintf(os.Stderr, "could not read log config %s: %v\n",
				config.LogConfig, err)
		}
	}
	switch config.LogFormat {
	case "json":
		return log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		return log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
}

func setupHTTPServer(lookup *utils.SessionLookup) *http.Server {
	if config.LogFormat == "json" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.NewHandler(lookup).SetupRoutes(router)
	//nolint:gosec // by design
	return &http.Server{
		Addr:    config.HTTPServerAddr,
		Handler: newCORS().Handler(router),
	}
}

func resolveStaleDuration() time.Duration {
	staleDuration, err := time.ParseDuration(config.StaleDuration)
	if err != nil {
		staleDuration = 1 * time.Minute
	}
	log.Debug("init with stale duration", log.Duration("duration", staleDuration))
	return staleDuration
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}

func waitForRequiredServices() {
	if config.NatsURL == "" {
		return
	}
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	if natsAddr := utils.ExtractFromNatsURL(config.NatsURL); natsAddr != "" {
		if err = utils.WaitForTCP(natsAddr, timeout); err != nil {
			log.Fatal("required services not ready", log.ErrorField(err))
		}
	}
	log.Debug("Required services are available")
}

func newCORS() *cors.Cors {
	// permissive setup so browser based dashboards can use the API directly
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
		MaxAge:         int(2 * time.Hour / time.Second),
	})
}
