package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safesignal/sosclient/internal/clock"
	"github.com/safesignal/sosclient/internal/config"
	"github.com/safesignal/sosclient/internal/dispatch"
	"github.com/safesignal/sosclient/internal/handlers"
	"github.com/safesignal/sosclient/internal/location"
	"github.com/safesignal/sosclient/internal/middleware"
	"github.com/safesignal/sosclient/internal/models"
	"github.com/safesignal/sosclient/internal/reconciler"
	"github.com/safesignal/sosclient/internal/session"
	"github.com/safesignal/sosclient/internal/surface"
	"github.com/safesignal/sosclient/pkg/api"
	"github.com/safesignal/sosclient/pkg/cache"
	"github.com/safesignal/sosclient/pkg/credentials"
	"github.com/safesignal/sosclient/pkg/logger"
	"github.com/safesignal/sosclient/pkg/maps"
	"github.com/safesignal/sosclient/pkg/websocket"
	"github.com/safesignal/sosclient/routes"
)

const (
	homeSurface     = "home"
	contactsSurface = "contacts"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:   logger.LogLevel(cfg.App.LogLevel),
		Format:  cfg.App.LogFormat,
		Output:  cfg.App.LogOutput,
		AppName: cfg.App.Name,
		Version: cfg.App.Version,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis is only needed for the redis credentials backend
	var redisCache *cache.RedisCache
	store := credentials.Store(credentials.NewMemoryStore())
	if cfg.Credentials.Backend == config.CredentialsBackendRedis {
		redisCache, err = cache.NewRedisCache(cfg.Redis)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to connect to redis")
		}
		defer redisCache.Close()
		store = credentials.NewRedisStore(redisCache, cfg.Credentials.Key, cfg.Credentials.TTL)
	}

	clk := clock.Real()
	client := api.NewClient(cfg.API, appLogger)
	sessions := session.NewManager(store, client, clk, appLogger)
	controller := dispatch.NewController(client, sessions, appLogger)
	alerts := reconciler.New(client, sessions, appLogger)
	contacts := surface.NewContactDirectory(client, sessions, appLogger)

	device, shell, err := newLocationDevice(cfg.Location, clk)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to set up location source")
	}
	if closer, ok := device.(io.Closer); ok {
		defer closer.Close()
	}
	homeLocation := location.NewProvider(device, cfg.Location.Timeout, appLogger)

	// UI event push
	hub := websocket.NewHub(appLogger)
	if redisCache != nil && cfg.WebSocket.MirrorChannel != "" {
		hub.WithMirror(redisCache, cfg.WebSocket.MirrorChannel)
	}
	go hub.Run(ctx)
	presenter := surface.NewHubPresenter(hub)

	surfaces := surface.NewRegistry(
		surface.New(homeSurface, surface.KindGeneric, surface.Deps{
			Dispatcher: controller,
			Location:   homeLocation,
			Reconciler: alerts,
			Contacts:   contacts,
			Presenter:  presenter,
			Clock:      clk,
			Threshold:  cfg.Gesture.HoldThreshold,
			Logger:     appLogger,
		}),
		surface.New(contactsSurface, surface.KindContact, surface.Deps{
			Dispatcher: controller,
			Reconciler: alerts,
			Contacts:   contacts,
			Presenter:  presenter,
			Clock:      clk,
			Threshold:  cfg.Gesture.HoldThreshold,
			Logger:     appLogger,
		}),
	)
	defer surfaces.Close()

	alerts.OnChange(func(view reconciler.View) {
		hub.Publish(websocket.Event{
			Type: websocket.EventAlerts,
			Data: map[string]interface{}{"active": view.Active, "resolved": view.Resolved},
		})
	})

	sessions.OnSignOut(func(reason string) {
		surfaces.Reset()
		alerts.Clear()
		contacts.Clear()
		homeLocation.Reset()
		hub.Publish(websocket.Event{Type: websocket.EventSignedOut, Data: map[string]interface{}{"reason": reason}})
		for _, s := range surfaces.All() {
			presenter.Navigate(s.ID(), surface.RouteLogin, nil)
		}
	})

	geocoder := maps.Geocoder(maps.NoopGeocoder{})
	if cfg.Maps.GoogleMaps.APIKey != "" {
		provider, err := maps.NewGoogleMapsProvider(cfg.Maps.GoogleMaps.APIKey)
		if err != nil {
			appLogger.WithError(err).Warn("Failed to create Google Maps client, addresses disabled")
		} else {
			geocoder = provider
		}
	}

	// Initialize handlers
	h := routes.Handlers{
		Session:   handlers.NewSessionHandler(sessions),
		Surface:   handlers.NewSurfaceHandler(surfaces),
		Alert:     handlers.NewAlertHandler(alerts, geocoder),
		Contact:   handlers.NewContactHandler(client, sessions, contacts, appLogger),
		Location:  handlers.NewLocationHandler(shell, homeLocation),
		WebSocket: websocket.NewHandler(hub, cfg.WebSocket),
	}

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.WebSocket.AllowedOrigins))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))

	v1 := router.Group("/api/v1")
	routes.SetupRoutes(v1, sessions, h)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"version":   cfg.App.Version,
			"signedIn":  sessions.SignedIn(c.Request.Context()),
			"wsClients": hub.ClientCount(),
		})
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithField("addr", srv.Addr).Info("Starting bridge server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Graceful shutdown failed")
	}
}

// newLocationDevice picks the device for cfg.Source. The shell device is
// also returned on its own so the bridge can feed it.
func newLocationDevice(cfg *config.LocationConfig, clk clock.Clock) (location.Device, *location.ShellDevice, error) {
	switch cfg.Source {
	case config.LocationSourceShell:
		shell := location.NewShellDevice(clk, cfg.MaxFixAge)
		return shell, shell, nil
	case config.LocationSourceStatic:
		return location.NewStaticDevice(models.Coordinate{Latitude: cfg.StaticLat, Longitude: cfg.StaticLng}), nil, nil
	case config.LocationSourceGeoIP:
		device, err := location.NewGeoIPDevice(cfg.GeoIPDatabase, cfg.PublicIP)
		if err != nil {
			return nil, nil, err
		}
		return device, nil, nil
	default:
		return location.DisabledDevice{}, nil, nil
	}
}
