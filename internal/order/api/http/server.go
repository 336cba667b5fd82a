package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"canteen-backend/internal/config"
	"canteen-backend/internal/notify"
	"canteen-backend/internal/notify/hub"
	"canteen-backend/internal/notify/push"
	"canteen-backend/internal/order/adapter/broker"
	"canteen-backend/internal/order/adapter/db"
	"canteen-backend/internal/order/api/http/handle"
	"canteen-backend/internal/order/app/services"
	"canteen-backend/internal/users"
	"canteen-backend/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Server owns the HTTP surface and the lifetime of its collaborators: the
// database pool, the websocket hub and the optional RabbitMQ connection.
type Server struct {
	ctx    context.Context
	cfg    *config.Config
	mylog  *logger.Logger
	engine *gin.Engine
	srv    *http.Server
	db     *db.DB
	mb     *broker.Broker
	hub    *hub.Hub
}

func NewServer(ctx context.Context, cfg *config.Config, mylog *logger.Logger) *Server {
	return &Server{
		ctx:   ctx,
		cfg:   cfg,
		mylog: mylog,
	}
}

// Run connects the collaborators, wires the routes and serves until the
// context is cancelled or the listener fails.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_start")

	database, err := db.Start(s.ctx, s.cfg.Database)
	if err != nil {
		mylog.Error("Failed to connect to database", err)
		return err
	}
	s.db = database
	mylog.Info("Database connected")

	if s.cfg.RabbitMQ != nil {
		mb, err := broker.Connect(*s.cfg.RabbitMQ, s.mylog)
		if err != nil {
			mylog.Error("Failed to connect to message broker", err)
			return err
		}
		s.mb = mb
		mylog.Info("Message broker connected")
	}

	s.configure()

	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler: s.engine,
	}

	mylog.Info("Server is running", "port", s.cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Stop shuts the listener down gracefully and closes the collaborators.
func (s *Server) Stop(ctx context.Context) error {
	s.mylog.Action("graceful_shutdown").Info("Shutting down HTTP server")

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}
	if s.mb != nil {
		if err := s.mb.Close(); err != nil {
			s.mylog.Action("mb_close_failed").Error("Failed to close message broker", err)
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	s.mylog.Action("graceful_shutdown").Info("Server shut down")
	return nil
}

func (s *Server) configure() {
	orderRepo := db.NewOrderRepo(s.db)
	directory := users.NewDirectory(s.db)
	s.hub = hub.New(s.mylog)

	var pushClient *push.Client
	sinks := []notify.Sink{&notify.HubSink{Hub: s.hub}}
	if s.cfg.Push != nil && s.cfg.Push.Endpoint != "" {
		pushClient = push.NewClient(s.cfg.Push.Endpoint, s.cfg.Push.ServerKey, s.mylog)
		sinks = append(sinks, &notify.PushSink{Client: pushClient, Tokens: directory})
	}
	if s.mb != nil {
		sinks = append(sinks, s.mb)
	}
	dispatcher := notify.NewDispatcher(s.mylog, sinks...)

	orderService := services.NewOrderService(orderRepo, directory, dispatcher, s.mylog)
	orderHandler := handle.NewOrderHandler(orderService, s.mylog)
	userHandler := handle.NewUserHandler(directory, pushClient, s.mylog)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(CORS(s.cfg.Server.AllowedOrigins))

	engine.GET("/healthz", func(c *gin.Context) {
		if err := s.db.IsAlive(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/ws", gin.WrapH(s.hub))

	api := engine.Group("/api")
	RegisterRoutes(api, orderHandler, userHandler, s.cfg.Server.JWTSecret)

	s.engine = engine
}

// RegisterRoutes attaches the API routes to the group. Staff mutations are
// gated by the JWT middleware when a secret is configured.
func RegisterRoutes(api *gin.RouterGroup, orderHandler *handle.OrderHandler, userHandler *handle.UserHandler, jwtSecret string) {
	api.POST("/orders", orderHandler.Create)
	api.GET("/orders/user/:email", orderHandler.ListByEmail)
	api.PUT("/orders/:id/item/feedback", orderHandler.ItemFeedback)
	api.POST("/users/device-token", userHandler.RegisterDeviceToken)

	staff := api.Group("")
	if jwtSecret != "" {
		staff.Use(RequireAuth(jwtSecret))
	}
	staff.GET("/orders", orderHandler.ListAdmin)
	staff.GET("/orders/:id", orderHandler.Get)
	staff.PUT("/orders/:id/accept", orderHandler.Accept)
	staff.PUT("/orders/:id/ready", orderHandler.Ready)
	staff.PUT("/orders/:id/collected", orderHandler.Collected)
	staff.POST("/orders/:id/reject", orderHandler.Reject)
	staff.DELETE("/orders/:id", orderHandler.Delete)
	staff.POST("/notify-user", userHandler.NotifyUser)
}
