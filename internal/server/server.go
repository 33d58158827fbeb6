package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/cardlink/apiserver/config"
	"github.com/cardlink/apiserver/internal/auth"
	"github.com/cardlink/apiserver/internal/db"
	"github.com/cardlink/apiserver/internal/handlers"
	"github.com/cardlink/apiserver/internal/logger"
	"github.com/cardlink/apiserver/internal/mq"
	"github.com/cardlink/apiserver/internal/services"
	"github.com/cardlink/apiserver/internal/storage"
	"github.com/cardlink/apiserver/internal/store"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and its external connections.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
	log        *zap.SugaredLogger
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log := logger.New()

	jwtSecret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	cardRepo := store.NewCardRepository(dbConn)

	hasher := auth.NewBcryptHasher()
	tokens := auth.NewTokenCodec(jwtSecret)
	authService := services.NewAuthService(userRepo, hasher, tokens, cfg.Auth.TokenTTL)

	eventBus, err := newEventBus(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	var cardEvents *services.CardEvents
	if eventBus != nil {
		cardEvents = services.NewCardEvents(eventBus, cfg.MQ.Topic, log)
		log.Infow("card event publishing enabled", "backend", cfg.MQ.Backend, "topic", cfg.MQ.Topic)
	}

	cardService := services.NewCardService(cardRepo, cfg.PublicBaseURL, cfg.QR, cardEvents)

	imageStore, err := newImageStore(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		if eventBus != nil {
			_ = eventBus.Close()
		}
		return nil, err
	}

	authHandler := handlers.NewAuthHandler(authService)
	authMiddleware := authHandler.RequireAuth

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService)
	})
	router.Route("/cards", func(r chi.Router) {
		handlers.CardRouter(r, cardService, authMiddleware)
	})
	if imageStore != nil {
		router.Route("/uploads", func(r chi.Router) {
			handlers.UploadRouter(r, imageStore, authMiddleware)
		})
		log.Infow("image uploads enabled", "backend", cfg.Storage.Backend, "bucket", imageStore.Bucket())
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		mq:         eventBus,
		log:        log,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.Infow("server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown closes external connections and stops the HTTP server.
func (s *Server) Shutdown() error {
	if s.mq != nil {
		if err := s.mq.Close(); err != nil {
			s.log.Warnw("close mq", "error", err)
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

func newEventBus(ctx context.Context, cfg config.MQConfig) (*mq.MQ, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		backend, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return mq.New(backend), nil
	case "pubsub":
		backend, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return mq.New(backend), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

func newImageStore(ctx context.Context, cfg config.StorageConfig) (*storage.Storage, error) {
	var backend storage.ObjectStorage
	switch cfg.Backend {
	case "":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	st := storage.NewStorage(backend)
	if err := st.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return st, nil
}
