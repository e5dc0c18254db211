package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arjunm/goblog/internal/admin"
	"github.com/arjunm/goblog/internal/auth"
	"github.com/arjunm/goblog/internal/config"
	"github.com/arjunm/goblog/internal/middleware"
	"github.com/arjunm/goblog/internal/models"
	"github.com/arjunm/goblog/internal/posts"
	"github.com/arjunm/goblog/internal/store"
	"github.com/arjunm/goblog/internal/users"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := store.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	defer mongoClient.Disconnect(ctx)
	db := mongoClient.Database(cfg.MongoDB)
	userStore := store.NewUserStore(db)
	postStore := store.NewPostStore(db)
	if err := userStore.EnsureIndexes(ctx); err != nil {
		log.Fatalf("mongo indexes: %v", err)
	}

	// ── PostgreSQL (audit log) ───────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres connect: %v", err)
	}
	defer pgPool.Close()
	auditStore := store.NewAuditStore(pgPool)
	if err := auditStore.Migrate(ctx); err != nil {
		log.Fatalf("postgres migrate: %v", err)
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connect: %v", err)
	}
	defer rdb.Close()
	cache := store.NewCache(rdb)

	// ── MinIO ────────────────────────────────────────────────
	avatarStore, err := store.NewAvatarStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		log.Fatalf("minio connect: %v", err)
	}

	// ── Default admin ────────────────────────────────────────
	if err := seedAdmin(ctx, userStore); err != nil {
		log.Printf("admin seeding skipped: %v", err)
	}

	// ── Handlers ─────────────────────────────────────────────
	tokens := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.JWTTTL)
	authHandler := auth.NewHandler(userStore, tokens)
	userHandler := users.NewHandler(userStore, avatarStore)
	postHandler := posts.NewHandler(postStore)
	adminHandler := admin.NewHandler(userStore, postStore, auditStore, cache)

	authenticate := middleware.Authenticate(tokens, userStore)
	optionalAuth := middleware.OptionalAuthenticate(tokens, userStore)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.With(authenticate).Get("/me", authHandler.Me)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/{id}", userHandler.Get)
		r.Get("/{id}/avatar", userHandler.Avatar)
		r.With(authenticate).Put("/me", userHandler.UpdateMe)
		r.With(authenticate).Put("/me/avatar", userHandler.UploadAvatar)
	})

	r.Route("/api/posts", func(r chi.Router) {
		r.With(optionalAuth).Get("/", postHandler.List)
		r.With(optionalAuth).Get("/{id}", postHandler.Get)
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", postHandler.Create)
			r.Put("/{id}", postHandler.Update)
			r.Delete("/{id}", postHandler.Delete)
			r.Post("/{id}/like", postHandler.Like)
			r.Post("/{id}/comments", postHandler.Comment)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.RequireRole(models.RoleAdmin))
		r.Get("/dashboard", adminHandler.Dashboard)
		r.Get("/users", adminHandler.ListUsers)
		r.Put("/users/{id}/role", adminHandler.UpdateUserRole)
		r.Put("/users/{id}/status", adminHandler.UpdateUserStatus)
		r.Delete("/users/{id}", adminHandler.DeleteUser)
		r.Get("/posts", adminHandler.ListPosts)
		r.Put("/posts/{id}/status", adminHandler.UpdatePostStatus)
		r.Delete("/posts/{id}", adminHandler.DeletePost)
		r.Get("/audit", adminHandler.ListAudit)
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("Backend listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
