package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/dkotenko/auth-service/internal/auth"
	"github.com/dkotenko/auth-service/internal/db"
	"github.com/dkotenko/auth-service/internal/token"
	"github.com/dkotenko/auth-service/internal/user"
	"github.com/dkotenko/auth-service/pkg/config"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("loading config", "error", err)
		os.Exit(1)
	}

	database, err := db.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(context.Background(), database); err != nil {
		log.Error("running migrations", "error", err)
		os.Exit(1)
	}

	users := user.NewRepository(database)
	tokens := token.NewService(
		cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
	)
	service := auth.NewService(users, tokens, log)
	handler := auth.NewHandler(service, log)

	router := gin.Default()
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "hello") })
	router.POST("/register", handler.Register)
	router.POST("/login", handler.Login)
	router.POST("/refresh_token", handler.RefreshToken)
	router.GET("/users", handler.ListUsers)

	protected := router.Group("/", auth.Gate(tokens))
	protected.GET("/me", handler.Me)
	protected.POST("/users/:id/revoke_tokens", handler.RevokeTokens)

	log.Info("starting server", "addr", cfg.ListenAddr)
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
