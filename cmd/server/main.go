package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/communicare/server/internal/api"
	"github.com/communicare/server/internal/config"
	"github.com/communicare/server/internal/repository"
	"github.com/communicare/server/internal/service"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}
	defer db.Close()

	// Create repository
	repo := repository.NewPostgresRepository(db)

	// Seed the default administrator account
	if err := config.SeedAdmin(context.Background(), repo, cfg); err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}

	// Create services
	authSvc := service.NewAuthService(repo, cfg.Auth.JWTSecret, cfg.Platform.StartingBalance)
	itemSvc := service.NewItemService(repo)
	loanSvc := service.NewLoanService(repo)
	helpSvc := service.NewHelpService(repo)
	notificationSvc := service.NewNotificationService(repo)

	// Create API handler
	handler := api.NewHandler(authSvc, itemSvc, loanSvc, helpSvc, notificationSvc, []byte(cfg.Auth.JWTSecret))

	// Set up Gin router
	router := gin.Default()

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", serverAddr)
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
