package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"avara-ussd/internal/config"
	"avara-ussd/internal/database"
	"avara-ussd/internal/handlers"
	"avara-ussd/internal/middleware"
	"avara-ussd/internal/repositories"
	"avara-ussd/internal/services"
	"avara-ussd/internal/ussd"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize the ticket ledger
	db, err := database.NewConnection(database.Config{Path: cfg.Database.Path})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	log.Println("Ticket ledger ready")

	ticketRepo := repositories.NewTicketRepository(db.DB)

	// Event catalog cache: prime it, then keep it fresh in the background
	catalog := services.NewCatalogService(services.CatalogConfig{
		BaseURL:         cfg.Events.BaseURL,
		RefreshInterval: cfg.Events.RefreshInterval,
	})

	ctx := context.Background()
	if err := catalog.Refresh(ctx); err != nil {
		log.Printf("Initial catalog refresh failed, starting with an empty catalog: %v", err)
	}
	catalog.StartBackgroundRefresh(ctx)

	payments := services.NewIntaSendService(services.IntaSendConfig{
		PublishableKey: cfg.IntaSend.PublishableKey,
		SecretKey:      cfg.IntaSend.SecretKey,
		Environment:    cfg.IntaSend.Environment,
	})

	proofs, err := services.NewMintProofService(services.MintProofConfig{
		PrivateKey:      cfg.Signer.PrivateKey,
		ExpectedAddress: cfg.Signer.ExpectedAddress,
	})
	if err != nil {
		log.Fatal("Failed to initialize mint proof signer:", err)
	}
	if proofs.SignerAddress() == "" {
		log.Println("Mint proof signer: no key configured, proofs disabled")
	}

	var minter services.MinterServiceInterface
	minterService, err := services.NewMinterService(services.MinterConfig{
		RPCURL:          cfg.Chain.RPCURL,
		ChainID:         cfg.Chain.ChainID,
		ContractAddress: cfg.Chain.AvaraCoreAddress,
		PrivateKey:      cfg.Chain.PrivateKey,
	})
	if err != nil {
		log.Printf("On-chain minter disabled: %v", err)
	} else {
		minter = minterService
	}

	// Feature-phone subscribers hold no wallet; tickets are minted to the
	// custodial address unless one is configured explicitly.
	mintRecipient := cfg.Chain.MintRecipient
	if mintRecipient == "" && minterService != nil {
		mintRecipient = minterService.From()
	}

	var notifier services.NotificationServiceInterface
	if cfg.SMS.Username != "" && cfg.SMS.APIKey != "" {
		notifier = services.NewSMSService(services.SMSConfig{
			Username: cfg.SMS.Username,
			APIKey:   cfg.SMS.APIKey,
			BaseURL:  cfg.SMS.BaseURL,
			From:     cfg.SMS.From,
		})
	} else {
		log.Println("Session SMS disabled: missing AFRICASTALKING_API_KEY or AFRICASTALKING_USERNAME")
	}

	machine := ussd.NewMachine(catalog, payments, ticketRepo, proofs, minter, ussd.Options{
		PageSize:      cfg.Events.MenuPageSize,
		MintRecipient: mintRecipient,
	})

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logging(), cors.Default())

	ussdHandler := handlers.NewUSSDHandler(machine, notifier)
	mintProofHandler := handlers.NewMintProofHandler(proofs)
	contractsHandler := handlers.NewContractsHandler(cfg.Chain)

	router.POST("/ussd", ussdHandler.Handle)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/contracts/config", contractsHandler.Config)

	krnl := api.Group("/krnl", middleware.RequireServiceToken(cfg.API.JWTSecret))
	krnl.POST("/mint-proof", mintProofHandler.Create)

	log.Printf("Server ready on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal("Server failed:", err)
	}
}
