package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grainlyyy/pds-api/internal/application/allocation"
	"github.com/grainlyyy/pds-api/internal/application/auth"
	"github.com/grainlyyy/pds-api/internal/application/identity"
	"github.com/grainlyyy/pds-api/internal/application/notification"
	"github.com/grainlyyy/pds-api/internal/application/otp"
	"github.com/grainlyyy/pds-api/internal/application/pickup"
	"github.com/grainlyyy/pds-api/internal/application/signup"
	"github.com/grainlyyy/pds-api/internal/config"
	"github.com/grainlyyy/pds-api/internal/infrastructure/chain"
	"github.com/grainlyyy/pds-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/grainlyyy/pds-api/internal/infrastructure/jwt"
	redisinfra "github.com/grainlyyy/pds-api/internal/infrastructure/redis"
	s3infra "github.com/grainlyyy/pds-api/internal/infrastructure/s3"
	"github.com/grainlyyy/pds-api/internal/infrastructure/smtp"
	"github.com/grainlyyy/pds-api/internal/infrastructure/sns"
	"github.com/grainlyyy/pds-api/internal/infrastructure/telemetry"
	"github.com/grainlyyy/pds-api/internal/infrastructure/twilio"
	transporthttp "github.com/grainlyyy/pds-api/internal/transport/http"
	"github.com/grainlyyy/pds-api/internal/transport/http/handler"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, "pds-api", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}

	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("dynamodb client: %v", err)
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	otpRepo := dynamo.NewOTPRepo(dynamoClient, cfg.DynamoTables.OTPs)
	consumerRepo := dynamo.NewConsumerSignupRepo(dynamoClient, cfg.DynamoTables.ConsumerSignups)
	deliveryRepo := dynamo.NewDeliverySignupRepo(dynamoClient, cfg.DynamoTables.DeliverySignups)
	shopkeeperRepo := dynamo.NewShopkeeperSignupRepo(dynamoClient, cfg.DynamoTables.ShopkeeperSignups)
	notificationRepo := dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications)
	allocationRepo := dynamo.NewAllocationRepo(dynamoClient, cfg.DynamoTables.Allocations)

	// The facet ABI document lives either on disk or in S3. Only an S3
	// document can be replaced through the admin API.
	var (
		abiSource   chain.DocumentSource = chain.FileSource{Path: cfg.ABIPath}
		abiDocument pickup.ABIDocument
	)
	if bucket, key, ok := s3infra.ParseURI(cfg.ABIPath); ok {
		s3Client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			log.Fatalf("s3 client: %v", err)
		}
		doc := s3infra.NewStore(s3Client, bucket).Document(key)
		abiSource, abiDocument = doc, doc
	}
	abiLoader := chain.NewABILoader(abiSource, cfg.ABICacheTTL)
	if _, err := abiLoader.Load(ctx); err != nil {
		log.Printf("WARN: ABI not loaded at startup: %v", err)
	}

	chainClient, err := chain.NewClient(ctx, chain.Config{
		RPCURL:          cfg.RPCURL,
		ContractAddress: cfg.ContractAddress,
		AdminPrivateKey: cfg.AdminPrivateKey,
		ChainID:         cfg.ChainID,
		TxTimeout:       cfg.TxTimeout,
		ExplorerTxURL:   cfg.ExplorerTxURL,
	}, abiLoader)
	if err != nil {
		log.Fatalf("chain client: %v", err)
	}
	defer chainClient.Close()

	var smsSender signup.SMSSender
	switch cfg.SMSProvider {
	case "sns":
		if sender, err := sns.NewSender(ctx, cfg); err == nil {
			smsSender = sender
		} else {
			log.Printf("WARN: SNS sender not available: %v", err)
		}
	case "twilio":
		if sender, err := twilio.NewSender(cfg); err == nil {
			smsSender = sender
		} else {
			log.Printf("WARN: Twilio sender not available: %v", err)
		}
	}

	healthChecks := map[string]handler.HealthCheck{
		"dynamodb": func(ctx context.Context) error {
			return dynamo.Ping(ctx, dynamoClient, cfg.DynamoTables.OTPs)
		},
		"abi": func(ctx context.Context) error {
			_, err := abiLoader.Load(ctx)
			return err
		},
	}

	var publisher notification.Publisher
	if cfg.RedisAddr != "" {
		p := redisinfra.NewPublisher(redisinfra.NewClient(cfg))
		defer p.Close()
		publisher = p
		healthChecks["redis"] = p.Ping
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	notificationSvc := notification.NewService(notification.ServiceDeps{
		Store:     notificationRepo,
		Publisher: publisher,
	})
	identitySvc := identity.NewService(identity.ServiceDeps{
		Chain:       chainClient,
		Shopkeepers: shopkeeperRepo,
		Delivery:    deliveryRepo,
		Consumers:   consumerRepo,
		DefaultPIN:  cfg.DefaultConsumerPIN,
	})
	signupSvc := signup.NewService(signup.ServiceDeps{
		Consumers:   consumerRepo,
		Delivery:    deliveryRepo,
		Shopkeepers: shopkeeperRepo,
		Chain:       chainClient,
		Notifier:    notificationSvc,
		SMS:         smsSender,
		Mailer:      smtp.NewMailer(cfg),
		AdminEmail:  cfg.AdminEmail,
	})

	deps := &transporthttp.Deps{
		Auth: auth.NewService(auth.ServiceDeps{
			Identity:          identitySvc,
			Consumers:         consumerRepo,
			Tokens:            jwtProvider,
			AdminUsername:     cfg.AdminUsername,
			AdminPasswordHash: cfg.AdminPasswordHash,
		}),
		Identity:      identitySvc,
		OTP:           otp.NewService(otp.ServiceDeps{Store: otpRepo}),
		Signups:       signupSvc,
		Notifications: notificationSvc,
		Allocations:   allocation.NewService(allocationRepo, nil),
		Pickups: pickup.NewService(pickup.ServiceDeps{
			Chain:    chainClient,
			Notifier: notificationSvc,
			Document: abiDocument,
			Cache:    abiLoader,
		}),
		Tokens:       jwtProvider,
		HealthChecks: healthChecks,
	}

	reconcileCtx, stopReconcile := context.WithCancel(ctx)
	defer stopReconcile()
	if cfg.ReconcileInterval > 0 {
		go runReconciler(reconcileCtx, signupSvc, cfg.ReconcileInterval)
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.TxTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopReconcile()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("tracing shutdown: %v", err)
	}
	log.Println("Server stopped")
}

// runReconciler periodically approves pending signups whose wallet is
// already registered on chain.
func runReconciler(ctx context.Context, svc signup.Service, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := svc.Reconcile(ctx)
			if err != nil {
				slog.Warn("reconcile failed", "err", err)
				continue
			}
			slog.Info("reconcile finished", "report", report)
		}
	}
}
