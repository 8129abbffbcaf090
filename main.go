package main

import (
	"context"
	"log"
	"strings"

	api "ats-backend/cmd/api"
	applicantDelivery "ats-backend/internal/applicant/delivery"
	applicantdomain "ats-backend/internal/applicant/domain"
	applicantRepo "ats-backend/internal/applicant/repository"
	applicantUsecase "ats-backend/internal/applicant/usecase"
	authDelivery "ats-backend/internal/auth/delivery"
	authdomain "ats-backend/internal/auth/domain"
	authRepo "ats-backend/internal/auth/repository"
	authUsecase "ats-backend/internal/auth/usecase"
	companyDelivery "ats-backend/internal/company/delivery"
	companydomain "ats-backend/internal/company/domain"
	companyRepo "ats-backend/internal/company/repository"
	syncDelivery "ats-backend/internal/mailsync/delivery"
	syncdomain "ats-backend/internal/mailsync/domain"
	syncRepo "ats-backend/internal/mailsync/repository"
	"ats-backend/internal/mailsync/scheduler"
	syncUsecase "ats-backend/internal/mailsync/usecase"
	"ats-backend/internal/notification"
	"ats-backend/pkg/config"
	"ats-backend/pkg/database"
	"ats-backend/pkg/fcm"
	"ats-backend/pkg/gmail"
)

func main() {
	cfg := config.Load()

	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&authdomain.User{},
		&authdomain.RefreshToken{},
		&authdomain.FCMToken{},
		&companydomain.Company{},
		&companydomain.ClientUser{},
		&applicantdomain.Applicant{},
		&syncdomain.Connection{},
		&syncdomain.SyncRun{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Repositories
	userRepo := authRepo.NewUserRepository(db)
	fcmTokenRepo := authRepo.NewFCMTokenRepository(db)
	applicantRepository := applicantRepo.NewApplicantRepository(db)
	companyRepository := companyRepo.NewCompanyRepository(db)
	connectionRepo := syncRepo.NewConnectionRepository(db)
	syncRunRepo := syncRepo.NewSyncRunRepository(db)

	// Gmail provider
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)

	// Sync pipeline
	mapper := applicantUsecase.NewMapper(applicantRepository, companyRepository)
	syncUc := syncUsecase.NewSyncUsecase(connectionRepo, syncRunRepo, gmailService, mapper, syncUsecase.SyncConfig{
		Label:          cfg.SyncLabel,
		PageSize:       cfg.SyncPageSize,
		MaxTotal:       cfg.SyncMaxTotal,
		RunTimeout:     cfg.SyncRunTimeout,
		StaleThreshold: cfg.StaleRunThreshold,
	})

	// FCM client is optional; syncs run fine without push delivery.
	var dispatcher *notification.Dispatcher
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
		} else {
			dispatcher = notification.NewDispatcher(applicantRepository, companyRepository, fcmTokenRepo, fcmClient)
		}
	} else {
		log.Println("[WARN] No Firebase credentials configured, push notifications disabled")
	}

	var notifier syncUsecase.Notifier
	if dispatcher != nil {
		notifier = dispatcher
	}
	coordinator := syncUsecase.NewCoordinator(syncUc, notifier)

	ctx := context.Background()

	// Periodic sync loop
	syncScheduler := scheduler.New(coordinator, cfg.SyncInterval)
	syncScheduler.Start(ctx)
	defer syncScheduler.Stop()

	// Pub/Sub push listener for Gmail watch notifications
	if cfg.GoogleProjectID != "" {
		topicName := cfg.GooglePubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}

		listener, err := notification.NewPushListener(cfg.GoogleProjectID, topicName, cfg.FirebaseCredentials, coordinator)
		if err != nil {
			log.Printf("[ERROR] Failed to initialize push listener: %v", err)
		} else {
			go listener.Start(ctx)
		}
	} else {
		log.Println("[WARN] GOOGLE_PROJECT_ID not configured, push listener disabled")
	}

	// HTTP surface
	authUc := authUsecase.NewAuthUsecase(userRepo, cfg)
	authHandler := authDelivery.NewAuthHandler(authUc, fcmTokenRepo)
	applicantHandler := applicantDelivery.NewApplicantHandler(applicantRepository, companyRepository)
	companyHandler := companyDelivery.NewCompanyHandler(companyRepository)
	syncHandler := syncDelivery.NewSyncHandler(coordinator, connectionRepo, syncRunRepo, gmailService, cfg)

	handler := api.NewHandler(authUc, authHandler, applicantHandler, companyHandler, syncHandler, cfg)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
