package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nagukpo_backend/internal/api"
	"nagukpo_backend/internal/app/service"
	"nagukpo_backend/internal/app/worker"
	"nagukpo_backend/internal/common/security"
	"nagukpo_backend/internal/domain/repository"
	"nagukpo_backend/internal/platform/config"
	"nagukpo_backend/internal/platform/database"
	"nagukpo_backend/internal/platform/llm"
	"nagukpo_backend/internal/platform/logger"
	"nagukpo_backend/internal/platform/queue"
	"nagukpo_backend/internal/platform/scheduler"
	"nagukpo_backend/internal/platform/vector"
)

func main() {
	// 1. Load Configuration
	config.Load()

	log, err := logger.New(config.AppConfig.Mode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// 2. Initialize JWT
	security.InitJWT()

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	log.Info("Database connected")

	// 4. Initialize Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()
	log.Info("Redis connected")

	// 5. Initialize external clients (one handle per process)
	llmClient, err := llm.NewOpenAIClient(llm.Config{
		APIKey:     config.AppConfig.OpenAIAPIKey,
		Model:      config.AppConfig.OpenAIModel,
		EmbedModel: config.AppConfig.OpenAIEmbedModel,
	})
	if err != nil {
		log.Fatal("Failed to initialize OpenAI client", "error", err)
	}

	index, err := vector.NewPinecone(log, vector.Config{
		APIKey:    config.AppConfig.PineconeAPIKey,
		IndexName: config.AppConfig.PineconeIndexName,
		IndexHost: config.AppConfig.PineconeIndexHost,
	})
	if err != nil {
		log.Fatal("Failed to initialize Pinecone index", "error", err)
	}
	defer index.Close()

	// 6. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	problemRepo := repository.NewPgProblemRepository(database.DB)
	attemptRepo := repository.NewPgAttemptRepository(database.DB)
	achievementRepo := repository.NewPgAchievementRepository(database.DB)
	refreshTokenRepo := repository.NewPgRefreshTokenRepository(database.DB)
	chatRepo := repository.NewPgChatMessageRepository(database.DB)
	jobRepo := repository.NewPgEvaluationJobRepository(database.DB)

	// 7. Initialize Services
	authService := service.NewAuthService(userRepo, refreshTokenRepo)
	jobService := service.NewEvaluationJobService(jobRepo, queue.RDB, log)
	problemService := service.NewProblemService(database.DB, problemRepo, attemptRepo, userRepo, jobService, log)
	achievementService := service.NewAchievementService(database.DB, achievementRepo, attemptRepo, problemRepo, userRepo, log)
	ragService := service.NewRAGService(llmClient, index, log)
	chatService := service.NewChatService(ragService, chatRepo, log)
	hintService := service.NewHintService(problemRepo, llmClient)
	progressService := service.NewProgressService(userRepo, attemptRepo)

	// 8. Recover jobs stranded by a previous crash, then start the worker
	if err := jobService.RequeueUnfinished(context.Background()); err != nil {
		log.Error("Startup requeue failed", "error", err)
	}

	achievementWorker := worker.NewAchievementWorker(queue.RDB, jobRepo, achievementService, log)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go achievementWorker.Start(workerCtx)

	// 9. Start the token cleanup scheduler
	tokenScheduler := scheduler.New(authService, log)
	tokenScheduler.Start()
	defer tokenScheduler.Stop()

	// 10. Initialize Router & HTTP Server
	router := api.NewRouter(authService, problemService, hintService, chatService, achievementService, progressService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 11. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("Server starting", "port", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", "error", err)
		}
	}()

	<-stop

	log.Info("Shutting down server")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server shutdown failed", "error", err)
	}

	log.Info("Server and worker stopped gracefully")
}
