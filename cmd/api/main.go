package main

import (
	"log"
	"time"

	"milestonesvc/internal/cache"
	"milestonesvc/internal/config"
	"milestonesvc/internal/db"
	"milestonesvc/internal/handler"
	"milestonesvc/internal/httpserver"
	"milestonesvc/internal/mq"
	redisclient "milestonesvc/internal/redis"
	"milestonesvc/internal/repository"
	"milestonesvc/internal/service/milestone"
	"milestonesvc/internal/service/progress"
	"milestonesvc/internal/service/release"
	"milestonesvc/internal/service/search"

	"go.uber.org/zap"
)

func main() {
	// Load config
	cfg := config.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Init DB
	dbConn, err := db.NewConnection(cfg.DB, logger)
	if err != nil {
		logger.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	// Init Redis
	rdb := redisclient.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	// Init RabbitMQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatalf("failed to init publisher: %v", err)
	}
	defer publisher.Close()

	// Init Result Cache
	resultCache := cache.New(rdb, logger,
		time.Duration(cfg.Cache.ProgressTTL)*time.Second,
		time.Duration(cfg.Cache.SearchTTL)*time.Second,
	)

	// Init Repositories
	milestoneRepo := repository.NewMilestoneRepository(dbConn, logger)
	releaseRepo := repository.NewReleaseRepository(dbConn, logger)
	issueRepo := repository.NewIssueRepository(dbConn, logger)
	membershipRepo := repository.NewMembershipRepository(dbConn, logger)
	searchRepo := repository.NewSearchRepository(dbConn, logger)

	// Init Services
	milestoneService := milestone.NewService(milestoneRepo, resultCache, publisher, logger)
	releaseService := release.NewService(releaseRepo, milestoneRepo, resultCache, publisher, logger)
	progressCalculator := progress.NewCalculator(milestoneRepo, releaseRepo, issueRepo, resultCache, logger)
	searchService := search.NewService(searchRepo, membershipRepo, resultCache, logger)

	// Init Handlers
	milestoneHandler := handler.NewMilestoneHandler(milestoneService, logger)
	releaseHandler := handler.NewReleaseHandler(releaseService, logger)
	progressHandler := handler.NewProgressHandler(progressCalculator, logger)
	searchHandler := handler.NewSearchHandler(searchService, logger)

	// Router
	router := httpserver.NewRouter(
		milestoneHandler,
		releaseHandler,
		progressHandler,
		searchHandler,
		cfg.JWT.Secret,
		time.Duration(cfg.Server.RequestTimeout)*time.Second,
	)

	// Start API server
	if err := router.Run(cfg.Server.Port); err != nil {
		logger.Fatal("server start failed", zap.Error(err))
	}
}
