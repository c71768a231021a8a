package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lifestory/lifestory/config"
	"lifestory/lifestory/controllers"
	"lifestory/lifestory/routes"
	"lifestory/lifestory/services/aggregator"
	"lifestory/lifestory/services/conflicts"
	"lifestory/lifestory/services/lifecycle"
	"lifestory/lifestory/services/summarizer"
	"lifestory/lifestory/sources/psql"
	"lifestory/lifestory/sources/psql/dao"
	"lifestory/lifestory/utils/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func main() {
	logging.InitLogger()
	cfg := config.LoadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := psql.NewDatabase(ctx, cfg)
	if err != nil {
		logging.ErrorLogger.Error("database connection error", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	sessionDAO := dao.NewSessionDAO(db.DB)
	interviewDAO := dao.NewInterviewDAO(db.DB)
	draftDAO := dao.NewDraftDAO(db.DB)
	storyDAO := dao.NewStoryDAO(db.DB)
	historyDAO := dao.NewHistoryDAO(db.DB)
	conflictDAO := dao.NewConflictDAO(db.DB)

	clock := lifecycle.SystemClock()
	locks := lifecycle.NewEntityLocks()

	sum := summarizer.NewOpenAISummarizer(cfg.OpenAIKey, cfg.SummarizerModel)
	agg := aggregator.New(db.DB, sessionDAO, interviewDAO, draftDAO, storyDAO, historyDAO,
		sum, clock, cfg.SummarizerTimeout, sum.Model())
	detector := conflicts.NewDetector(draftDAO, conflictDAO, conflicts.NewPatternComparer())

	sessionsCtrl := controllers.NewSessionsController(db.DB, sessionDAO, interviewDAO, draftDAO, storyDAO, historyDAO, clock, locks)
	draftsCtrl := controllers.NewDraftsController(db.DB, sessionDAO, interviewDAO, draftDAO, historyDAO, clock, locks)
	storiesCtrl := controllers.NewStoriesController(agg, storyDAO)
	conflictsCtrl := controllers.NewConflictsController(db.DB, detector, conflictDAO, draftsCtrl, historyDAO, clock, locks)
	historyCtrl := controllers.NewHistoryController(historyDAO)
	healthCtrl := controllers.NewHealthController()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Mount("/health", routes.HealthRoutes(healthCtrl))
	r.Mount("/sessions", routes.SessionRoutes(sessionsCtrl, cfg))
	r.Mount("/interviews", routes.InterviewRoutes(sessionsCtrl, cfg))
	r.Mount("/drafts", routes.DraftRoutes(draftsCtrl, cfg))
	r.Mount("/stories", routes.StoryRoutes(storiesCtrl, cfg))
	r.Mount("/conflicts", routes.ConflictRoutes(conflictsCtrl, cfg))
	r.Mount("/history", routes.HistoryRoutes(historyCtrl, cfg))

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}
	go func() {
		logging.AppLogger.Info("lifestory listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.ErrorLogger.Error("server listen error", zap.Error(err))
		}
	}()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
	}
	logging.AppLogger.Info("server shutdown complete")
}
