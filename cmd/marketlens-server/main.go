// Serves predictions, stored backtests and the dashboard over HTTP, and the
// prediction and health services over gRPC. The model and dataset are
// loaded once at startup.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"marketlens/internal/api"
	"marketlens/internal/config"
	"marketlens/internal/dataset"
	"marketlens/internal/httpapi"
	"marketlens/internal/model"
	"marketlens/internal/predict"
	"marketlens/internal/store"
	"marketlens/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	ds, err := dataset.Load(cfg.Dataset.LabeledPath)
	if err != nil {
		log.Fatalf("loading dataset: %v", err)
	}
	m, err := model.Load(cfg.Model.Path)
	if err != nil {
		log.Fatalf("loading model: %v", err)
	}
	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening %s: %v", cfg.Storage.SQLitePath, err)
	}
	defer db.Close()

	svc, err := predict.NewService(ds, m, db, db)
	if err != nil {
		log.Fatalf("building prediction service: %v", err)
	}
	info := svc.Info()
	slog.Info("prediction service ready", "tickers", len(info.Tickers), "rows", info.Rows,
		"asOf", info.AsOf.Format("2006-01-02"))

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	var grpcAddr string
	if cfg.Server.GRPCPort > 0 {
		grpcAddr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort)
	}
	handler := httpapi.NewServer(svc, cfg.Dataset.HorizonDays, logger).Handler()
	srv := api.NewServer(httpAddr, grpcAddr, handler, api.NewPredictionService(svc), logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("marketlens-server starting", "http", httpAddr, "grpc", grpcAddr)
	if err := srv.ListenAndServe(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
