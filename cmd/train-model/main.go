// Fits the logistic classifier on labeled rows dated before the backtest
// cutoff and saves it to model.path.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"

	"github.com/joho/godotenv"

	"marketlens/internal/config"
	"marketlens/internal/dataset"
	"marketlens/internal/model"
	"marketlens/internal/util"
)

func main() {
	out := flag.String("out", "", "model output path (default: model.path)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	modelPath := cfg.Model.Path
	if *out != "" {
		modelPath = *out
	}
	cutoff, err := cfg.Backtest.Cutoff()
	if err != nil {
		log.Fatalf("%v", err)
	}

	ds, err := dataset.Load(cfg.Dataset.LabeledPath)
	if err != nil {
		log.Fatalf("loading dataset: %v", err)
	}
	train := ds.Before(cutoff)
	test, err := ds.Since(cutoff)
	if err != nil {
		slog.Warn("no rows after cutoff to evaluate on", "cutoff", cfg.Backtest.CutoffDate, "error", err)
	}

	m, err := model.Train(train, model.TrainOptions{
		Epochs:       cfg.Model.Epochs,
		LearningRate: cfg.Model.LearningRate,
		L2:           cfg.Model.L2,
		Log:          logger,
	})
	if err != nil {
		log.Fatalf("training: %v", err)
	}
	if err := m.Save(modelPath); err != nil {
		log.Fatalf("saving model: %v", err)
	}

	trainAcc, err := model.Accuracy(m, train)
	if err != nil {
		log.Fatalf("scoring training rows: %v", err)
	}
	fmt.Printf("Model saved to %s (%d features)\n", modelPath, len(m.Features))
	fmt.Printf("Train accuracy: %.4f (%d rows)\n", trainAcc, len(train.Rows))
	if test != nil {
		testAcc, err := model.Accuracy(m, test)
		if err != nil {
			slog.Warn("scoring rows after cutoff", "error", err)
			return
		}
		fmt.Printf("Test accuracy:  %.4f (%d rows)\n", testAcc, len(test.Rows))
	}
}
