package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/coffeebudget/recurrent/internal/aggregate"
	"github.com/coffeebudget/recurrent/internal/classify"
	"github.com/coffeebudget/recurrent/internal/detector"
	"github.com/coffeebudget/recurrent/internal/storage"
	"github.com/coffeebudget/recurrent/internal/suggest"
)

// defaultDatabasePath resolves the configured database location.
func defaultDatabasePath() (string, error) {
	if dbPath := viper.GetString("database.path"); dbPath != "" {
		return os.ExpandEnv(dbPath), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "recurrent", "recurrent.db"), nil
}

// initStorage opens the database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath, err := defaultDatabasePath()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// buildOrchestrator wires the full analysis pipeline over the given store.
// Without an API key the classifier runs rule-based only.
func buildOrchestrator(store *storage.SQLiteStorage) *suggest.Orchestrator {
	logger := slog.Default()

	cfg := classify.Config{
		APIKey:          viper.GetString("ai.api_key"),
		Model:           viper.GetString("ai.model"),
		BatchSize:       viper.GetInt("ai.batch_size"),
		ParallelBatches: viper.GetInt("ai.parallel_batches"),
		DailyQuota:      viper.GetInt("ai.daily_quota"),
		MaxRetries:      viper.GetInt("ai.max_retries"),
		RetryDelay:      viper.GetDuration("ai.retry_delay"),
		CacheTTL:        viper.GetDuration("ai.cache_ttl"),
		CostPerToken:    viper.GetFloat64("ai.cost_per_token"),
	}

	var client classify.Client
	if cfg.APIKey != "" {
		var err error
		client, err = classify.NewAnthropicClient(classify.ClientConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: 60 * time.Second,
		})
		if err != nil {
			logger.Warn("AI classifier unavailable, falling back to rules", "error", err)
			client = nil
		}
	} else {
		logger.Info("no AI api key configured, classification is rule-based")
	}

	classifier := classify.NewClassifier(client, nil, nil, cfg, logger)
	det := detector.New(store, logger)
	agg := aggregate.New(store, logger)
	fallback := aggregate.NewFallbackGenerator(store, aggregate.DefaultFallbackOptions(), logger)

	return suggest.New(det, classifier, agg, fallback, store, store, logger)
}

// analysisCriteria builds detection criteria from config and flags.
func analysisCriteria(userID string, months, minOccurrences int, minConfidence, similarityThreshold float64) detector.Criteria {
	criteria := detector.DefaultCriteria(userID)
	if months > 0 {
		criteria.MonthsToAnalyze = months
	}
	if minOccurrences > 0 {
		criteria.MinOccurrences = minOccurrences
	}
	if minConfidence > 0 {
		criteria.MinConfidence = minConfidence
	}
	if similarityThreshold > 0 {
		criteria.SimilarityThreshold = similarityThreshold
	}
	return criteria
}
