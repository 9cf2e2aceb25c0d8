package database

import (
	"context"
	"time"

	"github.com/pranjalb21/kaviosPix/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectMongo dials and pings the primary. The client is disconnected again
// when the ping fails.
func ConnectMongo(ctx context.Context, cfg config.MongoConf, appName string, logger *zap.Logger) (*mongo.Database, *mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName(appName).
		SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		logger.Error("MongoDB connection failed", zap.Error(err))
		return nil, nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Error("MongoDB ping failed", zap.Error(err))
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	logger.Info("MongoDB connected successfully", zap.String("database", cfg.Database))
	return client.Database(cfg.Database), client, nil
}
