package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/timmy/bucketgate/internal/config"
	"github.com/timmy/bucketgate/internal/logger"
	"github.com/timmy/bucketgate/internal/repository"
	"github.com/timmy/bucketgate/internal/service"
	"github.com/timmy/bucketgate/internal/storage"
	"gorm.io/gorm"
)

var configPath string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "bucketgate",
	Short: "S3-compatible object gateway",
	Long: `bucketgate keeps one client per bucket and uploads, deletes and presigns
objects on S3-compatible stores, with optional SSE-KMS encryption.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		logger.GetDefault().WithError(err).Error("command failed")
		_ = logger.Sync()
		os.Exit(1)
	}
}

func init() {
	// CONFIG_PATH is what container deployments set.
	RootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to the config file")
}

// app is the wiring shared by every command.
type app struct {
	cfg      *config.Config
	db       *gorm.DB
	registry *storage.Registry
	objects  *service.ObjectService
}

// bootstrap loads the configuration, opens the catalog and registers the
// configured buckets.
func bootstrap(cmd *cobra.Command) (*app, error) {
	logger.SetDefaultLogger(logger.NewDefault())

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	registry := storage.NewRegistry()
	objects := service.NewObjectService(registry, repository.NewObjectRepository(db), &service.ObjectConfig{
		MaxPayloadBytes: cfg.Upload.MaxPayloadBytes,
	})

	ctx := cmd.Context()
	for _, b := range cfg.Storage.Buckets {
		if _, err := objects.Register(ctx, storage.ClientConfig{
			Bucket:          b.Name,
			Endpoint:        b.Endpoint,
			AccessKey:       b.AccessKey,
			SecretKey:       b.SecretKey,
			EncryptionKeyID: b.KMSKeyID,
			Region:          b.Region,
			UseSSL:          b.UseSSL,
		}); err != nil {
			return nil, fmt.Errorf("failed to register bucket %s: %w", b.Name, err)
		}
	}
	logger.With(logger.Fields{}).WithCount(len(cfg.Storage.Buckets)).Info(ctx, "Buckets registered")

	return &app{cfg: cfg, db: db, registry: registry, objects: objects}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = logger.Sync()
}
