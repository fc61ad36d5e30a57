package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"conduit/internal/logger"
	"conduit/pkg/bootstrap"
	"conduit/pkg/logging"
	"conduit/pkg/migrations"
)

const migrateTimeout = 2 * time.Minute

func migrateCmd() *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Long:  "Applies the embedded PostgreSQL migrations and creates the MongoDB event indexes for every configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog()

			cfg, err := loadConfig(earlyLog)
			if err != nil {
				return err
			}

			log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				earlyLog.Warn("Failed to init logger: %v", err)
				return err
			}
			defer log.Sync()

			ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
			defer cancel()

			connector := bootstrap.NewDatabaseConnector(cfg, log)

			db, err := connector.InitPostgreSQL(ctx)
			if err != nil {
				return err
			}
			mongoClient, err := connector.InitMongoDB(ctx)
			if err != nil {
				return err
			}
			defer connector.ShutdownDatabases(ctx, nil, db, mongoClient)

			if db == nil && mongoClient == nil {
				return fmt.Errorf("no database configured")
			}

			if db != nil {
				if down > 0 {
					if err := migrations.DownPostgres(db, down); err != nil {
						return err
					}
				} else if err := migrations.UpPostgres(db); err != nil {
					return err
				}
				version, dirty, err := migrations.PostgresVersion(db)
				if err != nil {
					return err
				}
				log.InfowCtx(ctx, "PostgreSQL schema migrated", "version", version, "dirty", dirty)
			}

			if mongoClient != nil && down == 0 {
				if err := migrations.EnsureMongoIndexes(ctx, mongoClient.Database(mongoDBName(cfg.Database.MongoDB.Database))); err != nil {
					return err
				}
				log.InfowCtx(ctx, "MongoDB indexes ensured")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&down, "down", 0, "Roll back this many PostgreSQL migrations instead of applying them")
	return cmd
}
