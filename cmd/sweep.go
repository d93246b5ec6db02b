package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"dropfm/config"
	"dropfm/core/scheduler"
	"dropfm/db"
	"dropfm/logger"
	"dropfm/repository"
	"dropfm/storage"

	"github.com/spf13/cobra"
)

var sweepDelete bool

// sweepCmd runs one sweep pass and exits; meant for external cron setups that
// don't keep the server's in-process timers.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one expire (or delete) sweep and exit",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		logger.InitLogger(logger.Config{Level: logger.InfoLevel})

		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.DB.Close()

		blobs, err := storage.NewMinioStore(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize blob store: %v", err)
		}

		sweeps := scheduler.New(repository.NewMySQLTrackRepository(), blobs, scheduler.Config{
			Retention:       cfg.TrackRetention,
			DefaultCoverURL: cfg.DefaultCoverURL,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if sweepDelete {
			report := sweeps.RunDeleteSweep(ctx)
			fmt.Printf("Delete sweep finished: %d deleted, %d failed\n", report.Deleted, report.Failed)
			return
		}

		expired, err := sweeps.RunExpireSweep(ctx, time.Now().Add(-cfg.TrackRetention))
		if err != nil {
			log.Fatalf("Expire sweep failed: %v", err)
		}
		fmt.Printf("Expire sweep finished: %d tracks expired\n", expired)
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepDelete, "delete", false, "run the delete sweep instead of the expire sweep")
	rootCmd.AddCommand(sweepCmd)
}
