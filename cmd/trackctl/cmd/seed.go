package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/volcanion-systems/volcanion-tracking/internal/seeder"
)

var (
	seedURL       string
	seedAPIKey    string
	seedCount     int
	seedBatchSize int
	seedProfile   string
	seedSeed      int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Send synthetic events to a running tracking service",
	Long: `Generate randomized event submissions and post them in bulk batches.

Examples:
  # 1000 events with the default traffic mix
  trackctl seed --url http://localhost:8080 --api-key YOUR_KEY

  # Custom mix from a profile file
  trackctl seed --api-key YOUR_KEY --profile ./seed-profile.yaml --count 5000`,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	if seedAPIKey == "" {
		return fmt.Errorf("--api-key is required")
	}

	profile := seeder.DefaultProfile()
	if seedProfile != "" {
		loaded, err := seeder.LoadProfile(seedProfile)
		if err != nil {
			return fmt.Errorf("load profile: %w", err)
		}
		profile = loaded
	}

	if seedSeed == 0 {
		seedSeed = time.Now().UnixNano()
	}
	gen := seeder.NewGenerator(profile, seedSeed)
	client := seeder.NewClient(seedURL, seedAPIKey)

	start := time.Now()
	queued, err := seeder.Run(cmd.Context(), client, gen, seedCount, seedBatchSize)
	if err != nil {
		return fmt.Errorf("seeding stopped after %d queued events: %w", queued, err)
	}

	fmt.Printf("Queued %d/%d events in %s\n", queued, seedCount, time.Since(start).Round(time.Millisecond))
	return nil
}

func init() {
	seedCmd.Flags().StringVar(&seedURL, "url", "http://localhost:8080", "tracking service base URL")
	seedCmd.Flags().StringVar(&seedAPIKey, "api-key", "", "partner API key")
	seedCmd.Flags().IntVar(&seedCount, "count", 1000, "number of events to send")
	seedCmd.Flags().IntVar(&seedBatchSize, "batch-size", 100, "events per bulk submission")
	seedCmd.Flags().StringVar(&seedProfile, "profile", "", "YAML traffic profile")
	seedCmd.Flags().Int64Var(&seedSeed, "seed", 0, "random seed (0 = time-based)")
	rootCmd.AddCommand(seedCmd)
}
