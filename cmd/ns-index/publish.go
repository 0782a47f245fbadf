package main

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"FlowSpectra/internal/model"
	"FlowSpectra/internal/probe"
)

var (
	publishCount    int
	publishBatch    int
	publishStartID  uint32
	publishSeed     uint64
	publishInterval time.Duration

	publishCmd = &cobra.Command{
		Use:   "publish",
		Short: "Publish synthetic flow records to the configured NATS subject",
		RunE:  runPublish,
	}
)

func init() {
	publishCmd.Flags().IntVarP(&publishCount, "count", "n", 10000, "number of records to publish")
	publishCmd.Flags().IntVarP(&publishBatch, "batch", "b", 500, "records per message")
	publishCmd.Flags().Uint32Var(&publishStartID, "start-id", 1, "ID of the first record")
	publishCmd.Flags().Uint64Var(&publishSeed, "seed", 1, "seed of the record generator")
	publishCmd.Flags().DurationVar(&publishInterval, "interval", 0, "pause between messages")
}

func runPublish(cmd *cobra.Command, _ []string) error {
	if publishBatch <= 0 {
		return fmt.Errorf("batch must be positive, got %d", publishBatch)
	}
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	pub, err := probe.NewPublisher(cfg.Probe, logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	rng := rand.New(rand.NewPCG(publishSeed, uint64(publishStartID)))
	id := publishStartID
	batch := make([]model.Record, 0, publishBatch)
	sent := 0
	for sent < publishCount {
		batch = batch[:0]
		for len(batch) < publishBatch && sent+len(batch) < publishCount {
			batch = append(batch, model.Synthesize(id, rng))
			id++
		}
		if err := pub.Publish(batch); err != nil {
			return fmt.Errorf("publish failed after %d records: %w", sent, err)
		}
		sent += len(batch)
		if publishInterval > 0 {
			time.Sleep(publishInterval)
		}
	}
	if err := pub.Flush(); err != nil {
		return fmt.Errorf("flush failed: %w", err)
	}
	logger.Info("published records", "count", sent, "subject", cfg.Probe.Subject)
	return nil
}
