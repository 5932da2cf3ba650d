package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"wisefido-eegstaging/internal/config"
	"wisefido-eegstaging/internal/report"
	"wisefido-eegstaging/internal/repository"

	"go.uber.org/zap"

	rediscommon "wisefido-eegstaging/internal/redis"
)

func main() {
	// Parse command line arguments
	var recordingID = flag.String("recording", "", "Recording ID to export (required)")
	var outPath = flag.String("out", "", "Output .xlsx path (default: staging-report-<recording>.xlsx)")
	flag.Parse()

	if *recordingID == "" {
		flag.Usage()
		os.Exit(2)
	}

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 报表工具走缓存，不需要数据库连接
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	defer rediscommon.Close(redisClient)

	ctx := context.Background()
	if err := rediscommon.Ping(ctx, redisClient); err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}

	cache := repository.NewResultCache(redisClient, cfg.Staging.ResultCachePrefix, cfg.Staging.ResultCacheTTL, zap.NewNop())

	result, err := cache.GetResult(ctx, *recordingID)
	if err != nil {
		log.Fatalf("Failed to load staging result: %v", err)
	}

	data, err := report.GenerateStagingReport(result)
	if err != nil {
		log.Fatalf("Failed to generate report: %v", err)
	}

	path := *outPath
	if path == "" {
		path = fmt.Sprintf("staging-report-%s.xlsx", *recordingID)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatalf("Failed to write report file: %v", err)
	}

	fmt.Printf("Report written to %s (%d epochs, sleep %.1f%%)\n", path, result.EpochCount, result.SleepPercentage)
}
