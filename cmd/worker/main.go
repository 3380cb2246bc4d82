// Package main is the worker entry point.
package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	temporalactivity "go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"

	"github.com/tinkerloft/quotecraft/internal/activity"
	internalclient "github.com/tinkerloft/quotecraft/internal/client"
	"github.com/tinkerloft/quotecraft/internal/config"
	"github.com/tinkerloft/quotecraft/internal/correction"
	"github.com/tinkerloft/quotecraft/internal/knowledge"
	"github.com/tinkerloft/quotecraft/internal/llm"
	"github.com/tinkerloft/quotecraft/internal/logging"
	"github.com/tinkerloft/quotecraft/internal/merger"
	"github.com/tinkerloft/quotecraft/internal/metrics"
	"github.com/tinkerloft/quotecraft/internal/quote"
	"github.com/tinkerloft/quotecraft/internal/workflow"
)

func main() {
	// Validate configuration at startup
	configMode := activity.ConfigModeWarn
	if os.Getenv("REQUIRE_CONFIG") == "true" {
		configMode = activity.ConfigModeRequire
	}
	if err := activity.CheckConfig(configMode); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	temporalAddr := os.Getenv("TEMPORAL_ADDRESS")
	if temporalAddr == "" {
		temporalAddr = "localhost:7233"
	}

	c, err := client.Dial(client.Options{
		HostPort: temporalAddr,
		Logger:   logging.NewSlogAdapter(slog.Default()),
	})
	if err != nil {
		log.Fatalf("Failed to connect to Temporal: %v", err)
	}
	defer c.Close()

	log.Printf("Connected to Temporal at %s", temporalAddr)
	log.Printf("Task queue: %s", internalclient.TaskQueue)

	reg := prometheus.NewRegistry()
	m, err := metrics.Register(reg)
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	kn := knowledge.NewStore(filepath.Join(cfg.DataDir, "knowledge"), knowledge.Params{
		MaxAdjustments: cfg.Learning.MaxAdjustments,
		SmoothingK:     cfg.Learning.SmoothingK,
		ConfidenceCap:  cfg.Learning.ConfidenceCap,
	})
	kn.Metrics = m
	quotes := quote.NewStore(filepath.Join(cfg.DataDir, "quotes"))

	mg := merger.NewMerger(kn, quotes)
	mg.Metrics = m

	learnActivities := activity.NewLearnActivities(
		correction.NewExtractor(llm.NewAnthropicCompletion(cfg.Anthropic.AnalysisModel, cfg.Anthropic.MaxTokens)),
		mg,
		quotes,
	)

	w := worker.New(c, internalclient.TaskQueue, worker.Options{
		Interceptors: []interceptor.WorkerInterceptor{metrics.NewInterceptor(m)},
	})

	w.RegisterWorkflow(workflow.Learn)

	// Register activities with explicit names to match workflow constants
	w.RegisterActivityWithOptions(learnActivities.ExtractCorrection, temporalactivity.RegisterOptions{Name: activity.ActivityExtractCorrection})
	w.RegisterActivityWithOptions(learnActivities.MergeCorrection, temporalactivity.RegisterOptions{Name: activity.ActivityMergeCorrection})

	// Serve Prometheus metrics alongside the worker.
	metricsAddr := os.Getenv("QUOTECRAFT_METRICS_ADDR")
	if metricsAddr == "" {
		metricsAddr = ":9090"
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Printf("metrics server error: %v", err)
		}
	}()

	log.Println("Worker started. Press Ctrl+C to stop.")

	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}

	log.Println("Worker stopped")
}
