// Package main is the QuoteCraft API server entry point.
package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tinkerloft/quotecraft/internal/category"
	qcclient "github.com/tinkerloft/quotecraft/internal/client"
	"github.com/tinkerloft/quotecraft/internal/config"
	"github.com/tinkerloft/quotecraft/internal/engine"
	"github.com/tinkerloft/quotecraft/internal/knowledge"
	"github.com/tinkerloft/quotecraft/internal/llm"
	"github.com/tinkerloft/quotecraft/internal/metrics"
	"github.com/tinkerloft/quotecraft/internal/quote"
	"github.com/tinkerloft/quotecraft/internal/server"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.Register(reg)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}

	kn := knowledge.NewStore(filepath.Join(cfg.DataDir, "knowledge"), knowledge.Params{
		MaxAdjustments: cfg.Learning.MaxAdjustments,
		SmoothingK:     cfg.Learning.SmoothingK,
		ConfidenceCap:  cfg.Learning.ConfidenceCap,
	})
	kn.Metrics = m
	quotes := quote.NewStore(filepath.Join(cfg.DataDir, "quotes"))

	resolver := category.NewResolver(
		llm.NewAnthropicCompletion(cfg.Anthropic.ClassificationModel, cfg.Anthropic.MaxTokens),
		kn,
		cfg.Learning.FallbackCategory,
	)
	resolver.Metrics = m

	eng := &engine.Engine{
		Knowledge:   kn,
		Quotes:      quotes,
		Resolver:    resolver,
		Generator:   llm.NewAnthropicCompletion(cfg.Anthropic.GenerationModel, cfg.Anthropic.MaxTokens),
		Metrics:     m,
		Terms:       cfg.BusinessTerms,
		MaxExamples: cfg.Learning.MaxExamples,
	}

	// Temporal is optional for the API server: without it, edits are stored
	// but learning waits until a worker deployment exists.
	var learnClient server.LearnClient
	if tc, err := qcclient.NewClient(); err != nil {
		log.Printf("WARNING: Temporal unavailable, learn pipeline disabled: %v", err)
	} else {
		defer tc.Close()
		eng.Learn = tc
		learnClient = tc
	}

	addr := os.Getenv("QUOTECRAFT_SERVER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", server.New(eng, kn, quotes, learnClient))

	log.Printf("QuoteCraft server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
