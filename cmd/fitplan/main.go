package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"fitplan"
	"fitplan/httpapi"
	"fitplan/inference"
	"fitplan/inference/mock"
	"fitplan/inference/workersai"
	"fitplan/pipeline"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()

	var modelCfg fitplan.ModelConfig
	if err := envdecode.Decode(&modelCfg); err != nil {
		log.Fatalf("Failed to decode model config: %s", err)
	}
	var svcCfg fitplan.ServiceConfig
	if err := envdecode.Decode(&svcCfg); err != nil {
		log.Fatalf("Failed to decode service config: %s", err)
	}
	if err := svcCfg.Validate(); err != nil {
		log.Fatalf("Invalid service config: %s", err)
	}

	runner, err := buildRunner()
	if err != nil {
		log.Fatalf("Failed to build inference runner: %s", err)
	}

	gateway := inference.NewGateway(runner, modelCfg.ModelID)
	stageLog := fitplan.NewStdoutStageLogger()
	guidance := pipeline.NewGuidanceStage(gateway, modelCfg.GuidanceMaxTokens, svcCfg.GuidanceTimeout, svcCfg.GuidanceRetries, stageLog)
	plan := pipeline.NewPlanStage(gateway, modelCfg.PlanMaxTokens, svcCfg.PlanTimeout, stageLog)

	var handler pipeline.Handler
	if os.Getenv("OTEL_ENABLED") == "true" {
		ctx := context.Background()
		tracerProvider, meterProvider, shutdown, err := fitplan.InitOtel(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize otel: %s", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Error("SETUP: Otel shutdown failed", "error", err)
			}
		}()
		handler = pipeline.NewInstrumentedOrchestrator(
			guidance, plan,
			tracerProvider.Tracer(fitplan.TracerName),
			meterProvider.Meter(fitplan.TracerName),
		)
	} else {
		handler = pipeline.NewOrchestrator(guidance, plan)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", svcCfg.Port),
		Handler:      httpapi.NewServer(handler).Router(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: fitplan.InferenceBudget + 5*time.Second,
	}

	slog.Info("SETUP: Listening", "port", svcCfg.Port, "model", modelCfg.ModelID)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server stopped: %s", err)
	}
}

// buildRunner picks the Workers AI backend when credentials are present and
// falls back to the deterministic mock for local runs.
func buildRunner() (inference.Runner, error) {
	var cfg fitplan.WorkersAIConfig
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, err
	}
	if cfg.AccountID != "" && cfg.APIToken != "" {
		return workersai.NewRunner(workersai.RunnerOpts{
			AccountID: cfg.AccountID,
			APIToken:  cfg.APIToken,
			BaseURL:   cfg.BaseURL,
		})
	}
	slog.Warn("SETUP: Using mock inference runner; responses are scripted")
	return mock.NewRunner(mock.ValidGuidance(), mock.ValidWeeklyPlan()), nil
}
