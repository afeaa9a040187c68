package main

import (
	"context"
	"encoding/json"
	"log"

	"fitplan"
	"fitplan/inference"
	"fitplan/inference/bedrock"
	"fitplan/pipeline"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/google/uuid"
	"github.com/joeshaw/envdecode"
)

// Params is the Lambda invocation payload: the raw plan request body.
type Params struct {
	Body json.RawMessage `json:"body"`
}

// Results carries the outcome plus the HTTP status a fronting gateway should
// use.
type Results struct {
	StatusCode int             `json:"statusCode"`
	Outcome    fitplan.Outcome `json:"outcome"`
}

func main() {
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

	fn := func(ctx context.Context, params Params) (Results, error) {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return Results{}, err
		}
		runner := bedrock.NewRunner(bedrockruntime.NewFromConfig(awsCfg))
		gateway := inference.NewGateway(runner, modelCfg.ModelID)

		stageLog := fitplan.NewStdoutStageLogger()
		orch := pipeline.NewOrchestrator(
			pipeline.NewGuidanceStage(gateway, modelCfg.GuidanceMaxTokens, svcCfg.GuidanceTimeout, svcCfg.GuidanceRetries, stageLog),
			pipeline.NewPlanStage(gateway, modelCfg.PlanMaxTokens, svcCfg.PlanTimeout, stageLog),
		)

		ctx = fitplan.WithRequestID(ctx, uuid.NewString())
		res := orch.Handle(ctx, params.Body)
		return Results{StatusCode: res.HTTPStatus, Outcome: res.Outcome}, nil
	}

	lambda.Start(fn)
}
