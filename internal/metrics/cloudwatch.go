package metrics

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	namespace                = "Recengine/Orchestration"
	cloudwatchTimeoutSeconds = 5
)

// Client wraps CloudWatch client for custom orchestration-health metrics
type Client struct {
	client      *cloudwatch.Client
	enabled     bool
	environment string
}

// NewClient creates a new CloudWatch metrics client, enabled only in
// production the same way the teacher gated its own metrics client.
func NewClient(ctx context.Context, environment string) (*Client, error) {
	if environment != "production" {
		log.Printf("cloudwatch metrics disabled (environment: %s)", environment)
		return &Client{
			enabled:     false,
			environment: environment,
		}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("failed to load aws config for cloudwatch: %v", err)
		return &Client{enabled: false}, nil
	}

	client := cloudwatch.NewFromConfig(cfg)
	log.Printf("cloudwatch metrics enabled (namespace: %s)", namespace)

	return &Client{
		client:      client,
		enabled:     true,
		environment: environment,
	}, nil
}

// RecordWorkflowCompletion records a terminal workflow outcome: duration,
// iteration count reached, and whether the quality threshold was met.
func (m *Client) RecordWorkflowCompletion(duration time.Duration, iterations int, metThreshold bool) {
	if !m.enabled {
		return
	}

	go func() {
		ctx := context.Background()
		dimensions := []types.Dimension{
			{
				Name:  aws.String("MetThreshold"),
				Value: aws.String(boolToString(metThreshold)),
			},
			{
				Name:  aws.String("Environment"),
				Value: aws.String(m.environment),
			},
		}

		durationMs := float64(duration.Milliseconds())
		if err := m.putMetric(ctx, "WorkflowDuration", durationMs, types.StandardUnitMilliseconds, dimensions); err != nil {
			log.Printf("failed to record WorkflowDuration metric: %v", err)
		}

		if err := m.putMetric(ctx, "WorkflowIterations", float64(iterations), types.StandardUnitCount, dimensions); err != nil {
			log.Printf("failed to record WorkflowIterations metric: %v", err)
		}
	}()
}

// RecordQualityScore records the overall quality score reached at the end
// of a single improvement iteration.
func (m *Client) RecordQualityScore(iteration int, cohesionScore, overallScore float64) {
	if !m.enabled {
		return
	}

	go func() {
		ctx := context.Background()
		dimensions := []types.Dimension{
			{
				Name:  aws.String("Environment"),
				Value: aws.String(m.environment),
			},
		}

		if err := m.putMetric(ctx, "CohesionScore", cohesionScore, types.StandardUnitNone, dimensions); err != nil {
			log.Printf("failed to record CohesionScore metric: %v", err)
		}
		if err := m.putMetric(ctx, "OverallQualityScore", overallScore, types.StandardUnitNone, dimensions); err != nil {
			log.Printf("failed to record OverallQualityScore metric: %v", err)
		}
	}()
}

// RecordErrorByKind records a single classified error, dimensioned by its
// apperrors.Kind and the recommender stage it occurred in.
func (m *Client) RecordErrorByKind(kind string, stage string) {
	if !m.enabled {
		return
	}

	go func() {
		ctx := context.Background()
		dimensions := []types.Dimension{
			{
				Name:  aws.String("Kind"),
				Value: aws.String(kind),
			},
			{
				Name:  aws.String("Stage"),
				Value: aws.String(stage),
			},
			{
				Name:  aws.String("Environment"),
				Value: aws.String(m.environment),
			},
		}

		if err := m.putMetric(ctx, "OrchestrationErrors", 1, types.StandardUnitCount, dimensions); err != nil {
			log.Printf("failed to record OrchestrationErrors metric: %v", err)
		}
	}()
}

// RecordLLMInvocation records token usage and cost for a single LLM call.
func (m *Client) RecordLLMInvocation(provider, model string, totalTokens, inputTokens, outputTokens int, costUSD float64) {
	if !m.enabled {
		return
	}

	go func() {
		ctx := context.Background()
		dimensions := []types.Dimension{
			{
				Name:  aws.String("Provider"),
				Value: aws.String(provider),
			},
			{
				Name:  aws.String("Model"),
				Value: aws.String(model),
			},
			{
				Name:  aws.String("Environment"),
				Value: aws.String(m.environment),
			},
		}

		if err := m.putMetric(ctx, "LLMTokens/Total", float64(totalTokens), types.StandardUnitCount, dimensions); err != nil {
			log.Printf("failed to record LLMTokens/Total metric: %v", err)
		}
		if err := m.putMetric(ctx, "LLMTokens/Input", float64(inputTokens), types.StandardUnitCount, dimensions); err != nil {
			log.Printf("failed to record LLMTokens/Input metric: %v", err)
		}
		if err := m.putMetric(ctx, "LLMTokens/Output", float64(outputTokens), types.StandardUnitCount, dimensions); err != nil {
			log.Printf("failed to record LLMTokens/Output metric: %v", err)
		}
		if err := m.putMetric(ctx, "LLMCostUSD", costUSD, types.StandardUnitNone, dimensions); err != nil {
			log.Printf("failed to record LLMCostUSD metric: %v", err)
		}
	}()
}

// RecordCatalogRateGateWait records time spent blocked on the process-wide
// artist-top-tracks rate gate.
func (m *Client) RecordCatalogRateGateWait(duration time.Duration) {
	if !m.enabled {
		return
	}

	go func() {
		ctx := context.Background()
		dimensions := []types.Dimension{
			{
				Name:  aws.String("Environment"),
				Value: aws.String(m.environment),
			},
		}

		waitMs := float64(duration.Milliseconds())
		if err := m.putMetric(ctx, "CatalogRateGateWaitMs", waitMs, types.StandardUnitMilliseconds, dimensions); err != nil {
			log.Printf("failed to record CatalogRateGateWaitMs metric: %v", err)
		}
	}()
}

// putMetric sends a metric to CloudWatch
func (m *Client) putMetric(
	_ context.Context,
	metricName string,
	value float64,
	unit types.StandardUnit,
	dimensions []types.Dimension,
) error {
	if !m.enabled || m.client == nil {
		return nil
	}

	timeout := time.Duration(cloudwatchTimeoutSeconds) * time.Second
	cwCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, err := m.client.PutMetricData(cwCtx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(metricName),
				Value:      aws.Float64(value),
				Unit:       unit,
				Timestamp:  aws.Time(time.Now()),
				Dimensions: dimensions,
			},
		},
	})

	return err
}

func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
