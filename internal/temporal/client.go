// Package temporal wraps the Temporal.io Go SDK for drift's durable
// gate-run workflow (C6). Only the generic client wrapper survives from
// the teacher's version; the proof/scan/oracle workflow and activity
// definitions that used to live here were unimplemented blockchain-domain
// placeholders (see DESIGN.md) with no analog in this repository and
// were removed in favor of internal/gates/workflow.go's
// ExecuteGateRunWorkflow/RunGatesActivity, registered by drift_worker.go.
package temporal

import (
	"context"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
)

// ClientConfig contains Temporal client configuration.
type ClientConfig struct {
	HostPort  string
	Namespace string
	TaskQueue string
	Timeout   time.Duration
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HostPort:  "localhost:7233",
		Namespace: "default",
		TaskQueue: "drift-tasks",
		Timeout:   30 * time.Second,
	}
}

// Client wraps Temporal SDK client.
type Client struct {
	logger *slog.Logger
	client client.Client
	config ClientConfig
}

// NewClient creates a new Temporal client.
func NewClient(logger *slog.Logger, config ClientConfig) (*Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  config.HostPort,
		Namespace: config.Namespace,
	})
	if err != nil {
		logger.Error("failed to create Temporal client", "error", err)
		return nil, err
	}

	return &Client{
		logger: logger.With("service", "temporal"),
		client: c,
		config: config,
	}, nil
}

// ExecuteWorkflow starts a workflow execution.
func (c *Client) ExecuteWorkflow(ctx context.Context, workflowID string, workflowFn interface{}, args ...interface{}) (client.WorkflowRun, error) {
	workflowOptions := client.StartWorkflowOptions{
		ID:                       workflowID,
		TaskQueue:                c.config.TaskQueue,
		WorkflowExecutionTimeout: c.config.Timeout,
	}

	run, err := c.client.ExecuteWorkflow(ctx, workflowOptions, workflowFn, args...)
	if err != nil {
		c.logger.Error("failed to execute workflow", "workflow_id", workflowID, "error", err)
		return nil, err
	}

	c.logger.Info("workflow started", "workflow_id", workflowID)
	return run, nil
}

// GetWorkflowResult waits for workflow completion and returns result.
func (c *Client) GetWorkflowResult(ctx context.Context, workflowID string, runID string, valueType interface{}) error {
	run := c.client.GetWorkflow(ctx, workflowID, runID)
	err := run.Get(ctx, valueType)
	if err != nil {
		c.logger.Error("failed to get workflow result", "workflow_id", workflowID, "error", err)
		return err
	}
	return nil
}

// Close closes the Temporal client.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
