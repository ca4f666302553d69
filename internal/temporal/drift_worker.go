package temporal

import (
	"log/slog"

	"go.temporal.io/sdk/worker"

	"github.com/driftco/drift/internal/gates"
)

// WorkerConfig contains worker configuration.
type WorkerConfig struct {
	TaskQueue string
}

// RegisterGateWorkflows binds the durable gate-run workflow and its
// single activity to w, mirroring RegisterWorkflows/RegisterActivities'
// split for the teacher's proof/scan workflows. Call
// gates.RegisterActivityDeps before starting w so RunGatesActivity has a
// live Orchestrator to delegate to.
func RegisterGateWorkflows(w worker.Worker) {
	w.RegisterWorkflow(gates.ExecuteGateRunWorkflow)
	w.RegisterActivity(gates.RunGatesActivity)
}

// StartGateWorker starts a worker serving only the durable gate-run
// workflow, the shape cmd/driftw uses; it is the only worker entry point
// in this package.
func StartGateWorker(logger *slog.Logger, client *Client, config WorkerConfig) (worker.Worker, error) {
	logger.Info("starting drift gate worker", "task_queue", config.TaskQueue)

	w := worker.New(client.client, config.TaskQueue, worker.Options{})
	RegisterGateWorkflows(w)

	if err := w.Start(); err != nil {
		logger.Error("failed to start gate worker", "error", err)
		return nil, err
	}

	logger.Info("gate worker started successfully")
	return w, nil
}
