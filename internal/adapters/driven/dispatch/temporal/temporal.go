// Package temporal dispatches ingestion as a Temporal workflow. Each
// submitted document starts IngestDocumentWorkflow, whose single activity
// runs ingestion on a worker hosted by `ragline worker`.
package temporal

import (
	"context"
	"errors"
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/logger"
)

// IngestActivityName is the registered name of the ingestion activity.
const IngestActivityName = "IngestDocument"

// activityTimeout bounds a single ingestion run.
const activityTimeout = 30 * time.Minute

// IngestInput is the workflow argument.
type IngestInput struct {
	DocumentID string
	// MaxAttempts caps activity attempts. One gives at-most-once.
	MaxAttempts int32
}

// IngestDocumentWorkflow runs the ingestion activity once per attempt.
// Errors that are not transient are marked non-retryable by the activity.
func IngestDocumentWorkflow(ctx workflow.Context, input IngestInput) error {
	attempts := input.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: activityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    attempts,
		},
	})
	return workflow.ExecuteActivity(ctx, IngestActivityName, input.DocumentID).Get(ctx, nil)
}

// Activities holds the ingestion functions the worker calls.
type Activities struct {
	Run   driven.IngestFunc
	Retry driven.IngestFunc
}

// IngestDocument runs ingestion. Attempts after the first use Retry so a
// document left failed by the previous attempt is reset.
func (a *Activities) IngestDocument(ctx context.Context, documentID string) error {
	run := a.Run
	if activity.GetInfo(ctx).Attempt > 1 && a.Retry != nil {
		run = a.Retry
	}
	err := run(ctx, documentID)
	if err == nil {
		return nil
	}
	if !domain.IsRetryable(err) {
		return temporal.NewNonRetryableApplicationError(err.Error(), errorType(err), err)
	}
	return err
}

func errorType(err error) string {
	var ingErr *domain.IngestionError
	if errors.As(err, &ingErr) {
		return "ingestion_" + string(ingErr.Stage)
	}
	return "ingestion"
}

// Register adds the workflow and activity to a worker.
func Register(w worker.Registry, acts *Activities) {
	w.RegisterWorkflow(IngestDocumentWorkflow)
	w.RegisterActivityWithOptions(acts.IngestDocument, activity.RegisterOptions{Name: IngestActivityName})
}

// StartWorker creates and starts a Temporal worker on taskQueue.
func StartWorker(c client.Client, taskQueue string, acts *Activities) (worker.Worker, error) {
	w := worker.New(c, taskQueue, worker.Options{})
	Register(w, acts)
	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}
	return w, nil
}

// Dial connects to a Temporal frontend.
func Dial(host, namespace string) (client.Client, error) {
	c, err := client.Dial(client.Options{HostPort: host, Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("temporal dial %s: %w", host, err)
	}
	return c, nil
}

var _ driven.Dispatcher = (*Dispatcher)(nil)

// Dispatcher starts one workflow per submitted document.
type Dispatcher struct {
	client      client.Client
	taskQueue   string
	maxAttempts int32
}

// NewDispatcher creates a dispatcher that owns c.
func NewDispatcher(c client.Client, taskQueue string, maxAttempts int) *Dispatcher {
	return &Dispatcher{client: c, taskQueue: taskQueue, maxAttempts: int32(maxAttempts)}
}

// WorkflowID names the workflow for a document. A document has at most
// one running ingestion workflow.
func WorkflowID(documentID string) string {
	return "ragline-ingest-" + documentID
}

// Submit starts the workflow without waiting for it.
func (d *Dispatcher) Submit(ctx context.Context, documentID string) error {
	run, err := d.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                    WorkflowID(documentID),
		TaskQueue:             d.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}, IngestDocumentWorkflow, IngestInput{DocumentID: documentID, MaxAttempts: d.maxAttempts})
	if err != nil {
		return fmt.Errorf("start ingestion workflow for %s: %w", documentID, err)
	}
	logger.Debug("temporal dispatch: started %s run %s", run.GetID(), run.GetRunID())
	return nil
}

// Close closes the client.
func (d *Dispatcher) Close() error {
	d.client.Close()
	return nil
}
