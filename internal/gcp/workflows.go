package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"

	"github.com/Lllllllleong/documentrouter/internal/models"
)

// WorkflowTrigger starts a Cloud Workflows execution for each handed-off thread.
type WorkflowTrigger struct {
	client    *executions.Client
	projectID string
	location  string
	id        string
}

// NewWorkflowTrigger creates the executions client for one workflow.
func NewWorkflowTrigger(ctx context.Context, projectID, location, workflowID string) (*WorkflowTrigger, error) {
	if projectID == "" || location == "" || workflowID == "" {
		return nil, fmt.Errorf("NewWorkflowTrigger: projectID, location and workflowID cannot be empty")
	}
	client, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	return &WorkflowTrigger{client: client, projectID: projectID, location: location, id: workflowID}, nil
}

// Trigger starts one execution with payload as its argument and returns the
// execution name.
func (w *WorkflowTrigger) Trigger(ctx context.Context, payload models.HandoffPayload) (string, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", w.projectID, w.location, w.id),
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	exec, err := w.client.CreateExecution(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return exec.GetName(), nil
}

// Close closes the executions client.
func (w *WorkflowTrigger) Close() error {
	return w.client.Close()
}
