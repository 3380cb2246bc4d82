// Package client provides Temporal client utilities.
package client

import (
	"context"
	"errors"
	"fmt"
	"os"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"

	"github.com/tinkerloft/quotecraft/internal/workflow"
)

// TaskQueue is the task queue for learn workflows.
const TaskQueue = "quotecraft-learn"

// ErrInvalidStatusFilter is returned when a run listing asks for an unknown
// workflow execution status.
var ErrInvalidStatusFilter = errors.New("invalid status filter")

// validWorkflowStatuses defines allowed Temporal workflow execution statuses.
var validWorkflowStatuses = map[string]bool{
	"Running":    true,
	"Completed":  true,
	"Failed":     true,
	"Canceled":   true,
	"Terminated": true,
	"TimedOut":   true,
}

// Client wraps the Temporal client to reduce connection churn.
type Client struct {
	temporal client.Client
}

// NewClient creates a new Temporal client wrapper.
func NewClient() (*Client, error) {
	temporalAddr := os.Getenv("TEMPORAL_ADDRESS")
	if temporalAddr == "" {
		temporalAddr = "localhost:7233"
	}

	c, err := client.Dial(client.Options{
		HostPort: temporalAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	return &Client{temporal: c}, nil
}

// Close closes the underlying Temporal client connection.
func (c *Client) Close() {
	c.temporal.Close()
}

// LearnWorkflowID returns the deterministic workflow ID for a quote's learn
// run. One quote gets at most one run; the ID carries the dedup.
func LearnWorkflowID(quoteID string) string {
	return "learn-" + quoteID
}

// StartLearn starts the learn workflow for an edited quote. Starting twice
// for the same quote is not an error: the duplicate start is absorbed and
// the original run proceeds.
func (c *Client) StartLearn(ctx context.Context, contractorID, quoteID string) error {
	options := client.StartWorkflowOptions{
		ID:                    LearnWorkflowID(quoteID),
		TaskQueue:             TaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}

	_, err := c.temporal.ExecuteWorkflow(ctx, options, workflow.Learn, workflow.LearnInput{
		ContractorID: contractorID,
		QuoteID:      quoteID,
	})
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			return nil
		}
		return fmt.Errorf("failed to start learn workflow: %w", err)
	}
	return nil
}

// GetLearnStatus queries the progress of a quote's learn run.
func (c *Client) GetLearnStatus(ctx context.Context, quoteID string) (workflow.LearnStatus, error) {
	resp, err := c.temporal.QueryWorkflow(ctx, LearnWorkflowID(quoteID), "", workflow.QueryLearnStatus)
	if err != nil {
		return "", fmt.Errorf("failed to query learn workflow: %w", err)
	}

	var status workflow.LearnStatus
	if err := resp.Get(&status); err != nil {
		return "", fmt.Errorf("failed to decode learn status: %w", err)
	}
	return status, nil
}

// WaitForLearn blocks until the quote's learn run finishes.
func (c *Client) WaitForLearn(ctx context.Context, quoteID string) error {
	run := c.temporal.GetWorkflow(ctx, LearnWorkflowID(quoteID), "")
	if err := run.Get(ctx, nil); err != nil {
		return fmt.Errorf("learn workflow failed: %w", err)
	}
	return nil
}

// LearnRunInfo contains summary information about a learn run.
type LearnRunInfo struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	StartTime  string `json:"start_time"`
}

// ListLearnRuns lists learn workflows matching the given status filter with
// pagination. If limit is 0, all matching runs are returned.
func (c *Client) ListLearnRuns(ctx context.Context, statusFilter string, limit int) ([]LearnRunInfo, error) {
	query := `WorkflowType = "Learn"`
	if statusFilter != "" {
		if !validWorkflowStatuses[statusFilter] {
			return nil, fmt.Errorf("%w: %q (valid: Running, Completed, Failed, Canceled, Terminated, TimedOut)", ErrInvalidStatusFilter, statusFilter)
		}
		query += fmt.Sprintf(` AND ExecutionStatus = "%s"`, statusFilter)
	}

	var runs []LearnRunInfo
	var nextPageToken []byte

	for {
		resp, err := c.temporal.ListWorkflow(ctx, &workflowservice.ListWorkflowExecutionsRequest{
			Query:         query,
			NextPageToken: nextPageToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list learn workflows: %w", err)
		}

		for _, wf := range resp.Executions {
			if limit > 0 && len(runs) >= limit {
				break
			}
			runs = append(runs, LearnRunInfo{
				WorkflowID: wf.Execution.WorkflowId,
				RunID:      wf.Execution.RunId,
				Status:     wf.Status.String(),
				StartTime:  wf.StartTime.AsTime().Format("2006-01-02 15:04:05"),
			})
		}

		nextPageToken = resp.NextPageToken
		if len(nextPageToken) == 0 || (limit > 0 && len(runs) >= limit) {
			break
		}
	}

	return runs, nil
}
