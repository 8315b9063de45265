package exporttask

import (
	"fmt"

	"github.com/aws/aws-sdk-go/service/cloudwatchlogs"
)

// Status is the lifecycle code CloudWatch Logs reports for an export task
type Status string

const (
	StatusPending       Status = cloudwatchlogs.ExportTaskStatusCodePending
	StatusPendingCancel Status = cloudwatchlogs.ExportTaskStatusCodePendingCancel
	StatusRunning       Status = cloudwatchlogs.ExportTaskStatusCodeRunning
	StatusCompleted     Status = cloudwatchlogs.ExportTaskStatusCodeCompleted
	StatusCancelled     Status = cloudwatchlogs.ExportTaskStatusCodeCancelled
	StatusFailed        Status = cloudwatchlogs.ExportTaskStatusCodeFailed
)

// Active reports whether the task still holds the account's export slot
func (s Status) Active() bool {
	switch s {
	case StatusPending, StatusPendingCancel, StatusRunning:
		return true
	default:
		return false
	}
}

// Request describes one export of a log group over [From, To)
type Request struct {
	LogGroupName      string
	Destination       string // S3 bucket
	DestinationPrefix string
	From              int64 // epoch milliseconds, inclusive
	To                int64 // epoch milliseconds, exclusive
}

// UpstreamQueryError wraps a failed DescribeExportTasks call
type UpstreamQueryError struct {
	TaskID string
	err    error
}

func (e *UpstreamQueryError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("describe export tasks: %v", e.err)
	}
	return fmt.Sprintf("describe export task %s: %v", e.TaskID, e.err)
}

func (e *UpstreamQueryError) Unwrap() error {
	return e.err
}

// ExportCreationError wraps a failed CreateExportTask call
type ExportCreationError struct {
	LogGroupName string
	Destination  string
	err          error
}

func (e *ExportCreationError) Error() string {
	return fmt.Sprintf("create export task for %s to s3://%s: %v", e.LogGroupName, e.Destination, e.err)
}

func (e *ExportCreationError) Unwrap() error {
	return e.err
}
