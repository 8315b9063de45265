package exporttask

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs/cloudwatchlogsiface"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mumzworld-tech/logexport/internal/logger"
)

// Client probes and starts CloudWatch Logs export tasks
type Client struct {
	api      cloudwatchlogsiface.CloudWatchLogsAPI
	taskName func() string
}

// NewClient creates a client over the given CloudWatch Logs API
func NewClient(api cloudwatchlogsiface.CloudWatchLogsAPI) *Client {
	return &Client{
		api:      api,
		taskName: uuid.NewString,
	}
}

// Status returns the status of the task with the given id. found is false
// when CloudWatch Logs reports no such task.
func (c *Client) Status(ctx context.Context, taskID string) (status Status, found bool, err error) {
	resp, err := c.api.DescribeExportTasksWithContext(ctx, &cloudwatchlogs.DescribeExportTasksInput{
		TaskId: aws.String(taskID),
	})
	if err != nil {
		return "", false, &UpstreamQueryError{TaskID: taskID, err: errors.WithStack(err)}
	}

	for _, task := range resp.ExportTasks {
		if task == nil || task.Status == nil {
			continue
		}
		status = Status(aws.StringValue(task.Status.Code))
		logger.Debugf("Export task %s status: %s (%s)", taskID, status, aws.StringValue(task.Status.Message))
		return status, true, nil
	}

	return "", false, nil
}

// AnyRunning reports whether the account has an export in RUNNING state
func (c *Client) AnyRunning(ctx context.Context) (bool, error) {
	resp, err := c.api.DescribeExportTasksWithContext(ctx, &cloudwatchlogs.DescribeExportTasksInput{
		StatusCode: aws.String(string(StatusRunning)),
		Limit:      aws.Int64(1),
	})
	if err != nil {
		return false, &UpstreamQueryError{err: errors.WithStack(err)}
	}
	return len(resp.ExportTasks) > 0, nil
}

// Create starts an export task under a random task name and returns its id
func (c *Client) Create(ctx context.Context, req Request) (string, error) {
	name := c.taskName()

	resp, err := c.api.CreateExportTaskWithContext(ctx, &cloudwatchlogs.CreateExportTaskInput{
		Destination:       aws.String(req.Destination),
		DestinationPrefix: aws.String(req.DestinationPrefix),
		LogGroupName:      aws.String(req.LogGroupName),
		From:              aws.Int64(req.From),
		To:                aws.Int64(req.To),
		TaskName:          aws.String(name),
	})
	if err != nil {
		return "", &ExportCreationError{
			LogGroupName: req.LogGroupName,
			Destination:  req.Destination,
			err:          errors.WithStack(err),
		}
	}

	taskID := aws.StringValue(resp.TaskId)
	logger.Infof("Created export task %s (%s) for %s -> s3://%s/%s", taskID, name, req.LogGroupName, req.Destination, req.DestinationPrefix)
	return taskID, nil
}
