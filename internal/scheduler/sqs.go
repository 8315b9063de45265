package scheduler

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/pkg/errors"

	"github.com/mumzworld-tech/logexport/internal/chain"
	"github.com/mumzworld-tech/logexport/internal/logger"
)

// SQS limits message delay to 15 minutes
const maxSQSDelay = 900 * time.Second

// SQS enqueues the next hop on a queue that triggers the function. The
// delay is handed to SQS, so the current invocation returns immediately and
// a lost invocation is redelivered instead of ending the chain.
type SQS struct {
	api      sqsiface.SQSAPI
	queueURL string
}

// NewSQS creates a scheduler that sends to queueURL
func NewSQS(api sqsiface.SQSAPI, queueURL string) *SQS {
	return &SQS{api: api, queueURL: queueURL}
}

func (s *SQS) ScheduleNext(ctx context.Context, st chain.State, delay time.Duration) error {
	if delay > maxSQSDelay {
		delay = maxSQSDelay
	}

	body, err := st.Encode()
	if err != nil {
		return &RescheduleError{Target: s.queueURL, err: errors.WithStack(err)}
	}

	resp, err := s.api.SendMessageWithContext(ctx, &sqs.SendMessageInput{
		QueueUrl:     aws.String(s.queueURL),
		MessageBody:  aws.String(string(body)),
		DelaySeconds: aws.Int64(int64((delay + time.Second - 1) / time.Second)),
	})
	if err != nil {
		return &RescheduleError{Target: s.queueURL, err: errors.WithStack(err)}
	}

	logger.Infof("Queued next hop %s (delay %v, %d log group(s) remaining)", aws.StringValue(resp.MessageId), delay, st.LogGroups.Len())
	return nil
}
