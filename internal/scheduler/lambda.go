package scheduler

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/lambda/lambdaiface"
	"github.com/pkg/errors"

	"github.com/mumzworld-tech/logexport/internal/chain"
	"github.com/mumzworld-tech/logexport/internal/logger"
)

// Lambda re-invokes a function asynchronously. The delay is spent inside
// the current invocation before the request is sent.
type Lambda struct {
	api          lambdaiface.LambdaAPI
	functionName string
	sleep        func(context.Context, time.Duration) error
}

// NewLambda creates a scheduler that invokes functionName
func NewLambda(api lambdaiface.LambdaAPI, functionName string) *Lambda {
	return &Lambda{
		api:          api,
		functionName: functionName,
		sleep:        Sleep,
	}
}

func (l *Lambda) ScheduleNext(ctx context.Context, st chain.State, delay time.Duration) error {
	if delay > 0 {
		logger.Infof("Waiting %v before invoking %s", delay, l.functionName)
		if err := l.sleep(ctx, delay); err != nil {
			return &RescheduleError{Target: l.functionName, err: errors.Wrap(err, "wait interrupted")}
		}
	}

	payload, err := st.Encode()
	if err != nil {
		return &RescheduleError{Target: l.functionName, err: errors.WithStack(err)}
	}

	resp, err := l.api.InvokeWithContext(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(l.functionName),
		InvocationType: aws.String(lambda.InvocationTypeEvent),
		Payload:        payload,
	})
	if err != nil {
		return &RescheduleError{Target: l.functionName, err: errors.WithStack(err)}
	}

	// Event invocations are acknowledged with 202 Accepted
	if code := aws.Int64Value(resp.StatusCode); code != http.StatusAccepted {
		return &RescheduleError{Target: l.functionName, err: errors.Errorf("invoke returned status %d", code)}
	}

	logger.Infof("Invoked %s with %d log group(s) remaining", l.functionName, st.LogGroups.Len())
	return nil
}
