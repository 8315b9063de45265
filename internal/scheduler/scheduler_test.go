package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/lambda/lambdaiface"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mumzworld-tech/logexport/internal/chain"
)

type mockLambdaAPI struct {
	lambdaiface.LambdaAPI
	mock.Mock
}

func (m *mockLambdaAPI) InvokeWithContext(ctx aws.Context, in *lambda.InvokeInput, _ ...request.Option) (*lambda.InvokeOutput, error) {
	args := m.Called(in)
	out, _ := args.Get(0).(*lambda.InvokeOutput)
	return out, args.Error(1)
}

type mockSQSAPI struct {
	sqsiface.SQSAPI
	mock.Mock
}

func (m *mockSQSAPI) SendMessageWithContext(ctx aws.Context, in *sqs.SendMessageInput, _ ...request.Option) (*sqs.SendMessageOutput, error) {
	args := m.Called(in)
	out, _ := args.Get(0).(*sqs.SendMessageOutput)
	return out, args.Error(1)
}

func testState() chain.State {
	return chain.State{
		BucketName: "b",
		LogGroups:  chain.Many("/c/d"),
		Prefix:     "/exports",
		TaskID:     "t-1",
	}
}

func TestSleep(t *testing.T) {
	start := time.Now()
	require.NoError(t, Sleep(context.Background(), 20*time.Millisecond))
	assert.True(t, time.Since(start) >= 20*time.Millisecond)

	require.NoError(t, Sleep(context.Background(), 0))
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLambda_ScheduleNext(t *testing.T) {
	api := &mockLambdaAPI{}
	api.On("InvokeWithContext", mock.Anything).Return(&lambda.InvokeOutput{StatusCode: aws.Int64(202)}, nil)

	var slept time.Duration
	s := NewLambda(api, "log-exporter")
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = d
		return nil
	}

	require.NoError(t, s.ScheduleNext(context.Background(), testState(), 10*time.Second))
	assert.Equal(t, 10*time.Second, slept)

	in := api.Calls[0].Arguments.Get(0).(*lambda.InvokeInput)
	assert.Equal(t, "log-exporter", aws.StringValue(in.FunctionName))
	assert.Equal(t, lambda.InvocationTypeEvent, aws.StringValue(in.InvocationType))
	assert.JSONEq(t, `{"bucketName":"b","logGroupList":["/c/d"],"prefix":"/exports","taskId":"t-1"}`, string(in.Payload))
}

func TestLambda_ScheduleNext_NoDelaySkipsSleep(t *testing.T) {
	api := &mockLambdaAPI{}
	api.On("InvokeWithContext", mock.Anything).Return(&lambda.InvokeOutput{StatusCode: aws.Int64(202)}, nil)

	s := NewLambda(api, "fn")
	s.sleep = func(context.Context, time.Duration) error {
		t.Fatal("sleep should not be called")
		return nil
	}

	require.NoError(t, s.ScheduleNext(context.Background(), testState(), 0))
	api.AssertNumberOfCalls(t, "InvokeWithContext", 1)
}

func TestLambda_ScheduleNext_InvokeRejected(t *testing.T) {
	api := &mockLambdaAPI{}
	api.On("InvokeWithContext", mock.Anything).Return(nil, awserr.New(lambda.ErrCodeTooManyRequestsException, "Rate Exceeded.", nil))

	err := NewLambda(api, "fn").ScheduleNext(context.Background(), testState(), 0)

	var rerr *RescheduleError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "fn", rerr.Target)

	var aerr awserr.Error
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, lambda.ErrCodeTooManyRequestsException, aerr.Code())
}

func TestLambda_ScheduleNext_UnexpectedStatus(t *testing.T) {
	api := &mockLambdaAPI{}
	api.On("InvokeWithContext", mock.Anything).Return(&lambda.InvokeOutput{StatusCode: aws.Int64(200)}, nil)

	err := NewLambda(api, "fn").ScheduleNext(context.Background(), testState(), 0)

	var rerr *RescheduleError
	assert.True(t, errors.As(err, &rerr))
	assert.Contains(t, err.Error(), "status 200")
}

func TestLambda_ScheduleNext_WaitInterrupted(t *testing.T) {
	api := &mockLambdaAPI{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewLambda(api, "fn").ScheduleNext(ctx, testState(), time.Hour)

	var rerr *RescheduleError
	require.True(t, errors.As(err, &rerr))
	assert.ErrorIs(t, err, context.Canceled)
	api.AssertNotCalled(t, "InvokeWithContext", mock.Anything)
}

func TestSQS_ScheduleNext(t *testing.T) {
	api := &mockSQSAPI{}
	api.On("SendMessageWithContext", mock.Anything).Return(&sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil)

	require.NoError(t, NewSQS(api, "https://queue").ScheduleNext(context.Background(), testState(), 1500*time.Millisecond))

	in := api.Calls[0].Arguments.Get(0).(*sqs.SendMessageInput)
	assert.Equal(t, "https://queue", aws.StringValue(in.QueueUrl))
	assert.Equal(t, int64(2), aws.Int64Value(in.DelaySeconds))

	var st chain.State
	require.NoError(t, json.Unmarshal([]byte(aws.StringValue(in.MessageBody)), &st))
	assert.Equal(t, "t-1", st.TaskID)
	assert.Equal(t, []string{"/c/d"}, st.LogGroups.Names())
}

func TestSQS_ScheduleNext_DelayCapped(t *testing.T) {
	api := &mockSQSAPI{}
	api.On("SendMessageWithContext", mock.Anything).Return(&sqs.SendMessageOutput{}, nil)

	require.NoError(t, NewSQS(api, "q").ScheduleNext(context.Background(), testState(), time.Hour))

	in := api.Calls[0].Arguments.Get(0).(*sqs.SendMessageInput)
	assert.Equal(t, int64(900), aws.Int64Value(in.DelaySeconds))
}

func TestSQS_ScheduleNext_Error(t *testing.T) {
	api := &mockSQSAPI{}
	api.On("SendMessageWithContext", mock.Anything).Return(nil, errors.New("access denied"))

	err := NewSQS(api, "q").ScheduleNext(context.Background(), testState(), 0)

	var rerr *RescheduleError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "q", rerr.Target)
}
