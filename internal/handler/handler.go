package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mumzworld-tech/logexport/internal/chain"
	"github.com/mumzworld-tech/logexport/internal/logger"
	"github.com/mumzworld-tech/logexport/internal/orchestrator"
)

// Succeeded is returned to Lambda when a hop completes
const Succeeded = "succeed"

const sqsEventSource = "aws:sqs"

// Runner executes one hop of the chain
type Runner interface {
	Run(ctx context.Context, st chain.State) (orchestrator.State, error)
}

// Handler is the Lambda entry point. It accepts a chain payload directly or
// an SQS batch whose message bodies are chain payloads.
//
// A batch is answered with an events.SQSEventResponse naming only the failed
// messages, so the event source mapping must enable ReportBatchItemFailures.
// Without it Lambda deletes the whole batch on success.
type Handler struct {
	runner Runner
}

func New(r Runner) *Handler {
	return &Handler{runner: r}
}

func (h *Handler) Handle(ctx context.Context, event json.RawMessage) (interface{}, error) {
	requestID := ""
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		requestID = lc.AwsRequestID
	}
	log := logger.With(zap.String("request_id", requestID))
	log.Info("Start function", zap.ByteString("event", compact(event)))

	if records, ok := sqsRecords(event); ok {
		return h.batch(ctx, log, records), nil
	}

	if err := h.hop(ctx, log, event); err != nil {
		return nil, err
	}

	log.Info("Finish function")
	return Succeeded, nil
}

// batch runs every record and reports the failed ones so that only those
// are redelivered. A record whose hop succeeded has already created its
// export and queued the next hop.
func (h *Handler) batch(ctx context.Context, log *zap.Logger, records []events.SQSMessage) events.SQSEventResponse {
	resp := events.SQSEventResponse{BatchItemFailures: []events.SQSBatchItemFailure{}}
	for _, r := range records {
		rlog := log.With(zap.String("message_id", r.MessageId))
		rlog.Info("Processing queued hop")
		if err := h.hop(ctx, rlog, []byte(r.Body)); err != nil {
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: r.MessageId})
		}
	}

	log.Info("Finish function", zap.Int("records", len(records)), zap.Int("failed", len(resp.BatchItemFailures)))
	return resp
}

func (h *Handler) hop(ctx context.Context, log *zap.Logger, payload []byte) error {
	st, err := chain.Decode(payload)
	if err != nil {
		log.Error("Rejected payload", zap.Error(err))
		return err
	}

	final, err := h.runner.Run(ctx, st)
	if err != nil {
		// %+v keeps the stack trace recorded when the AWS call failed
		log.Error("Hop failed", zap.String("state", final.String()), zap.String("error", errorVerbose(err)))
		return err
	}

	log.Info("Hop finished", zap.String("state", final.String()), zap.Int("received", st.LogGroups.Len()))
	return nil
}

// sqsRecords recognises an SQS trigger batch
func sqsRecords(event json.RawMessage) ([]events.SQSMessage, bool) {
	var batch events.SQSEvent
	if err := json.Unmarshal(event, &batch); err != nil || len(batch.Records) == 0 {
		return nil, false
	}
	for _, r := range batch.Records {
		if r.EventSource != sqsEventSource {
			return nil, false
		}
	}
	return batch.Records, true
}

func compact(event json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, event); err != nil {
		return event
	}
	return buf.Bytes()
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// errorVerbose renders err followed by the outermost recorded stack trace
func errorVerbose(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if st, ok := e.(stackTracer); ok {
			return fmt.Sprintf("%s%+v", err.Error(), st.StackTrace())
		}
	}
	return err.Error()
}
