package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs"
	awslambda "github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/sqs"

	"github.com/mumzworld-tech/logexport/internal/config"
	"github.com/mumzworld-tech/logexport/internal/exporttask"
	"github.com/mumzworld-tech/logexport/internal/handler"
	"github.com/mumzworld-tech/logexport/internal/logger"
	"github.com/mumzworld-tech/logexport/internal/orchestrator"
	"github.com/mumzworld-tech/logexport/internal/scheduler"
)

func main() {
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if !logger.SetLevel(cfg.LogLevel) {
		logger.Errorf("Unknown LOG_LEVEL %q, keeping info", cfg.LogLevel)
	}

	// Validate required config
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	sess, err := session.NewSession()
	if err != nil {
		logger.Fatalf("Failed to create AWS session: %v", err)
	}

	var next scheduler.Scheduler
	switch cfg.Scheduler {
	case config.SchedulerSQS:
		next = scheduler.NewSQS(sqs.New(sess), cfg.QueueURL)
	default:
		next = scheduler.NewLambda(awslambda.New(sess), cfg.FunctionName)
	}

	tasks := exporttask.NewClient(cloudwatchlogs.New(sess))
	h := handler.New(orchestrator.New(cfg, tasks, tasks, next))

	logger.Infof("Starting export handler (scheduler: %s, poll delay: %v)", cfg.Scheduler, cfg.PollDelay)
	lambda.Start(h.Handle)
}
