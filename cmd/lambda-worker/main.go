package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"forensics-backend/internal/bootstrap"
	"forensics-backend/internal/jobs"
	"forensics-backend/internal/shared/config"
	"forensics-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

func initApp() {
	cfg := config.Load()
	built, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	app = built
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}

	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		err := workerproc.HandleMessage(ctx, app, record.Body)
		if err == nil {
			continue
		}
		if discardable(err) {
			// Redelivery can never succeed; consume the message.
			log.Printf("discarding message %s: %v", record.MessageId, err)
			continue
		}
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}

	return events.SQSEventResponse{BatchItemFailures: failures}, nil
}

// discardable reports whether a message is a dead end: a payload that does
// not parse, or a job record that no longer exists.
func discardable(err error) bool {
	if errors.Is(err, jobs.ErrNotFound) {
		return true
	}
	var emptyErr workerproc.ErrEmptyBody
	var decodeErr workerproc.ErrDecode
	var missingErr workerproc.ErrMissingJobID
	return errors.As(err, &emptyErr) || errors.As(err, &decodeErr) || errors.As(err, &missingErr)
}

func main() {
	lambda.Start(handler)
}
