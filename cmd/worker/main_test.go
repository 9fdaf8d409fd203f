package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"forensics-backend/internal/bootstrap"
	"forensics-backend/internal/jobs"
	"forensics-backend/internal/queue"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	_ = ctx
	_ = params
	_ = optFns
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	_ = ctx
	_ = optFns
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeProcessor struct {
	err error
}

func (f fakeProcessor) ProcessJob(ctx context.Context, jobID string) error {
	_ = ctx
	_ = jobID
	return f.err
}

func testApp(err error) *bootstrap.App {
	return &bootstrap.App{JobProcessor: fakeProcessor{err: err}}
}

func sqsMessage(id, receipt, body string) sqstypes.Message {
	return sqstypes.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String(receipt),
		Body:          aws.String(body),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	body, _ := queue.EncodeMessage(queue.Message{JobID: "job-1", RequestID: "req-1", Version: 1})

	handleMessage(context.Background(), testApp(nil), client, "queue", sqsMessage("m1", "r1", string(body)))

	if len(client.deleted) != 1 || client.deleted[0] != "r1" {
		t.Fatalf("expected delete of r1, got %v", client.deleted)
	}
}

func TestWorkerKeepsMessageOnInfraFailure(t *testing.T) {
	client := &fakeSQS{}
	body, _ := queue.EncodeMessage(queue.Message{JobID: "job-2", RequestID: "req-2", Version: 1})

	handleMessage(context.Background(), testApp(errors.New("db down")), client, "queue", sqsMessage("m2", "r2", string(body)))

	if len(client.deleted) != 0 {
		t.Fatalf("expected message kept for redelivery, got deletes %v", client.deleted)
	}
}

func TestWorkerDeletesUnknownJob(t *testing.T) {
	client := &fakeSQS{}
	body, _ := queue.EncodeMessage(queue.Message{JobID: "job-3", Version: 1})
	procErr := fmt.Errorf("job lookup id=job-3: %w", jobs.ErrNotFound)

	handleMessage(context.Background(), testApp(procErr), client, "queue", sqsMessage("m3", "r3", string(body)))

	if len(client.deleted) != 1 {
		t.Fatalf("expected unknown-job message deleted, got %v", client.deleted)
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	client := &fakeSQS{}

	handleMessage(context.Background(), testApp(nil), client, "queue", sqsMessage("m4", "r4", "{bad-json"))

	if len(client.deleted) != 1 {
		t.Fatalf("expected poison message deleted, got %v", client.deleted)
	}
}

func TestWorkerDeletesOnEmptyBody(t *testing.T) {
	client := &fakeSQS{}

	handleMessage(context.Background(), testApp(nil), client, "queue", sqsMessage("m5", "r5", ""))

	if len(client.deleted) != 1 {
		t.Fatalf("expected empty message deleted, got %v", client.deleted)
	}
}

func TestWorkerDeletesOnMissingJobID(t *testing.T) {
	client := &fakeSQS{}

	handleMessage(context.Background(), testApp(nil), client, "queue", sqsMessage("m6", "r6", `{"request_id":"req-6","version":1}`))

	if len(client.deleted) != 1 {
		t.Fatalf("expected message without job id deleted, got %v", client.deleted)
	}
}
