package queue

import (
	"encoding/json"
	"time"
)

// messageVersion tags the wire schema so a consumer fleet can be upgraded
// ahead of producers.
const messageVersion = 1

// Message is the payload handed to queue consumers. It deliberately carries
// only identifiers; workers resolve current job state from the record.
type Message struct {
	JobID      string `json:"job_id"`
	RequestID  string `json:"request_id"`
	EnqueuedAt string `json:"enqueued_at"`
	Version    int    `json:"version"`
}

// NewMessage builds a message for the given job, stamped with the enqueue
// time and current schema version.
func NewMessage(jobID, requestID string) Message {
	return Message{
		JobID:      jobID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    messageVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
