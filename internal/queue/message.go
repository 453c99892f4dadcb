package queue

import (
	"encoding/json"
	"fmt"
)

// MessageVersion is the payload schema version written by this service.
const MessageVersion = 1

// Message announces one completed upload to downstream consumers.
type Message struct {
	ObjectKey  string `json:"objectKey"`
	Bucket     string `json:"bucket,omitempty"`
	SizeBytes  int64  `json:"sizeBytes"`
	MIMEType   string `json:"mimeType"`
	RequestID  string `json:"requestId,omitempty"`
	UploadedAt string `json:"uploadedAt"`
	Version    int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	if msg.ObjectKey == "" {
		return nil, fmt.Errorf("message object key is required")
	}
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
