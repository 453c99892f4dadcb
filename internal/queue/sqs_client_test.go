package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/pradeep0711/FIle-Uploader/internal/uploads"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestUploadNotifierSendsMessage(t *testing.T) {
	api := &fakeSQS{}
	n := NewUploadNotifier(NewSQSClientWithAPI(api, "https://sqs.us-east-1.amazonaws.com/1/uploads"), "files")

	err := n.NotifyUpload(context.Background(), uploads.Outcome{
		Key:        "uploads/a.txt",
		SizeBytes:  7,
		MIMEType:   "text/plain",
		RequestID:  "req-1",
		UploadedAt: time.Date(2026, 1, 30, 22, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("NotifyUpload: %v", err)
	}
	if len(api.inputs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(api.inputs))
	}
	if got := aws.ToString(api.inputs[0].QueueUrl); got != "https://sqs.us-east-1.amazonaws.com/1/uploads" {
		t.Fatalf("queue url = %q", got)
	}

	msg, err := DecodeMessage([]byte(aws.ToString(api.inputs[0].MessageBody)))
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	want := Message{
		ObjectKey:  "uploads/a.txt",
		Bucket:     "files",
		SizeBytes:  7,
		MIMEType:   "text/plain",
		RequestID:  "req-1",
		UploadedAt: "2026-01-30T22:00:00Z",
		Version:    MessageVersion,
	}
	if msg != want {
		t.Fatalf("message = %+v, want %+v", msg, want)
	}
}

func TestSQSClientSendError(t *testing.T) {
	boom := errors.New("throttled")
	c := NewSQSClientWithAPI(&fakeSQS{err: boom}, "q")
	if err := c.Send(context.Background(), Message{ObjectKey: "k"}); !errors.Is(err, boom) {
		t.Fatalf("Send error = %v, want %v", err, boom)
	}
}

func TestNewSQSClientRequiresURL(t *testing.T) {
	if _, err := NewSQSClient(context.Background(), "  ", "us-east-1"); err == nil {
		t.Fatal("expected error for empty queue url")
	}
}
