package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog"
	"github.com/savaki/stagectl/internal/models"
	"github.com/segmentio/ksuid"
)

// CleanupQueueFile is the local record of edge lambdas awaiting deferred cleanup
type CleanupQueueFile struct {
	Path string
}

// Init writes an empty queue file if none exists. An existing file is never
// touched.
func (f CleanupQueueFile) Init() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create directory for %s: %w", f.Path, err)
	}

	file, err := os.OpenFile(f.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", f.Path, err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(models.NewEdgeCleanup()); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", f.Path, err)
	}
	return true, nil
}

// Read returns the queued names. A missing file is an empty queue.
func (f CleanupQueueFile) Read() ([]string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Path, err)
	}

	var doc models.EdgeCleanup
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", f.Path, err)
	}
	if doc.EdgeLambdaNames == nil {
		return []string{}, nil
	}
	return doc.EdgeLambdaNames, nil
}

// QueueURL builds the SQS queue url for name in the given region and account
func QueueURL(region, account, name string) string {
	return fmt.Sprintf("https://sqs.%s.amazonaws.com/%s/%s", region, account, name)
}

// SQSAPI is the part of the SQS client used to dispatch cleanup work
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// CleanupDispatcher hands queued edge lambda names to the cleanup queue
type CleanupDispatcher struct {
	client SQSAPI
}

func NewCleanupDispatcher(client SQSAPI) *CleanupDispatcher {
	return &CleanupDispatcher{client: client}
}

// Dispatch publishes a single message holding every name. Nothing is sent
// when names is empty. Returns true if a message was sent.
func (d *CleanupDispatcher) Dispatch(ctx context.Context, queueURL string, names []string) (bool, error) {
	if len(names) == 0 {
		return false, nil
	}

	body, err := json.Marshal(models.NewEdgeCleanup(names...))
	if err != nil {
		return false, fmt.Errorf("failed to marshal cleanup message: %w", err)
	}

	runID := ksuid.New().String()
	output, err := d.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"runId": {
				DataType:    aws.String("String"),
				StringValue: aws.String(runID),
			},
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to send cleanup message to %s: %w", queueURL, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("queue_url", queueURL).
		Str("message_id", aws.ToString(output.MessageId)).
		Int("count", len(names)).
		Msg("Dispatched edge lambda cleanup")

	return true, nil
}
