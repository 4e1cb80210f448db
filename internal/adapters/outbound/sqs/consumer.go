// Package sqs consumes block event messages from an AWS SQS queue.
package sqs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/archon-research/alchemist-indexer/internal/ports/outbound"
)

// maxBatch is the SQS limit on messages per receive.
const maxBatch = 10

// sqsAPI defines the subset of SQS operations needed by the Consumer.
type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Compile-time check that Consumer implements outbound.QueueConsumer
var _ outbound.QueueConsumer = (*Consumer)(nil)

// Config holds SQS consumer configuration.
type Config struct {
	// QueueURL is the URL of the SQS queue to consume from.
	QueueURL string

	// WaitTimeSeconds enables long polling. Max is 20 seconds.
	WaitTimeSeconds int32

	// VisibilityTimeout overrides the queue's default when non-zero. A
	// message that is not deleted becomes visible again after this long.
	VisibilityTimeout int32
}

// ConfigDefaults returns sensible defaults for SQS consumer configuration.
func ConfigDefaults() Config {
	return Config{
		WaitTimeSeconds: 20,
	}
}

// Consumer is an SQS implementation of the outbound.QueueConsumer port.
type Consumer struct {
	client sqsAPI
	config Config
	logger *slog.Logger
}

// NewConsumer creates a new SQS consumer. optFns customise the SQS client, for
// example to point it at a local endpoint.
func NewConsumer(cfg aws.Config, sqsConfig Config, logger *slog.Logger, optFns ...func(*sqs.Options)) (*Consumer, error) {
	return newConsumer(sqs.NewFromConfig(cfg, optFns...), sqsConfig, logger)
}

func newConsumer(client sqsAPI, sqsConfig Config, logger *slog.Logger) (*Consumer, error) {
	if sqsConfig.QueueURL == "" {
		return nil, fmt.Errorf("queue URL is required")
	}
	if sqsConfig.WaitTimeSeconds < 0 || sqsConfig.WaitTimeSeconds > 20 {
		return nil, fmt.Errorf("wait time must be between 0 and 20 seconds, got %d", sqsConfig.WaitTimeSeconds)
	}
	if sqsConfig.WaitTimeSeconds == 0 {
		sqsConfig.WaitTimeSeconds = ConfigDefaults().WaitTimeSeconds
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		client: client,
		config: sqsConfig,
		logger: logger.With("component", "sqs-consumer"),
	}, nil
}

// ReceiveMessages fetches up to maxMessages from the queue, clamped to [1, 10].
func (c *Consumer) ReceiveMessages(ctx context.Context, maxMessages int) ([]outbound.QueueMessage, error) {
	maxMessages = min(max(maxMessages, 1), maxBatch)

	result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.config.QueueURL),
		MaxNumberOfMessages: int32(maxMessages),
		WaitTimeSeconds:     c.config.WaitTimeSeconds,
		VisibilityTimeout:   c.config.VisibilityTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}

	messages := make([]outbound.QueueMessage, 0, len(result.Messages))
	for _, msg := range result.Messages {
		if msg.MessageId == nil || msg.ReceiptHandle == nil || msg.Body == nil {
			c.logger.Warn("dropping incomplete SQS message", "messageId", aws.ToString(msg.MessageId))
			continue
		}
		messages = append(messages, outbound.QueueMessage{
			MessageID:     *msg.MessageId,
			ReceiptHandle: *msg.ReceiptHandle,
			Body:          *msg.Body,
		})
	}

	if len(messages) > 0 {
		c.logger.Debug("received messages", "count", len(messages))
	}
	return messages, nil
}

// DeleteMessage removes a successfully processed message from the queue.
func (c *Consumer) DeleteMessage(ctx context.Context, receiptHandle string) error {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.config.QueueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// Close is a no-op; the SQS client holds no connection.
func (c *Consumer) Close() error {
	return nil
}
