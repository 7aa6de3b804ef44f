package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/ecletika/leadscope/internal/model"
)

const (
	// StreamName is the name of the campaign run event stream.
	StreamName = "CAMPAIGNS"

	// SubjectPrefix is the prefix for all run event subjects.
	SubjectPrefix = "camp"
)

// StreamManager handles JetStream stream operations for the run event log.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the run event stream exists with proper
// configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024, // 10GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Campaign pipeline step transitions and lead events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject for a run event.
func EventSubject(userID, runID string, eventType model.RunEventType) string {
	return fmt.Sprintf("%s.%s.%s.%s", SubjectPrefix, userID, runID, eventType)
}

// RunFilter returns the filter subject for all events of one run.
func RunFilter(userID, runID string) string {
	return fmt.Sprintf("%s.%s.%s.>", SubjectPrefix, userID, runID)
}

// PublishRunEvent publishes a run event to JetStream.
func (m *StreamManager) PublishRunEvent(ctx context.Context, event *model.RunEvent) (uint64, error) {
	subject := EventSubject(event.UserID, event.RunID, event.Type)

	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}

	return ack.Sequence, nil
}

// GetRunEvents retrieves the durable event history of one run, starting
// after the given stream sequence.
func (m *StreamManager) GetRunEvents(ctx context.Context, userID, runID string, afterSequence uint64, limit int) ([]model.RunEvent, uint64, error) {
	js := m.client.JetStream()

	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject: RunFilter(userID, runID),
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}
	if afterSequence > 0 {
		consumerConfig.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerConfig.OptStartSeq = afterSequence + 1
	}

	consumer, err := js.CreateConsumer(ctx, StreamName, consumerConfig)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch events: %w", err)
	}

	var events []model.RunEvent
	var lastSequence uint64

	for msg := range batch.Messages() {
		var event model.RunEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			continue
		}
		if meta, err := msg.Metadata(); err == nil {
			event.Sequence = meta.Sequence.Stream
			lastSequence = meta.Sequence.Stream
		}
		events = append(events, event)
	}

	if batch.Error() != nil && batch.Error() != context.DeadlineExceeded {
		return nil, 0, fmt.Errorf("batch error: %w", batch.Error())
	}

	return events, lastSequence, nil
}
