package notifications

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"moviebooking/internal/shared/config"
	"moviebooking/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	sent []*Email
}

func (m *recordingMailer) Send(_ context.Context, email *Email) error {
	m.sent = append(m.sent, email)
	return nil
}

func configFor(broker string) config.EventsConfig {
	return config.EventsConfig{Broker: broker, KafkaTopic: "booking-events", AMQPQueue: "booking-events"}
}

func confirmedEvent() *BookingEvent {
	event := NewBookingEvent(EventBookingConfirmed)
	event.Reference = "MBTEST123"
	event.MovieName = "Avengers"
	event.TheatreName = "PVR"
	event.Seats = []string{"A1", "A2"}
	event.NumberOfTickets = 2
	event.OwnerLoginName = "alice"
	event.OwnerEmail = "alice@example.com"
	event.TotalPrice = 300
	return event
}

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestHandleBookingEvent_Confirmed(t *testing.T) {
	mailer := &recordingMailer{}
	svc := NewService(mailer)

	require.NoError(t, svc.HandleBookingEvent(context.Background(), confirmedEvent()))
	require.Len(t, mailer.sent, 1)

	email := mailer.sent[0]
	assert.Equal(t, "alice@example.com", email.To)
	assert.Contains(t, email.Subject, "MBTEST123")
	assert.Contains(t, email.HTMLBody, "A1, A2")
	assert.Contains(t, email.HTMLBody, "300.00")
	require.Len(t, email.Attachments, 1)
	assert.Equal(t, "ticket_MBTEST123.png", email.Attachments[0].Filename)
	assert.True(t, bytes.HasPrefix(email.Attachments[0].Data, pngMagic))
}

func TestHandleBookingEvent_Cancelled(t *testing.T) {
	mailer := &recordingMailer{}
	svc := NewService(mailer)

	event := confirmedEvent()
	event.Type = EventBookingCancelled
	require.NoError(t, svc.HandleBookingEvent(context.Background(), event))

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].HTMLBody, "has been cancelled")
	assert.Empty(t, mailer.sent[0].Attachments)
}

func TestHandleBookingEvent_SkipsWithoutRecipient(t *testing.T) {
	mailer := &recordingMailer{}
	event := confirmedEvent()
	event.OwnerEmail = ""

	require.NoError(t, NewService(mailer).HandleBookingEvent(context.Background(), event))
	assert.Empty(t, mailer.sent)
}

func TestSendPasswordReset(t *testing.T) {
	mailer := &recordingMailer{}
	require.NoError(t, NewService(mailer).SendPasswordReset(context.Background(), "bob@example.com", "Bob", "tok-123", 30*time.Minute))

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].HTMLBody, "tok-123")
	assert.Contains(t, mailer.sent[0].HTMLBody, "30m0s")
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		event, err := ParseBookingEvent(value)
		if err != nil {
			return err
		}
		if event.Reference != "MBTEST123" {
			return errors.New("unexpected reference " + event.Reference)
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	publisher := NewKafkaPublisherWithProducer(producer, "booking-events")
	require.NoError(t, publisher.Publish(context.Background(), confirmedEvent()))

	err := publisher.Publish(context.Background(), confirmedEvent())
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	assert.NoError(t, publisher.Close())
}

type flakyService struct {
	failures int
	handled  int
}

func (s *flakyService) HandleBookingEvent(context.Context, *BookingEvent) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("smtp timeout")
	}
	s.handled++
	return nil
}

func (s *flakyService) SendPasswordReset(context.Context, string, string, string, time.Duration) error {
	return nil
}

func TestEventHandler_RetriesThenSucceeds(t *testing.T) {
	svc := &flakyService{failures: 2}
	handler := &EventHandler{service: svc, maxRetries: 3, backoff: time.Millisecond, logger: logger.GetDefault()}

	payload, err := confirmedEvent().ToJSON()
	require.NoError(t, err)

	require.NoError(t, handler.Process(context.Background(), payload))
	assert.Equal(t, 1, svc.handled)

	svc.failures = 10
	assert.Error(t, handler.Process(context.Background(), payload))

	assert.Error(t, handler.Process(context.Background(), []byte("{not json")))
}

func TestNewPublisher(t *testing.T) {
	publisher, err := NewPublisher(configFor("none"))
	require.NoError(t, err)
	assert.IsType(t, NoopPublisher{}, publisher)

	_, err = NewPublisher(configFor("carrier-pigeon"))
	assert.Error(t, err)

	consumer, err := NewConsumer(configFor(""), NewService(&recordingMailer{}))
	require.NoError(t, err)
	assert.Nil(t, consumer)
}
