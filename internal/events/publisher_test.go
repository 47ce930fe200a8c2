package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"ebook-storefront/internal/domain"
)

func TestNewEnvelope_OrderPaid(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	o := domain.Order{
		ID:        "order-1",
		UserID:    "user-1",
		PaymentID: "pi_1",
		Total:     1998,
		Currency:  "usd",
		Items:     []domain.OrderItem{{BookID: "a"}, {BookID: "b"}},
	}

	env, err := newEnvelope("OrderPaid", o.ID, orderPaidPayload(o), now)
	require.NoError(t, err)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, "order-1", env.PartitionKey)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, producerName, env.Producer)

	var payload OrderPaid
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "19.98", payload.Total)
	assert.Equal(t, []string{"a", "b"}, payload.BookIDs)
}

func TestLogPublisher_WritesVerificationLink(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(log.New(&buf, "", 0))

	require.NoError(t, p.SendVerificationLink(context.Background(), "reader@example.com", "https://app/verify?token=t"))
	assert.True(t, strings.Contains(buf.String(), "to=reader@example.com"))
}

func TestPublisher_DeliversToBoundQueue(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping rabbitmq integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForListeningPort("5672/tcp").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672")
	require.NoError(t, err)

	conn, err := amqp.Dial(fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port()))
	require.NoError(t, err)
	defer conn.Close()

	pub, err := NewPublisher(conn)
	require.NoError(t, err)
	defer pub.Close()

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, OrderPaidRoutingKey, EventsExchange, false, nil))
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	require.NoError(t, pub.PublishOrderPaid(ctx, domain.Order{ID: "order-1", UserID: "user-1", Total: 999}))

	select {
	case d := <-deliveries:
		var env Envelope
		require.NoError(t, json.Unmarshal(d.Body, &env))
		assert.Equal(t, "OrderPaid", env.EventName)
		assert.Equal(t, "order-1", env.PartitionKey)
	case <-time.After(10 * time.Second):
		t.Fatalf("timed out waiting for order paid event")
	}
}
