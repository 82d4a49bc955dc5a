package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisherRecordsPayloads(t *testing.T) {
	t.Parallel()

	p := NewPublisher()
	id, err := p.Publish(context.Background(), map[string]string{"run_id": "run-1"})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id)
	require.Len(t, p.Payloads(), 1)
}

func TestNotifierRecordsDeliveries(t *testing.T) {
	t.Parallel()

	n := NewNotifier()
	receipt, err := n.Send(context.Background(), []string{"ops@example.cl"}, "asunto", "cuerpo", []byte("a,b"), "reporte.csv")
	require.NoError(t, err)
	require.Equal(t, "receipt-1", receipt)

	deliveries := n.Deliveries()
	require.Len(t, deliveries, 1)
	require.Equal(t, "reporte.csv", deliveries[0].AttachmentName)
	require.Equal(t, []string{"ops@example.cl"}, deliveries[0].Recipients)
}

func TestFailureHooks(t *testing.T) {
	t.Parallel()

	p := NewPublisher()
	p.FailPublishes = true
	_, err := p.Publish(context.Background(), nil)
	require.Error(t, err)

	n := NewNotifier()
	n.FailSends = true
	_, err = n.Send(context.Background(), nil, "", "", nil, "")
	require.Error(t, err)
}
