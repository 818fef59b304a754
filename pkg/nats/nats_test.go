package nats

import (
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupNATS 连接本地 NATS, 不可用时跳过
func setupNATS(t *testing.T) *nats.Conn {
	conn, err := Connect(nats.DefaultURL, "lens-test", nil)
	if err != nil {
		t.Skipf("skipping test; nats not available: %v", err)
	}
	t.Cleanup(conn.Close)
	return conn
}

type event struct {
	RunID string  `json:"run_id"`
	Price float64 `json:"price"`
}

func TestPublishSubscribe_RoundTrip(t *testing.T) {
	conn := setupNATS(t)

	var mu sync.Mutex
	var got []Message
	sub := NewSubscriber(conn, func(msg Message) error {
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
		return nil
	}, nil)
	require.NoError(t, sub.Subscribe("lens.test.events"))
	defer sub.Close()

	pub := NewPublisher(conn, nil)
	require.NoError(t, pub.Publish("lens.test.events", "r1", event{RunID: "r1", Price: 1.5}))
	require.NoError(t, pub.Publish("lens.test.events", "", event{RunID: "r2"}))
	require.NoError(t, pub.Flush(time.Second))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "lens.test.events", got[0].Subject)
	assert.Equal(t, "r1", got[0].Key)
	assert.Empty(t, got[1].Key) // 未设置 key

	var ev event
	require.NoError(t, sonic.Unmarshal(got[0].Data, &ev))
	assert.Equal(t, event{RunID: "r1", Price: 1.5}, ev)
}

func TestSubscriber_CloseStopsDelivery(t *testing.T) {
	conn := setupNATS(t)

	var mu sync.Mutex
	count := 0
	sub := NewSubscriber(conn, func(Message) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}, nil)
	require.NoError(t, sub.Subscribe("lens.test.closed"))
	require.NoError(t, sub.Close())

	pub := NewPublisher(conn, nil)
	require.NoError(t, pub.Publish("lens.test.closed", "", event{}))
	require.NoError(t, pub.Flush(time.Second))

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, count)
}
