package bridge

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/phantomop26/TeachForward/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTarget records deliveries forwarded from the bridge.
type mockTarget struct {
	mu         sync.Mutex
	deliveries []Delivery
}

func (m *mockTarget) DeliverLocal(receiverID *int64, payload string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, Delivery{ReceiverID: receiverID, Payload: payload})
}

func TestRedisEnvelopeSerialization(t *testing.T) {
	rid := int64(2)
	env := redisEnvelope{
		InstanceID: "instance-abc",
		Delivery:   Delivery{ReceiverID: &rid, Payload: `{"senderId":1,"content":"hi"}`},
	}

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded redisEnvelope
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, env.InstanceID, decoded.InstanceID)
	require.NotNil(t, decoded.Delivery.ReceiverID)
	assert.Equal(t, int64(2), *decoded.Delivery.ReceiverID)
	assert.Equal(t, env.Delivery.Payload, decoded.Delivery.Payload)
}

func TestRedisEnvelopeBroadcastOmitsReceiver(t *testing.T) {
	env := redisEnvelope{
		InstanceID: "node-1",
		Delivery:   Delivery{Payload: "raw text"},
	}

	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "receiverId")

	var out redisEnvelope
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Nil(t, out.Delivery.ReceiverID)
	assert.Equal(t, "raw text", out.Delivery.Payload)
}

func TestRedisBridgeAvailableFalseBeforeStart(t *testing.T) {
	rb := NewRedisBridge(config.Default().Redis, &mockTarget{}, testLogger())
	assert.False(t, rb.Available())
}

func TestRedisBridgeInstanceIDUnique(t *testing.T) {
	cfg := config.Default().Redis
	b1 := NewRedisBridge(cfg, &mockTarget{}, testLogger())
	b2 := NewRedisBridge(cfg, &mockTarget{}, testLogger())
	assert.NotEqual(t, b1.instanceID, b2.instanceID)
}

func TestHandleRedisMessageForwardsNonSelf(t *testing.T) {
	target := &mockTarget{}
	rb := NewRedisBridge(config.Default().Redis, target, testLogger())

	data, err := json.Marshal(redisEnvelope{
		InstanceID: "other-node",
		Delivery:   Delivery{Payload: "relayed"},
	})
	require.NoError(t, err)
	rb.handleRedisMessage(&redis.Message{Payload: string(data)})

	require.Len(t, target.deliveries, 1)
	assert.Equal(t, "relayed", target.deliveries[0].Payload)
}

func TestHandleRedisMessageSkipsSelf(t *testing.T) {
	target := &mockTarget{}
	rb := NewRedisBridge(config.Default().Redis, target, testLogger())

	data, err := json.Marshal(redisEnvelope{
		InstanceID: rb.instanceID,
		Delivery:   Delivery{Payload: "own message"},
	})
	require.NoError(t, err)
	rb.handleRedisMessage(&redis.Message{Payload: string(data)})

	assert.Empty(t, target.deliveries)
}

func TestHandleRedisMessageIgnoresGarbage(t *testing.T) {
	target := &mockTarget{}
	rb := NewRedisBridge(config.Default().Redis, target, testLogger())

	rb.handleRedisMessage(&redis.Message{Payload: "{broken"})
	assert.Empty(t, target.deliveries)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
