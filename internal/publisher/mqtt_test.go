package publisher

import (
	"encoding/json"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/capplot/internal/config"
	"github.com/jgoulah/capplot/pkg/models"
)

func TestTopics(t *testing.T) {
	assert.Equal(t, "capacity/abc/records", RecordsTopic("capacity", "abc"))
	assert.Equal(t, "capacity/abc/summary", SummaryTopic("capacity", "abc"))
}

func TestNewSummaryPayload(t *testing.T) {
	run := models.Run{
		ID:         "abc",
		Source:     "capacity.log",
		ImportedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	records := []models.Record{
		{Time: 0, Capacity: 10},
		{Time: 5, Capacity: 20},
		{Time: 9, Capacity: 10},
	}

	payload := NewSummaryPayload(run, records)
	assert.Equal(t, 9.0, payload.DurationMS)
	assert.Equal(t, 2, payload.Resizes)

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "2024-05-01T12:00:00Z", decoded["imported_at"])
	assert.Equal(t, "capacity.log", decoded["source"])
	summary := decoded["summary"].(map[string]any)
	assert.Equal(t, 20.0, summary["max_capacity"])
}

func TestNewRequiresEnabled(t *testing.T) {
	_, err := New(&config.Config{})
	assert.Error(t, err)

	_, err = New(&config.Config{MQTT: config.MQTTConfig{Enabled: true}})
	assert.Error(t, err)
}

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type message struct {
	topic    string
	retained bool
	body     []byte
}

// fakeClient records publishes; everything else panics through the nil embed
type fakeClient struct {
	mqtt.Client
	sent []message
}

func (c *fakeClient) IsConnected() bool { return true }
func (c *fakeClient) Disconnect(uint)   {}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, message{topic, retained, payload.([]byte)})
	return doneToken{}
}

func TestPublishRun(t *testing.T) {
	client := &fakeClient{}
	pub := NewWithClient(client, "sim")
	defer pub.Close()

	run := models.Run{ID: "r1", Source: "capacity.log"}
	records := []models.Record{{Time: 0, Capacity: 5}, {Time: 10, Capacity: 7}}

	require.NoError(t, pub.PublishRun(run, records))
	require.Len(t, client.sent, 3)

	for i, msg := range client.sent[:2] {
		assert.Equal(t, "sim/r1/records", msg.topic)
		assert.False(t, msg.retained)

		var payload RecordPayload
		require.NoError(t, json.Unmarshal(msg.body, &payload))
		assert.Equal(t, i, payload.Seq)
		assert.Equal(t, records[i].Time, payload.Time)
		assert.Equal(t, records[i].Capacity, payload.Capacity)
	}

	summary := client.sent[2]
	assert.Equal(t, "sim/r1/summary", summary.topic)
	assert.True(t, summary.retained)
}
