package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jgoulah/capplot/internal/config"
	"github.com/jgoulah/capplot/pkg/models"
)

const (
	qos            = 1
	publishTimeout = 10 * time.Second
)

// Publisher sends stored runs to an MQTT broker
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
}

// New connects to the broker described by cfg
func New(cfg *config.Config) (*Publisher, error) {
	if !cfg.MQTT.Enabled {
		return nil, fmt.Errorf("MQTT publishing is not enabled in config")
	}
	if cfg.MQTT.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	// Configure MQTT client options
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.MQTT.Broker))
	opts.SetClientID(cfg.GetClientID())
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username)
	}
	if cfg.MQTT.Password != "" {
		opts.SetPassword(cfg.MQTT.Password)
	}

	// Create and connect client
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("connecting to MQTT broker %s: timed out", cfg.MQTT.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", err)
	}

	return NewWithClient(client, cfg.GetTopicPrefix()), nil
}

// NewWithClient wraps an already configured client
func NewWithClient(client mqtt.Client, topicPrefix string) *Publisher {
	return &Publisher{
		client:      client,
		topicPrefix: topicPrefix,
	}
}

// RecordPayload is the message sent for every record of a run
type RecordPayload struct {
	RunID    string  `json:"run_id"`
	Seq      int     `json:"seq"`
	Time     float64 `json:"time"`
	Capacity float64 `json:"capacity"`
}

// SummaryPayload is the retained message describing a whole run
type SummaryPayload struct {
	RunID      string         `json:"run_id"`
	Source     string         `json:"source"`
	ImportedAt string         `json:"imported_at"`
	Summary    models.Summary `json:"summary"`
	DurationMS float64        `json:"duration_ms"`
	Resizes    int            `json:"resizes"`
}

// RecordsTopic is where the records of a run are published
func RecordsTopic(prefix, runID string) string {
	return fmt.Sprintf("%s/%s/records", prefix, runID)
}

// SummaryTopic is where the retained run summary is published
func SummaryTopic(prefix, runID string) string {
	return fmt.Sprintf("%s/%s/summary", prefix, runID)
}

// NewSummaryPayload describes run and its records
func NewSummaryPayload(run models.Run, records []models.Record) SummaryPayload {
	summary := models.Summarize(records)
	return SummaryPayload{
		RunID:      run.ID,
		Source:     run.Source,
		ImportedAt: run.ImportedAt.Format(time.RFC3339),
		Summary:    summary,
		DurationMS: summary.Duration(),
		Resizes:    summary.Resizes(),
	}
}

// PublishRun sends every record of run in order, then the retained summary
func (p *Publisher) PublishRun(run models.Run, records []models.Record) error {
	topic := RecordsTopic(p.topicPrefix, run.ID)
	for i, r := range records {
		payload := RecordPayload{RunID: run.ID, Seq: i, Time: r.Time, Capacity: r.Capacity}
		if err := p.publish(topic, false, payload); err != nil {
			return fmt.Errorf("publishing record %d: %w", i, err)
		}
	}

	if err := p.publish(SummaryTopic(p.topicPrefix, run.ID), true, NewSummaryPayload(run, records)); err != nil {
		return fmt.Errorf("publishing summary: %w", err)
	}

	return nil
}

func (p *Publisher) publish(topic string, retained bool, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	token := p.client.Publish(topic, qos, retained, body)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: timed out", topic)
	}
	return token.Error()
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
