package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ferncroft/helper-audit/internal/infrastructure/config"
)

// Publisher is the publish capability the status sensor needs. Client
// satisfies it; tests substitute a recorder.
type Publisher interface {
	PublishRetained(topic string, payload []byte) error
}

// RunStatus is the summary the sensor exposes after each analysis run.
type RunStatus struct {
	RunID         string    `json:"run_id"`
	Timestamp     time.Time `json:"timestamp"`
	Total         int       `json:"total_helpers"`
	ActivelyUsed  int       `json:"actively_used"`
	DashboardOnly int       `json:"dashboard_only"`
	TrulyOrphaned int       `json:"truly_orphaned"`
	LoadErrors    int       `json:"load_errors"`
}

// StatusSensor publishes the audit's last-run summary as a Home Assistant
// MQTT discovery sensor. The sensor state is the run timestamp; the
// counts ride along as attributes.
type StatusSensor struct {
	pub    Publisher
	prefix string
	id     string
}

// NewStatusSensor creates a status sensor over an existing publisher.
func NewStatusSensor(pub Publisher, cfg config.MQTTConfig) *StatusSensor {
	return &StatusSensor{
		pub:    pub,
		prefix: cfg.DiscoveryPrefix,
		id:     cfg.Broker.ClientID,
	}
}

// discoveryConfig is the Home Assistant MQTT discovery document.
type discoveryConfig struct {
	Name                string `json:"name"`
	UniqueID            string `json:"unique_id"`
	StateTopic          string `json:"state_topic"`
	JSONAttributesTopic string `json:"json_attributes_topic"`
	AvailabilityTopic   string `json:"availability_topic"`
	Icon                string `json:"icon"`
}

func (s *StatusSensor) configTopic() string {
	return fmt.Sprintf("%s/sensor/%s_status/config", s.prefix, s.id)
}

func (s *StatusSensor) stateTopic() string {
	return s.id + "/status/state"
}

func (s *StatusSensor) attributesTopic() string {
	return s.id + "/status/attributes"
}

// PublishDiscovery announces the sensor to Home Assistant. Retained, so
// the sensor survives Home Assistant restarts. Call once after connect.
func (s *StatusSensor) PublishDiscovery() error {
	payload, err := json.Marshal(discoveryConfig{
		Name:                "Helper analysis status",
		UniqueID:            s.id + "_status",
		StateTopic:          s.stateTopic(),
		JSONAttributesTopic: s.attributesTopic(),
		AvailabilityTopic:   s.id + "/availability",
		Icon:                "mdi:magnify-scan",
	})
	if err != nil {
		return fmt.Errorf("marshalling discovery config: %w", err)
	}
	if err := s.pub.PublishRetained(s.configTopic(), payload); err != nil {
		return fmt.Errorf("publishing discovery config: %w", err)
	}
	return nil
}

// PublishRun updates the sensor after an analysis run.
func (s *StatusSensor) PublishRun(status RunStatus) error {
	state := status.Timestamp.UTC().Format(time.RFC3339)
	if err := s.pub.PublishRetained(s.stateTopic(), []byte(state)); err != nil {
		return fmt.Errorf("publishing state: %w", err)
	}

	attrs, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshalling attributes: %w", err)
	}
	if err := s.pub.PublishRetained(s.attributesTopic(), attrs); err != nil {
		return fmt.Errorf("publishing attributes: %w", err)
	}
	return nil
}
