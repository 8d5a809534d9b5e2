package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// fixTopic is the device uplink topic pattern; the wildcard is the
// device id.
const fixTopic = "fleet/+/fix"

// DeviceBuffer is where the bridge lands uplinked fixes: the transient
// buffer for devices with an active trip, the latest-known hash for the
// rest.
type DeviceBuffer interface {
	Push(ctx context.Context, deviceID string, payload []byte) error
	IsActive(ctx context.Context, deviceID string) (bool, error)
	SetLatest(ctx context.Context, deviceID string, fields map[string]interface{}) error
}

// Bridge subscribes to the MQTT device uplink and feeds the Redis-side
// buffer, so workers only ever talk to Redis.
type Bridge struct {
	client mqtt.Client
	buffer DeviceBuffer
}

// NewBridge connects to the broker.
func NewBridge(brokerURL, clientID string, buffer DeviceBuffer) (*Bridge, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		}).
		SetOnConnectHandler(func(_ mqtt.Client) {
			log.Info("MQTT connected")
		})
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %v", token.Error())
	}
	return &Bridge{client: client, buffer: buffer}, nil
}

// Start subscribes to the uplink topic.
func (b *Bridge) Start(ctx context.Context) error {
	token := b.client.Subscribe(fixTopic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		b.handle(ctx, msg)
	})
	if !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		return fmt.Errorf("mqtt subscribe: %v", token.Error())
	}
	log.WithField("topic", fixTopic).Info("Subscribed to device uplink")
	return nil
}

func (b *Bridge) handle(ctx context.Context, msg mqtt.Message) {
	deviceID := deviceFromTopic(msg.Topic())
	if deviceID == "" {
		log.WithField("topic", msg.Topic()).Warn("Unroutable uplink topic")
		return
	}
	logger := log.WithField("device_id", deviceID)

	var fix RawFix
	if err := json.Unmarshal(msg.Payload(), &fix); err != nil {
		logger.WithError(err).Warn("Undecodable fix payload")
		return
	}

	active, err := b.buffer.IsActive(ctx, deviceID)
	if err != nil {
		logger.WithError(err).Error("Active-set lookup failed")
		return
	}
	if active {
		if err := b.buffer.Push(ctx, deviceID, msg.Payload()); err != nil {
			logger.WithError(err).Error("Buffer push failed")
		}
		return
	}

	// Not on an active trip: just refresh the latest-known fields.
	err = b.buffer.SetLatest(ctx, deviceID, map[string]interface{}{
		"lat":        fix.Lat,
		"lng":        fix.Lng,
		"speed":      fix.Speed,
		"acc":        fix.Acc,
		"dt_tracker": fix.DtTracker,
	})
	if err != nil {
		logger.WithError(err).Error("Latest-known update failed")
	}
}

// deviceFromTopic extracts the device id from "fleet/<id>/fix".
func deviceFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "fleet" || parts[2] != "fix" {
		return ""
	}
	return parts[1]
}

// Stop disconnects from the broker.
func (b *Bridge) Stop() {
	b.client.Disconnect(250)
}
