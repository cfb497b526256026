package mqtt

import (
	"encoding/json"
	"fmt"

	mqttv2 "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/nergy-se/hvacsim/pkg/telemetry"
)

const TopicTelemetry = "hvacsim/telemetry"

// Broker is an embedded MQTT broker that fans telemetry samples out to
// UI and reporting clients. It never writes points; displays that want
// to command the process go through the Modbus surface like everyone
// else.
type Broker struct {
	server *mqttv2.Server
}

func Start(addr string) (*Broker, error) {
	server := mqttv2.New(&mqttv2.Options{
		InlineClient: true,
	})

	// Allow all connections.
	_ = server.AddHook(new(auth.AllowHook), nil)

	tcp := listeners.NewTCP(listeners.Config{ID: "telemetry", Address: addr})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("error adding mqtt listener: %w", err)
	}
	if err := server.Serve(); err != nil {
		return nil, fmt.Errorf("error serving mqtt: %w", err)
	}
	return &Broker{server: server}, nil
}

// PublishSample publishes one sample as JSON via the inline client.
func (b *Broker) PublishSample(s telemetry.Sample) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return b.server.Publish(TopicTelemetry, payload, false, 0)
}

func (b *Broker) Close() error {
	return b.server.Close()
}
