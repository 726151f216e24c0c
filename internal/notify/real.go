package notify

import (
	"time"

	"codeberg.org/mutker/powermon/internal/errors"
	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	retryInterval  = 5 * time.Second
)

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(broker string) (*RealPublisher, error) {
	errFactory := errors.New()

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("powermon").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, errFactory.New(errors.ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, errFactory.Wrap(errors.ErrInitFailed, err)
	}

	return &RealPublisher{client: client}, nil
}

// PublishRestore sends a restore event at QoS 1: a restore after an
// outage is exactly the message downstream consumers must not miss.
func (p *RealPublisher) PublishRestore(event RestoreEvent) error {
	errFactory := errors.New()

	payload, err := FormatPayload(event)
	if err != nil {
		return errFactory.Wrap(errors.ErrOperationFailed, err)
	}

	token := p.client.Publish(Topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errFactory.New(errors.ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return errFactory.Wrap(errors.ErrOperationFailed, err)
	}

	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)

	return nil
}
