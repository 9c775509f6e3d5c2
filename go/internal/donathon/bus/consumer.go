package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// ConsumerConfig holds configuration for the JetStream consumer
type ConsumerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	SubjectPrefix string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConsumerConfig returns default JetStream consumer configuration
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		URL:           nats.DefaultURL,
		StreamName:    "DONATHON",
		ConsumerName:  "donathon-overlay",
		SubjectPrefix: "donathon",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Consumer reads host signals from JetStream and feeds them to a Dispatcher
// one message at a time so arrival order is preserved.
type Consumer struct {
	dispatcher *Dispatcher
	nc         *nats.Conn
	js         jetstream.JetStream
	consumer   jetstream.Consumer
	config     ConsumerConfig
}

// NewConsumer connects to NATS and ensures the stream and durable consumer
// exist. onReconnect, if set, runs after every reconnection.
func NewConsumer(ctx context.Context, dispatcher *Dispatcher, config ConsumerConfig, onReconnect func()) (*Consumer, error) {
	opts := []nats.Option{
		nats.Name(config.ConsumerName),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
			if onReconnect != nil {
				go onReconnect()
			}
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	c := &Consumer{
		dispatcher: dispatcher,
		nc:         nc,
		js:         js,
		config:     config,
	}

	if err := c.ensureConsumer(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return c, nil
}

func (c *Consumer) filterSubject() string {
	return c.config.SubjectPrefix + ".>"
}

func (c *Consumer) ensureConsumer(ctx context.Context) error {
	stream, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     c.config.StreamName,
		Subjects: []string{c.filterSubject()},
		Storage:  jetstream.FileStorage,
		MaxAge:   24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("ensure stream: %w", err)
	}

	// New messages only: the current state arrives through the snapshot
	// source and the host's connected message.
	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          c.config.ConsumerName,
		Durable:       c.config.ConsumerName,
		Description:   "Donathon overlay signal consumer",
		FilterSubject: c.filterSubject(),
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    c.config.MaxDeliver,
		AckWait:       c.config.AckWait,
		MaxAckPending: c.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	log.Info().
		Str("consumer", c.config.ConsumerName).
		Str("stream", c.config.StreamName).
		Str("filter", c.filterSubject()).
		Msg("JetStream consumer ready")

	c.consumer = consumer
	return nil
}

// Start consumes messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", c.config.ConsumerName).
		Str("stream", c.config.StreamName).
		Msg("starting JetStream signal consumer")

	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := c.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("signal consumer shutting down")
			return nil
		case msg := <-messageCh:
			c.process(msg)
		}
	}
}

// process dispatches one message. Malformed messages are acked as well;
// redelivering them would never succeed.
func (c *Consumer) process(msg jetstream.Msg) {
	if err := c.dispatcher.Dispatch(msg.Subject(), msg.Data()); err != nil {
		log.Warn().
			Err(err).
			Str("subject", msg.Subject()).
			Msg("dropping malformed message")
	}
	if err := msg.Ack(); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to ACK message")
	}
}

// Stop closes the NATS connection
func (c *Consumer) Stop() error {
	log.Info().Msg("stopping signal consumer")
	if c.nc != nil {
		return c.nc.Drain()
	}
	return nil
}

// Connected reports whether the NATS connection is currently up
func (c *Consumer) Connected() bool {
	return c.nc != nil && c.nc.IsConnected()
}
