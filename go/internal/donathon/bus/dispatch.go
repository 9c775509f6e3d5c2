package bus

import (
	"errors"

	"github.com/mcdev12/donathon/go/internal/donathon/message"
	"github.com/mcdev12/donathon/go/internal/donathon/metrics"
	"github.com/mcdev12/donathon/go/internal/donathon/overlay"
	"github.com/rs/zerolog/log"
)

// Target receives decoded host signals. *overlay.Bridge implements it.
type Target interface {
	HandleSnapshot(userstore map[string]string)
	HandleDelta(key, value string) error
	HandleEvent(event overlay.Event) error
}

// Dispatcher decodes raw messages and routes them to the target in arrival order
type Dispatcher struct {
	target  Target
	metrics metrics.Collector
}

// NewDispatcher creates a dispatcher
func NewDispatcher(target Target, m metrics.Collector) *Dispatcher {
	if m == nil {
		m = metrics.NoOpCollector{}
	}
	return &Dispatcher{target: target, metrics: m}
}

// Dispatch decodes one message and applies it. Only decoding failures are
// returned; values the target rejects are dropped after logging.
func (d *Dispatcher) Dispatch(subject string, data []byte) error {
	sig, err := Decode(subject, data)
	if err != nil {
		d.metrics.RecordBusMessage(suffixOf(subject), false)
		return err
	}
	d.metrics.RecordBusMessage(suffixOf(subject), true)

	switch s := sig.(type) {
	case Snapshot:
		d.target.HandleSnapshot(s.Userstore)

	case Delta:
		if err := d.target.HandleDelta(s.Key, s.Value); err != nil {
			if errors.Is(err, overlay.ErrUnknownKey) {
				// other plugins share the userstore
				return nil
			}
			log.Debug().Err(err).Str("key", s.Key).Msg("userstore update dropped")
		}

	case Event:
		if err := d.target.HandleEvent(s.Event); err != nil {
			if errors.Is(err, message.ErrUnknownKind) {
				return nil
			}
			log.Warn().Err(err).Str("type", s.Type).Msg("event dropped")
		}
	}
	return nil
}

// Apply routes an already decoded snapshot, used for out-of-band sources
func (d *Dispatcher) Apply(s Snapshot) {
	d.target.HandleSnapshot(s.Userstore)
}
