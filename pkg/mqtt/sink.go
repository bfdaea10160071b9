package mqtt

import (
	"context"

	"github.com/PancyStudios/PancyModlog/pkg/modlog"
)

// EventSink forwards rendered modlog records to <prefix>/<guild>/<kind>
type EventSink struct {
	mc *MqttCommunicator
}

// NewEventSink wraps a communicator
func NewEventSink(mc *MqttCommunicator) *EventSink {
	return &EventSink{mc: mc}
}

// Topic returns the topic a record is published on
func (s *EventSink) Topic(rec modlog.Record) string {
	return s.mc.prefix + "/" + rec.GuildID + "/" + rec.Kind
}

// Publish sends rec. Records are dropped while the broker is unreachable.
func (s *EventSink) Publish(ctx context.Context, rec modlog.Record) error {
	if !s.mc.IsConnected() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.mc.Publish(s.Topic(rec), rec)
}

var _ modlog.EventSink = (*EventSink)(nil)
