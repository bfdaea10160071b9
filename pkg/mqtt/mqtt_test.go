package mqtt

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/models"
	"github.com/PancyStudios/PancyModlog/pkg/modlog"
	"github.com/goccy/go-json"
)

// fakeBroker routes publishes to matching subscriptions in-process
type fakeBroker struct {
	mu        sync.Mutex
	subs      map[string]func(topic string, payload []byte)
	published []string
	offline   bool
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{subs: make(map[string]func(string, []byte))}
}

func (b *fakeBroker) publish(topic string, payload []byte) error {
	b.mu.Lock()
	b.published = append(b.published, topic)
	var handlers []func(string, []byte)
	for pattern, h := range b.subs {
		if topicMatch(pattern, topic) {
			handlers = append(handlers, h)
		}
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(topic, payload)
	}
	return nil
}

func (b *fakeBroker) subscribe(topic string, handler func(string, []byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = handler
	return nil
}

func (b *fakeBroker) unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, topic)
	return nil
}

func (b *fakeBroker) connected() bool { return !b.offline }
func (b *fakeBroker) close()          {}

func TestTopicMatch(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"modlog/g/ban", "modlog/g/ban", true},
		{"modlog/+/ban", "modlog/g/ban", true},
		{"modlog/+/ban", "modlog/g/kick", false},
		{"modlog/#", "modlog/g/ban", true},
		{"modlog/#", "modlog", true},
		{"modlog/g", "modlog/g/ban", false},
		{"modlog/g/ban", "modlog/g", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.topic, func(t *testing.T) {
			if got := topicMatch(tt.pattern, tt.topic); got != tt.want {
				t.Errorf("topicMatch(%q, %q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
			}
		})
	}
}

func TestEventSinkPublishesPerGuildAndKind(t *testing.T) {
	broker := newFakeBroker()
	mc := newCommunicator(broker, "modlog/")
	sink := NewEventSink(mc)

	var got modlog.Record
	mc.Subscribe("modlog/+/ban", func(_ string, payload []byte) {
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Errorf("Unmarshal() error = %v", err)
		}
	})

	rec := modlog.Record{Category: modlog.CategoryLog, Kind: "ban", GuildID: "g", UserIDs: []string{"alice"}, InfractionIDs: []int64{4}}
	if err := sink.Publish(context.Background(), rec); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if got.GuildID != "g" || len(got.InfractionIDs) != 1 || got.InfractionIDs[0] != 4 {
		t.Errorf("received = %+v, want guild g infraction 4", got)
	}
	if topic := sink.Topic(rec); topic != "modlog/g/ban" {
		t.Errorf("Topic() = %q, want modlog/g/ban", topic)
	}
}

func TestEventSinkDropsWhileOffline(t *testing.T) {
	broker := newFakeBroker()
	broker.offline = true
	sink := NewEventSink(newCommunicator(broker, ""))

	if err := sink.Publish(context.Background(), modlog.Record{Kind: "warn", GuildID: "g"}); err != nil {
		t.Errorf("Publish() error = %v, want nil", err)
	}
	if len(broker.published) != 0 {
		t.Errorf("published = %v, want none", broker.published)
	}
}

type fakeLookup struct{}

func (fakeLookup) GetInfraction(_ context.Context, guildID string, id int64) (*models.Infraction, error) {
	if id != 7 {
		return nil, fmt.Errorf("infraction #%d not found", id)
	}
	return &models.Infraction{GuildID: guildID, InfractionID: id, UserID: "alice", Type: models.TypeWarn}, nil
}

func (fakeLookup) GetHistory(_ context.Context, guildID, userID string) (*models.History, error) {
	h := models.NewHistory(guildID, userID)
	h.Add(models.TypeWarn, 7, false)
	return h, nil
}

func TestRequestHandlers(t *testing.T) {
	mc := newCommunicator(newFakeBroker(), "modlog")
	if err := RegisterHandlers(mc, fakeLookup{}); err != nil {
		t.Fatalf("RegisterHandlers() error = %v", err)
	}

	data, err := mc.Request("infraction.get", map[string]interface{}{"guildId": "g", "id": 7}, time.Second)
	if err != nil {
		t.Fatalf("Request(infraction.get) error = %v", err)
	}
	inf, ok := data.(map[string]interface{})
	if !ok || inf["userId"] != "alice" {
		t.Errorf("infraction = %v, want userId alice", data)
	}

	data, err = mc.Request("history.get", map[string]interface{}{"guildId": "g", "userId": "alice"}, time.Second)
	if err != nil {
		t.Fatalf("Request(history.get) error = %v", err)
	}
	hist, ok := data.(map[string]interface{})
	if !ok || len(hist["warn"].([]interface{})) != 1 {
		t.Errorf("history = %v, want one warn", data)
	}

	if _, err := mc.Request("infraction.get", map[string]interface{}{"guildId": "g", "id": "9"}, time.Second); err == nil {
		t.Error("Request(unknown id) error = nil, want not found")
	}
	if _, err := mc.Request("history.get", map[string]interface{}{"guildId": "g"}, time.Second); err == nil {
		t.Error("Request(missing userId) error = nil")
	}
}

func TestRequestTimesOutWithoutResponder(t *testing.T) {
	mc := newCommunicator(newFakeBroker(), "modlog")
	if _, err := mc.Request("nobody.home", nil, 10*time.Millisecond); err == nil {
		t.Error("Request() error = nil, want timeout")
	}
}
