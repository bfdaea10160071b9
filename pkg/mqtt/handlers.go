package mqtt

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/models"
)

// Lookup is the read side of the infraction store
type Lookup interface {
	GetInfraction(ctx context.Context, guildID string, id int64) (*models.Infraction, error)
	GetHistory(ctx context.Context, guildID, userID string) (*models.History, error)
}

const requestTimeout = 10 * time.Second

func stringField(payload map[string]interface{}, key string) (string, error) {
	s, ok := payload[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("missing field %q", key)
	}
	return s, nil
}

// intField accepts JSON numbers and numeric strings
func intField(payload map[string]interface{}, key string) (int64, error) {
	switch v := payload[key].(type) {
	case float64:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid field %q: %w", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("missing field %q", key)
	}
}

// RegisterHandlers answers "infraction.get" {guildId, id} and
// "history.get" {guildId, userId}
func RegisterHandlers(mc *MqttCommunicator, store Lookup) error {
	if err := mc.On("infraction.get", func(payload map[string]interface{}) (interface{}, error) {
		guildID, err := stringField(payload, "guildId")
		if err != nil {
			return nil, err
		}
		id, err := intField(payload, "id")
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return store.GetInfraction(ctx, guildID, id)
	}); err != nil {
		return err
	}

	return mc.On("history.get", func(payload map[string]interface{}) (interface{}, error) {
		guildID, err := stringField(payload, "guildId")
		if err != nil {
			return nil, err
		}
		userID, err := stringField(payload, "userId")
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return store.GetHistory(ctx, guildID, userID)
	})
}
