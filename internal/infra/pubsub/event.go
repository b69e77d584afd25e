package pubsub

import (
	"encoding/json"
	"strconv"

	"campus/internal/domain/service"
	"campus/internal/errors"
)

// encodedEvent is an auth event ready for any transport.
type encodedEvent struct {
	id          string
	body        []byte
	attributes  map[string]string
	orderingKey string
}

func encodeEvent(event *service.AuthEvent) (*encodedEvent, error) {
	if event == nil {
		return nil, errors.New("pubsub: nil event")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrap(err, "pubsub: encode event")
	}

	return &encodedEvent{
		id:          event.ID,
		body:        body,
		attributes:  eventAttributes(event),
		orderingKey: userOrderingKey(event.UserID),
	}, nil
}

// eventAttributes are attached to every outgoing message for filtering and tracing.
func eventAttributes(event *service.AuthEvent) map[string]string {
	attrs := map[string]string{
		"event_id":   event.ID,
		"event_type": event.Type,
	}

	for key, value := range map[string]string{
		"request_id": event.RequestID,
		"provider":   event.Provider,
	} {
		if value != "" {
			attrs[key] = value
		}
	}

	return attrs
}

// Events of one user share a key so consumers see them in order.
func userOrderingKey(userID int64) string {
	if userID <= 0 {
		return ""
	}

	return "user-" + strconv.FormatInt(userID, 10)
}
