package events

import (
	"time"

	"github.com/google/uuid"
)

// Authorization invalidation events. Published synchronously by every
// administrative mutation that can change a user's effective permission
// set; the authorization service subscribes and drops the affected cached
// snapshots.
const (
	EventTypeUserInvalidated = "authz.user.invalidated"
	EventTypeInvalidatedAll  = "authz.invalidated_all"
)

// NewUserInvalidated announces that one user's roles, overrides or profile
// changed and their cached snapshot must go.
func NewUserInvalidated(userID int64, reason string) Event {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      EventTypeUserInvalidated,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"user_id": userID,
			"reason":  reason,
		},
	}
}

// NewInvalidatedAll announces a mutation with no efficient way to enumerate
// affected users, e.g. editing a role's permission list.
func NewInvalidatedAll(reason string) Event {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      EventTypeInvalidatedAll,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"reason": reason,
		},
	}
}

// UserIDFromEvent extracts the user id from a user-invalidated event
// payload.
func UserIDFromEvent(e Event) (int64, bool) {
	data, ok := e.Payload().(map[string]interface{})
	if !ok {
		return 0, false
	}
	switch v := data["user_id"].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
