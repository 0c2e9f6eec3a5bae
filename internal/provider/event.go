package provider

import (
	"fmt"

	"go.uber.org/zap"
)

// Event is a validated, parsed webhook event.
type Event struct {
	JSON     []byte
	Provider string

	// Github hook fields, if the value is not available they are empty
	// strings.
	DeliveryID string
	EventType  string
	Owner      string
	Repository string
	Branch     string
	// DefaultBranch of the pushed repository, empty when the event does
	// not carry it.
	DefaultBranch string
	// InstallationID is 0 if it's not available
	InstallationID int64
}

func (e *Event) String() string {
	return fmt.Sprintf("%s (deliveryID: %s)", e.EventType, e.DeliveryID)
}

func (e *Event) LogFields() []zap.Field {
	fields := make([]zap.Field, 0, 6) // cap == max. size of fields we append

	if e.DeliveryID != "" {
		fields = append(fields, zap.String("github.delivery_id", e.DeliveryID))
	}

	if e.EventType != "" {
		fields = append(fields, zap.String("github.event_type", e.EventType))
	}

	if e.Owner != "" {
		fields = append(fields, zap.String("github.repository_owner", e.Owner))
	}

	if e.Repository != "" {
		fields = append(fields, zap.String("git.repository", e.Repository))
	}

	if e.Branch != "" {
		fields = append(fields, zap.String("git.branch", e.Branch))
	}

	if e.InstallationID != 0 {
		fields = append(fields, zap.Int64("github.installation_id", e.InstallationID))
	}

	return fields
}
