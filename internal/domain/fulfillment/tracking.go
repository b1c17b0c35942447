package fulfillment

import (
	"sort"
	"strings"
	"time"

	"github.com/garmentflow/backend/internal/domain/shared"
)

const maxTrackingSteps = 100

// TrackingStep is one timestamped fulfillment event
type TrackingStep struct {
	Status     string
	OccurredAt time.Time
	Location   string
	Notes      string
	PhotoRef   string
}

// NewTrackingStep validates and builds a tracking step
func NewTrackingStep(status string, occurredAt time.Time, location, notes, photoRef string) (TrackingStep, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return TrackingStep{}, shared.NewValidationError("Tracking step status is required")
	}
	if len(status) > 50 {
		return TrackingStep{}, shared.NewValidationError("Tracking step status cannot exceed 50 characters")
	}
	if occurredAt.IsZero() {
		return TrackingStep{}, shared.NewValidationError("Tracking step date and time are required")
	}
	return TrackingStep{
		Status:     status,
		OccurredAt: occurredAt,
		Location:   strings.TrimSpace(location),
		Notes:      strings.TrimSpace(notes),
		PhotoRef:   strings.TrimSpace(photoRef),
	}, nil
}

// FulfillmentStatus maps the step's free-text status onto the fulfillment vocabulary.
// ok is false for statuses outside it, which are kept but do not move the order.
func (s TrackingStep) FulfillmentStatus() (status FulfillmentStatus, ok bool) {
	key := strings.ToLower(strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s.Status))
	switch key {
	case "pending", "notstarted":
		return FulfillmentNotStarted, true
	case "packed":
		return FulfillmentPacked, true
	case "shipped":
		return FulfillmentShipped, true
	case "outfordelivery":
		return FulfillmentOutForDelivery, true
	case "delivered":
		return FulfillmentDelivered, true
	}
	return "", false
}

// TrackingLedger is the ordered list of fulfillment events of an order.
// Steps are stored as submitted; readers use Sorted.
type TrackingLedger struct {
	Steps           []TrackingStep
	CurrentLocation string
	UpdatedAt       *time.Time
}

// Sorted returns the steps ascending by OccurredAt. Steps with equal timestamps keep
// their submission order.
func (l TrackingLedger) Sorted() []TrackingStep {
	steps := make([]TrackingStep, len(l.Steps))
	copy(steps, l.Steps)
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].OccurredAt.Before(steps[j].OccurredAt)
	})
	return steps
}

// Latest returns the chronologically last step
func (l TrackingLedger) Latest() (TrackingStep, bool) {
	sorted := l.Sorted()
	if len(sorted) == 0 {
		return TrackingStep{}, false
	}
	return sorted[len(sorted)-1], true
}

// EffectiveLocation returns the explicit current location, falling back to the latest step's location
func (l TrackingLedger) EffectiveLocation() string {
	if l.CurrentLocation != "" {
		return l.CurrentLocation
	}
	if latest, ok := l.Latest(); ok {
		return latest.Location
	}
	return ""
}

// DerivedStatus returns the fulfillment status of the last recognized step in chronological order
func (l TrackingLedger) DerivedStatus() FulfillmentStatus {
	status := FulfillmentNotStarted
	for _, step := range l.Sorted() {
		if s, ok := step.FulfillmentStatus(); ok {
			status = s
		}
	}
	return status
}

func validateTrackingSteps(steps []TrackingStep) error {
	if len(steps) > maxTrackingSteps {
		return shared.NewValidationError("Too many tracking steps")
	}
	for _, step := range steps {
		if strings.TrimSpace(step.Status) == "" || step.OccurredAt.IsZero() {
			return shared.NewValidationError("Every tracking step needs a status, a date and a time")
		}
	}
	return nil
}
