// internal/domain/urgency.go
package domain

// DeadlineUrgency grades how close the order deadline for a factory closure
// is. "missed" means the deadline already passed.
type DeadlineUrgency string

const (
	DeadlineMissed   DeadlineUrgency = "missed"
	DeadlineCritical DeadlineUrgency = "critical"
	DeadlineHigh     DeadlineUrgency = "high"
	DeadlineModerate DeadlineUrgency = "moderate"
	DeadlineLow      DeadlineUrgency = "low"
)

// DeadlineUrgencyFor grades the days remaining until an order deadline.
func DeadlineUrgencyFor(daysLeft int) DeadlineUrgency {
	switch {
	case daysLeft <= 0:
		return DeadlineMissed
	case daysLeft <= 7:
		return DeadlineCritical
	case daysLeft <= 14:
		return DeadlineHigh
	case daysLeft <= 30:
		return DeadlineModerate
	default:
		return DeadlineLow
	}
}

// Imminent reports whether the deadline demands action now.
func (u DeadlineUrgency) Imminent() bool {
	return u == DeadlineMissed || u == DeadlineCritical || u == DeadlineHigh
}

// ReorderUrgency grades how badly a product needs reordering.
type ReorderUrgency string

const (
	UrgencyCritical ReorderUrgency = "critical"
	UrgencyHigh     ReorderUrgency = "high"
	UrgencyModerate ReorderUrgency = "moderate"
	UrgencyNone     ReorderUrgency = "none"
)

// ReorderAction is the recommended response to a reorder urgency.
type ReorderAction string

const (
	ActionOrderImmediately ReorderAction = "order_immediately"
	ActionOrderSoon        ReorderAction = "order_soon"
	ActionMonitor          ReorderAction = "monitor"
	ActionNone             ReorderAction = "none"
)

var reorderActions = map[ReorderUrgency]ReorderAction{
	UrgencyCritical: ActionOrderImmediately,
	UrgencyHigh:     ActionOrderSoon,
	UrgencyModerate: ActionMonitor,
	UrgencyNone:     ActionNone,
}

// ActionFor returns the action paired with an urgency grade.
func ActionFor(u ReorderUrgency) ReorderAction {
	if action, ok := reorderActions[u]; ok {
		return action
	}

	return ActionNone
}

var urgencyRanks = map[ReorderUrgency]int{
	UrgencyNone:     0,
	UrgencyModerate: 1,
	UrgencyHigh:     2,
	UrgencyCritical: 3,
}

// Rank orders urgencies so they can be compared and escalated.
func (u ReorderUrgency) Rank() int { return urgencyRanks[u] }

// Escalate returns the more urgent of the two grades.
func Escalate(a, b ReorderUrgency) ReorderUrgency {
	if b.Rank() > a.Rank() {
		return b
	}

	return a
}

var urgencyLabels = map[ReorderUrgency]string{
	UrgencyCritical: "Critical",
	UrgencyHigh:     "High",
	UrgencyModerate: "Moderate",
	UrgencyNone:     "None",
}

// UrgencyLabel returns a human-readable label for a reorder urgency.
func UrgencyLabel(u ReorderUrgency) string {
	if label, ok := urgencyLabels[u]; ok {
		return label
	}

	return "None"
}
