package pricetrack

type TimelineEventKind int

const (
	EventPrice TimelineEventKind = iota
	// EventDeleted is inferred: the price row changed identity between two
	// entries, so the earlier row was deleted in between.
	EventDeleted
)

func (k TimelineEventKind) String() string {
	if k == EventDeleted {
		return "deleted"
	}
	return "price"
}

type TimelineEvent struct {
	Kind TimelineEventKind
	// Entry is the history entry for EventPrice and the last entry of the
	// deleted price for EventDeleted.
	Entry PriceHistory
}

// Timeline turns a newest-first history stream into events, newest first,
// inserting a deletion marker wherever the price id jumps.
func Timeline(history []PriceHistory) []TimelineEvent {
	events := make([]TimelineEvent, 0, len(history))
	for i, h := range history {
		if i > 0 && history[i-1].PriceID != h.PriceID {
			events = append(events, TimelineEvent{Kind: EventDeleted, Entry: h})
		}
		events = append(events, TimelineEvent{Kind: EventPrice, Entry: h})
	}
	return events
}
