package models

import (
	"encoding/json"
	"time"
)

// AnomalyKind classifies an operator-visible reconciliation problem
type AnomalyKind string

// Anomaly kinds
const (
	AnomalyUnmatchedOrder     AnomalyKind = "unmatched_order"
	AnomalyAmbiguousOrder     AnomalyKind = "ambiguous_order"
	AnomalyTransitionConflict AnomalyKind = "transition_conflict"
)

// Anomaly is an event that needs manual reconciliation. The delivery body is kept for replay.
type Anomaly struct {
	ID         string          `db:"id" json:"id"`
	Kind       AnomalyKind     `db:"kind" json:"kind"`
	Provider   Provider        `db:"provider" json:"provider"`
	EventID    string          `db:"event_id" json:"event_id"`
	EventType  string          `db:"event_type" json:"event_type"`
	Candidates CorrelationKeys `db:"candidates" json:"candidates"`
	OrderIDs   StringList      `db:"order_ids" json:"order_ids"`
	Reason     string          `db:"reason" json:"reason"`
	Body       json.RawMessage `db:"body" json:"body,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	ResolvedAt *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
}

// AnomalyFilter narrows an anomaly listing
type AnomalyFilter struct {
	Kind            AnomalyKind
	Provider        Provider
	IncludeResolved bool
	Limit           int
}
