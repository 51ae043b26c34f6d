package models

import "time"

// NotificationPriority ranks notifications for display.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
)

// Notification informs a requester about a status change.
type Notification struct {
	ID                  string               `db:"id" json:"id" bson:"_id"`
	UserID              string               `db:"user_id" json:"userId" bson:"userId"`
	RequestID           string               `db:"request_id" json:"requestId" bson:"requestId"`
	RequestType         RequestType          `db:"request_type" json:"requestType" bson:"requestType"`
	Status              RequestStatus        `db:"status" json:"status" bson:"status"`
	Title               string               `db:"title" json:"title" bson:"title"`
	Message             string               `db:"message" json:"message" bson:"message"`
	Priority            NotificationPriority `db:"priority" json:"priority" bson:"priority"`
	IsRead              bool                 `db:"is_read" json:"isRead" bson:"isRead"`
	ProofCode           *string              `db:"proof_code" json:"proofCode,omitempty" bson:"proofCode,omitempty"`
	RejectionReason     *string              `db:"rejection_reason" json:"rejectionReason,omitempty" bson:"rejectionReason,omitempty"`
	EstimatedCompletion *string              `db:"estimated_completion" json:"estimatedCompletion,omitempty" bson:"estimatedCompletion,omitempty"`
	CreatedAt           time.Time            `db:"created_at" json:"createdAt" bson:"createdAt"`
}

// NotificationFilter constrains notification listings.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Limit      int
	Unordered  bool
}

// NotificationContent is the rendered title, message and priority for a status.
type NotificationContent struct {
	Title    string               `json:"title"`
	Message  string               `json:"message"`
	Priority NotificationPriority `json:"priority"`
}

// NotificationEvent is published to the event stream and websocket clients.
type NotificationEvent struct {
	Event        string       `json:"event"`
	Notification Notification `json:"notification"`
	OccurredAt   time.Time    `json:"occurredAt"`
}
