package live

import "time"

// Message types exchanged over the live channel (spec.md §4.4). Every
// message is a tagged union discriminated by Type; handlers dispatch on
// it with an explicit switch rather than reflection-based dispatch
// (spec.md §9, "Polymorphic messages").
const (
	TypeConnected      = "connected"
	TypeAuth           = "auth"
	TypeWatchDocument  = "watch_document"
	TypeWatchCollection = "watch_collection"
	TypeUnwatch        = "unwatch"
	TypePresence       = "presence"
	TypeError          = "error"
)

// Change-type vocabulary a change-feed Op maps to (spec.md §4.4,
// "Change-type mapping").
const (
	ChangeAdded    = "added"
	ChangeModified = "modified"
	ChangeRemoved  = "removed"
)

// Message is the single wire shape for both client and server frames.
// Fields unused by a given Type are omitted from the JSON encoding.
type Message struct {
	Type           string                 `json:"type"`
	RequestID      string                 `json:"requestId,omitempty"`
	Token          string                 `json:"token,omitempty"`
	Status         string                 `json:"status,omitempty"`
	UserID         string                 `json:"userId,omitempty"`
	Collection     string                 `json:"collection,omitempty"`
	DocumentID     string                 `json:"documentId,omitempty"`
	SubscriptionID string                 `json:"subscriptionId,omitempty"`
	Query          *QuerySpec             `json:"query,omitempty"`
	Action         string                 `json:"action,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	LastSeen       *time.Time             `json:"lastSeen,omitempty"`
	Change         *Change                `json:"change,omitempty"`
	Code           string                 `json:"code,omitempty"`
	Message        string                 `json:"message,omitempty"`
}

// QuerySpec is the structured-JSON mirror of the Query Model that
// watch_collection messages carry (spec.md §4.4, "Subscription —
// collection").
type QuerySpec struct {
	Where   []WhereSpec   `json:"where,omitempty"`
	OrderBy []OrderBySpec `json:"orderBy,omitempty"`
	Limit   *int          `json:"limit,omitempty"`
}

type WhereSpec struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

type OrderBySpec struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// Change carries either a single-document change (document watch) or a
// batch of them (collection watch).
type Change struct {
	Type       string                 `json:"type,omitempty"`
	DocumentID string                 `json:"documentId,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Changes    []ChangeItem           `json:"changes,omitempty"`
}

type ChangeItem struct {
	Type       string                 `json:"type"`
	DocumentID string                 `json:"documentId"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// changeTypeOf maps a change-feed Op to the added/modified/removed
// vocabulary (spec.md §4.4, "Change-type mapping").
func changeTypeOf(op string) string {
	switch op {
	case "insert":
		return ChangeAdded
	case "update", "replace":
		return ChangeModified
	case "delete":
		return ChangeRemoved
	default:
		return ChangeModified
	}
}
