package ws

import "github.com/Scoutersq/campus-connect-sub001/internal/auth"

type EventType string

const (
	// client -> server
	EventAuth EventType = "auth"

	// server -> client
	EventReady          EventType = "ready"
	EventNoticeCreated  EventType = "notice_created"
	EventNoticeDeleted  EventType = "notice_deleted"
	EventReportCreated  EventType = "report_created"
	EventReportReviewed EventType = "report_reviewed"
	EventError          EventType = "error"
)

// IncomingMessage is what the client sends to the server. The first frame
// must be an auth message carrying a realtime ticket; afterwards the channel
// is server-push only.
type IncomingMessage struct {
	Type  EventType `json:"type"`
	Token string    `json:"token,omitempty"`
}

// OutgoingMessage is what the server sends to the client. Payload uses typed
// structs to avoid heap-heavy map[string]any.
type OutgoingMessage struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// ReadyPayload confirms a successful handshake, echoing the display profile
// carried by the ticket.
type ReadyPayload struct {
	AccountID string               `json:"account_id"`
	Role      string               `json:"role"`
	Profile   auth.ProfileSnapshot `json:"profile"`
}

// NoticeDeletedPayload is broadcast when an administrator removes a notice.
type NoticeDeletedPayload struct {
	NoticeID string `json:"notice_id"`
}

// ReportReviewedPayload is sent to the report author when an administrator
// reviews their report.
type ReportReviewedPayload struct {
	ReportID string `json:"report_id"`
	Status   string `json:"status"`
}
