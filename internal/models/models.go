package models

import "time"

// ServiceKind identifies one of the bookable cut services.
type ServiceKind string

const (
	ServiceManCut       ServiceKind = "man-cut"
	ServiceWomanCut     ServiceKind = "woman-cut"
	ServiceNonbinaryCut ServiceKind = "nonbinary-cut"
	ServiceNone         ServiceKind = "none"
)

// SessionData is the scratch space a call accumulates while walking the menu.
// Fields are only meaningful once the corresponding step has been passed.
type SessionData struct {
	Service          ServiceKind `json:"service,omitempty"`
	SchedulingHandle string      `json:"scheduling_handle,omitempty"`
	Slots            []time.Time `json:"slots,omitempty"`
	SelectedSlot     time.Time   `json:"selected_slot,omitempty"`
	Name             string      `json:"name,omitempty"`
	Phone            string      `json:"phone,omitempty"`
	PhoneAttempts    int         `json:"phone_attempts,omitempty"`
}

// CallSession is the per-call dialog state, keyed by the gateway's call SID.
type CallSession struct {
	CallSID   string      `json:"call_sid"`
	Step      string      `json:"step"`
	UpdatedAt time.Time   `json:"updated_at"`
	Data      SessionData `json:"data"`
}

// NewCallSession returns a fresh session positioned at the voice menu.
func NewCallSession(callSID string, now time.Time) *CallSession {
	return &CallSession{
		CallSID:   callSID,
		Step:      StepMenu,
		UpdatedAt: now,
	}
}

// ResetToMenu drops accumulated data and returns the session to the menu.
func (s *CallSession) ResetToMenu(now time.Time) {
	s.Step = StepMenu
	s.Data = SessionData{}
	s.UpdatedAt = now
}

// Expired reports whether the session has been idle past the TTL.
func (s *CallSession) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.UpdatedAt) > ttl
}

// PendingConfirmation bridges a finished phone call to the web confirmation
// step. The token is the store key and never appears inside the value.
type PendingConfirmation struct {
	ExpiresAt time.Time           `json:"expires_at"`
	Payload   ConfirmationPayload `json:"payload"`
}

// ConfirmationPayload is the immutable snapshot captured when the caller
// confirmed their phone number.
type ConfirmationPayload struct {
	Phone            string      `json:"phone"`
	Name             string      `json:"name"`
	Service          ServiceKind `json:"service"`
	SchedulingHandle string      `json:"scheduling_handle"`
	StartTime        time.Time   `json:"start_time"`
}

// Expired reports whether the confirmation deadline has passed.
func (p *PendingConfirmation) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// Booking is the record returned by the scheduling provider once an
// appointment exists, plus the contact details it was created with.
type Booking struct {
	ID            int64       `json:"id,omitempty"`
	Service       ServiceKind `json:"service"`
	ClientName    string      `json:"client_name"`
	ClientEmail   string      `json:"client_email"`
	ClientPhone   string      `json:"client_phone"`
	StartTime     time.Time   `json:"start_time"`
	RescheduleURL string      `json:"reschedule_url,omitempty"`
	CancelURL     string      `json:"cancel_url,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Service describes one configured salon service: how callers name it and
// which scheduling handle backs it. An empty handle means the service is
// announced but not bookable by phone.
type Service struct {
	Kind             ServiceKind `yaml:"kind"`
	Label            string      `yaml:"label"`
	Keywords         []string    `yaml:"keywords"`
	SchedulingHandle string      `yaml:"scheduling_handle"`
}
