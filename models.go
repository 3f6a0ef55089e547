package lodging

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is the account's role
type Role = string

const (
	// RoleUser is a regular applicant account
	RoleUser Role = "user"
	// RoleAdmin is an administrator account, allowed into the admin section
	RoleAdmin Role = "admin"
)

// ApplicationStatus is the lifecycle status of an accommodation application
type ApplicationStatus = string

const (
	// StatusPending is the initial status of every application
	StatusPending ApplicationStatus = "pending"
	// StatusAccepted is a terminal status
	StatusAccepted ApplicationStatus = "accepted"
	// StatusDenied is a terminal status
	StatusDenied ApplicationStatus = "denied"
)

// Account is the account model. The identity provider subject is stored
// verbatim in SubjectID; ID is derived deterministically from it so lookups
// by either succeed.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acct"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"-"`
	SubjectID     string     `bun:"subject_id,notnull,unique" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Name          string     `bun:"name" json:"name,omitempty"`
	Role          Role       `bun:"account_role,notnull" json:"role,omitempty"`
	EmailVerified bool       `bun:"is_email_verified" json:"email_verified,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsAdmin reports whether the account holds the admin role.
func (a *Account) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// EnsureRole applies the default role when none was persisted.
func (a *Account) EnsureRole() {
	if a != nil && a.Role == "" {
		a.Role = RoleUser
	}
}

// Application is a user's accommodation request, one per account.
type Application struct {
	bun.BaseModel     `bun:"table:applications,alias:app"`
	ID                uuid.UUID             `bun:"id,pk,nullzero,type:uuid" json:"-"`
	AccountID         uuid.UUID             `bun:"account_id,notnull,unique,type:uuid" json:"-"`
	Account           *Account              `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`
	AccommodationType string                `bun:"accommodation_type,notnull" json:"accommodation_type,omitempty"`
	Location          string                `bun:"location,notnull" json:"location,omitempty"`
	Status            ApplicationStatus     `bun:"status,notnull" json:"status,omitempty"`
	DateSubmitted     time.Time             `bun:"date_submitted,notnull" json:"date_submitted,omitempty"`
	Log               []*CommunicationEntry `bun:"rel:has-many,join:id=application_id" json:"communication_log"`
}

// IsTerminal reports whether the application reached a final decision.
func (a *Application) IsTerminal() bool {
	if a == nil {
		return false
	}
	return a.Status == StatusAccepted || a.Status == StatusDenied
}

// EnsureStatus applies the initial status when none was persisted.
func (a *Application) EnsureStatus() {
	if a != nil && a.Status == "" {
		a.Status = StatusPending
	}
}

// CommunicationEntry is one message on an application's communication log.
// Entries are append-only: rows are inserted, never updated or removed, and
// read back in chronological order.
type CommunicationEntry struct {
	bun.BaseModel `bun:"table:communication_entries,alias:comm"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"-"`
	ApplicationID uuid.UUID `bun:"application_id,notnull,type:uuid" json:"-"`
	Message       string    `bun:"message,notnull" json:"message"`
	SentBy        Role      `bun:"sent_by,notnull" json:"sent_by"`
	SentAt        time.Time `bun:"sent_at,notnull" json:"timestamp"`
}

// ApplicationDetails is the caller-supplied portion of a submission.
type ApplicationDetails struct {
	AccommodationType string `json:"accommodation_type"`
	Location          string `json:"location"`
}
