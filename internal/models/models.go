package models

import (
	"time"
)

// UserType distinguishes ordinary members from administrators.
type UserType string

const (
	UserTypeMember UserType = "member"
	UserTypeAdmin  UserType = "admin"
)

// User represents a platform member. Balance is the user's Cares balance and
// is only ever mutated through the ledger.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Password  string    `db:"password" json:"-"` // Password hash, not returned in JSON
	Type      UserType  `db:"user_type" json:"type"`
	Balance   int       `db:"balance" json:"balance"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IsAdmin reports whether the user holds administrator privileges.
func (u *User) IsAdmin() bool {
	return u.Type == UserTypeAdmin
}

// Item is a physical object a member lends out. Items start unavailable and
// become available once an administrator validates them.
type Item struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Commission  int       `db:"commission" json:"commission"` // Cares per hour
	Available   bool      `db:"available" json:"available"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// RelationKind tags an item-user relationship.
type RelationKind string

const (
	RelationOwner    RelationKind = "owner"
	RelationBorrower RelationKind = "borrower"
)

// ItemRelation links an item to a user with a typed role. The schema allows
// at most one relation per (item, kind) pair, so an item has at most one
// owner and one active borrower.
type ItemRelation struct {
	ItemID    string       `db:"item_id" json:"itemId"`
	UserID    string       `db:"user_id" json:"userId"`
	Kind      RelationKind `db:"kind" json:"kind"`
	CreatedAt time.Time    `db:"created_at" json:"createdAt"`
}

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanRequested     LoanStatus = "requested"
	LoanActive        LoanStatus = "active"
	LoanPendingReturn LoanStatus = "pending_return"
	LoanClosed        LoanStatus = "closed"
)

// Loan is a borrow transaction for a single item. StartedAt is set when an
// administrator validates the loan, ReturnedAt when the borrower hands the
// item back. A closed loan is never mutated again.
type Loan struct {
	ID         string     `db:"id" json:"id"`
	ItemID     string     `db:"item_id" json:"itemId"`
	Status     LoanStatus `db:"status" json:"status"`
	StartedAt  *time.Time `db:"started_at" json:"startedAt,omitempty"`
	ReturnedAt *time.Time `db:"returned_at" json:"returnedAt,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
}

// RequestState is the lifecycle state of a help request.
type RequestState string

const (
	RequestPending    RequestState = "pending"
	RequestOpen       RequestState = "open"
	RequestInProgress RequestState = "in_progress"
	RequestCompleted  RequestState = "completed"
	RequestPaid       RequestState = "validated_paid"
	RequestRejected   RequestState = "rejected"
)

// HelpRequest is a task a member posts for volunteers to fulfil.
type HelpRequest struct {
	ID           string       `db:"id" json:"id"`
	RequesterID  string       `db:"requester_id" json:"requesterId"`
	Description  string       `db:"description" json:"description"`
	ScheduledAt  time.Time    `db:"scheduled_at" json:"scheduledAt"`
	HoursNeeded  int          `db:"hours_needed" json:"hoursNeeded"`
	PeopleNeeded int          `db:"people_needed" json:"peopleNeeded"`
	Reward       int          `db:"reward" json:"reward"` // Cares paid out on validated completion
	State        RequestState `db:"state" json:"state"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
}

// VolunteeringStatus tracks what happened to a volunteer application.
type VolunteeringStatus string

const (
	VolunteeringPending  VolunteeringStatus = "pending"
	VolunteeringAccepted VolunteeringStatus = "accepted"
	VolunteeringRejected VolunteeringStatus = "rejected"
)

// Volunteering is a user's application to help with a request. The pair
// (request, user) is unique.
type Volunteering struct {
	RequestID string             `db:"request_id" json:"requestId"`
	UserID    string             `db:"user_id" json:"userId"`
	Status    VolunteeringStatus `db:"status" json:"status"`
	CreatedAt time.Time          `db:"created_at" json:"createdAt"`
}

// TransactionKind tags what a Cares transfer settled.
type TransactionKind string

const (
	KindLoanSettlement TransactionKind = "loan_settlement"
	KindHelpReward     TransactionKind = "help_reward"
)

// CareTransaction is an immutable ledger entry for a Cares transfer. PayerID
// is nil for system-funded payouts (help rewards). Hours is set only for
// loan settlements.
type CareTransaction struct {
	ID        string          `db:"id" json:"id"`
	PayerID   *string         `db:"payer_id" json:"payerId,omitempty"`
	PayeeID   string          `db:"payee_id" json:"payeeId"`
	Amount    int             `db:"amount" json:"amount"`
	Kind      TransactionKind `db:"kind" json:"kind"`
	Hours     *int            `db:"hours" json:"hours,omitempty"`
	LoanID    *string         `db:"loan_id" json:"loanId,omitempty"`
	RequestID *string         `db:"request_id" json:"requestId,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}

// Notification is an entry in a user's mailbox. The state machines only ever
// append; read-state toggling is a client concern.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Message   string    `db:"message" json:"message"`
	Read      bool      `db:"read" json:"read"`
	ItemID    *string   `db:"item_id" json:"itemId,omitempty"`
	RequestID *string   `db:"request_id" json:"requestId,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
