package models

import "time"

// Request models
type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SubmitItemRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Commission  int    `json:"commission" binding:"min=0"`
}

type UpdateDescriptionRequest struct {
	Description string `json:"description" binding:"required"`
}

type CreateHelpRequest struct {
	Description  string    `json:"description" binding:"required"`
	ScheduledAt  time.Time `json:"scheduledAt" binding:"required"`
	HoursNeeded  int       `json:"hoursNeeded" binding:"required,min=1"`
	PeopleNeeded int       `json:"peopleNeeded" binding:"required,min=1"`
	Reward       int       `json:"reward" binding:"min=0"`
}

// Response models
type AuthResponse struct {
	Status    string `json:"status"`
	UserID    string `json:"userId,omitempty"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Balance   int    `json:"balance,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

type ItemResponse struct {
	Status string `json:"status"`
	Item   *Item  `json:"item,omitempty"`
}

type ItemListResponse struct {
	Status string `json:"status"`
	Items  []Item `json:"items"`
}

type LoanResponse struct {
	Status string `json:"status"`
	Loan   *Loan  `json:"loan,omitempty"`
}

// SettlementResponse reports the outcome of a validated return.
type SettlementResponse struct {
	Status string `json:"status"`
	Loan   *Loan  `json:"loan"`
	Hours  int    `json:"hours"`
	Amount int    `json:"amount"`
}

type HelpRequestResponse struct {
	Status  string       `json:"status"`
	Request *HelpRequest `json:"request,omitempty"`
}

type NotificationListResponse struct {
	Status        string         `json:"status"`
	Notifications []Notification `json:"notifications"`
}

type MessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
