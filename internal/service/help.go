package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/communicare/server/internal/models"
	"github.com/communicare/server/internal/repository"
)

// HelpService governs the help request lifecycle:
// pending -> open -> in_progress -> completed -> validated_paid, with
// rejection possible while pending. Admin decisions on volunteers always
// pick the earliest pending application.
type HelpService struct {
	repo   repository.Repository
	ledger Ledger
}

// NewHelpService creates a new HelpService.
func NewHelpService(repo repository.Repository) *HelpService {
	return &HelpService{repo: repo}
}

// Create posts a new help request in the pending state and notifies all
// admins for moderation.
func (s *HelpService) Create(ctx context.Context, requesterID string, req models.CreateHelpRequest) (*models.HelpRequest, error) {
	if strings.TrimSpace(req.Description) == "" || req.HoursNeeded <= 0 || req.PeopleNeeded <= 0 || req.Reward < 0 {
		return nil, ErrInvalidInput
	}

	var request *models.HelpRequest
	err := s.repo.Transact(ctx, func(st repository.Store) error {
		requester, err := st.GetUserByID(ctx, requesterID)
		if err != nil {
			return fmt.Errorf("error getting user: %w", err)
		}
		if requester == nil {
			return ErrNotFound
		}

		request = &models.HelpRequest{
			RequesterID:  requesterID,
			Description:  req.Description,
			ScheduledAt:  req.ScheduledAt,
			HoursNeeded:  req.HoursNeeded,
			PeopleNeeded: req.PeopleNeeded,
			Reward:       req.Reward,
			State:        models.RequestPending,
		}
		if err := st.CreateHelpRequest(ctx, request); err != nil {
			return fmt.Errorf("error creating help request: %w", err)
		}

		msg := fmt.Sprintf("A new help request was created by %s.", requester.Name)
		return notifyAdmins(ctx, st, msg, nil, &request.ID)
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// ValidateOpen approves a pending request, opening it to volunteers and
// announcing it to every other user. Admin-only.
func (s *HelpService) ValidateOpen(ctx context.Context, requestID, adminID string) (*models.HelpRequest, error) {
	var request *models.HelpRequest
	err := s.repo.Transact(ctx, func(st repository.Store) error {
		if _, err := requireAdmin(ctx, st, adminID); err != nil {
			return err
		}

		var err error
		request, err = st.GetHelpRequestForUpdate(ctx, requestID)
		if err != nil {
			return fmt.Errorf("error getting help request: %w", err)
		}
		if request == nil {
			return ErrNotFound
		}
		if request.State != models.RequestPending {
			return ErrAlreadyDecided
		}

		if err := st.SetHelpRequestState(ctx, requestID, models.RequestOpen); err != nil {
			return fmt.Errorf("error updating help request: %w", err)
		}
		request.State = models.RequestOpen

		requester, err := st.GetUserByID(ctx, request.RequesterID)
		if err != nil {
			return fmt.Errorf("error getting requester: %w", err)
		}
		name := "A member"
		if requester != nil {
			name = requester.Name
		}

		msg := fmt.Sprintf("%s posted a new help request.", name)
		return notifyAllExcept(ctx, st, request.RequesterID, msg, nil, &request.ID)
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// Reject declines a pending request and notifies the requester. Admin-only.
func (s *HelpService) Reject(ctx context.Context, requestID, adminID string) (*models.HelpRequest, error) {
	var request *models.HelpRequest
	err := s.repo.Transact(ctx, func(st repository.Store) error {
		if _, err := requireAdmin(ctx, st, adminID); err != nil {
			return err
		}

		var err error
		request, err = st.GetHelpRequestForUpdate(ctx, requestID)
		if err != nil {
			return fmt.Errorf("error getting help request: %w", err)
		}
		if request == nil {
			return ErrNotFound
		}
		if request.State != models.RequestPending {
			return ErrAlreadyDecided
		}

		if err := st.SetHelpRequestState(ctx, requestID, models.RequestRejected); err != nil {
			return fmt.Errorf("error updating help request: %w", err)
		}
		request.State = models.RequestRejected

		msg := "Your help request was rejected by an administrator."
		return notify(ctx, st, request.RequesterID, msg, nil, &request.ID)
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// Volunteer registers a user's application to help with an open request.
// A user may volunteer at most once per request.
func (s *HelpService) Volunteer(ctx context.Context, requestID, userID string) error {
	return s.repo.Transact(ctx, func(st repository.Store) error {
		user, err := st.GetUserByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("error getting user: %w", err)
		}
		if user == nil {
			return ErrNotFound
		}

		request, err := st.GetHelpRequestForUpdate(ctx, requestID)
		if err != nil {
			return fmt.Errorf("error getting help request: %w", err)
		}
		if request == nil {
			return ErrNotFound
		}
		if request.State != models.RequestOpen {
			return ErrNotOpen
		}

		v := &models.Volunteering{
			RequestID: requestID,
			UserID:    userID,
			Status:    models.VolunteeringPending,
		}
		if err := st.CreateVolunteering(ctx, v); err != nil {
			if err == repository.ErrDuplicate {
				return ErrDuplicate
			}
			return fmt.Errorf("error creating volunteering: %w", err)
		}

		msg := fmt.Sprintf("%s volunteered for a help request.", user.Name)
		return notifyAdmins(ctx, st, msg, nil, &requestID)
	})
}

// AcceptVolunteer accepts the earliest pending volunteer and moves the
// request to in_progress. Admin-only.
func (s *HelpService) AcceptVolunteer(ctx context.Context, requestID, adminID string) (*models.HelpRequest, error) {
	var request *models.HelpRequest
	err := s.repo.Transact(ctx, func(st repository.Store) error {
		if _, err := requireAdmin(ctx, st, adminID); err != nil {
			return err
		}

		var err error
		request, err = st.GetHelpRequestForUpdate(ctx, requestID)
		if err != nil {
			return fmt.Errorf("error getting help request: %w", err)
		}
		if request == nil {
			return ErrNotFound
		}
		if request.State != models.RequestOpen {
			return ErrNotOpen
		}

		v, err := st.FirstPendingVolunteering(ctx, requestID)
		if err != nil {
			return fmt.Errorf("error getting volunteering: %w", err)
		}
		if v == nil {
			return ErrNoVolunteer
		}

		if err := st.SetVolunteeringStatus(ctx, requestID, v.UserID, models.VolunteeringAccepted); err != nil {
			return fmt.Errorf("error updating volunteering: %w", err)
		}
		if err := st.SetHelpRequestState(ctx, requestID, models.RequestInProgress); err != nil {
			return fmt.Errorf("error updating help request: %w", err)
		}
		request.State = models.RequestInProgress

		msg := "You were accepted as a volunteer for a help request."
		if err := notify(ctx, st, v.UserID, msg, nil, &requestID); err != nil {
			return err
		}
		msg = "A volunteer was accepted for your help request."
		return notify(ctx, st, request.RequesterID, msg, nil, &requestID)
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// RejectVolunteer declines the earliest pending volunteer, leaving the
// request open. Admin-only.
func (s *HelpService) RejectVolunteer(ctx context.Context, requestID, adminID string) error {
	return s.repo.Transact(ctx, func(st repository.Store) error {
		if _, err := requireAdmin(ctx, st, adminID); err != nil {
			return err
		}

		request, err := st.GetHelpRequestForUpdate(ctx, requestID)
		if err != nil {
			return fmt.Errorf("error getting help request: %w", err)
		}
		if request == nil {
			return ErrNotFound
		}
		if request.State != models.RequestOpen {
			return ErrNotOpen
		}

		v, err := st.FirstPendingVolunteering(ctx, requestID)
		if err != nil {
			return fmt.Errorf("error getting volunteering: %w", err)
		}
		if v == nil {
			return ErrNoVolunteer
		}

		if err := st.SetVolunteeringStatus(ctx, requestID, v.UserID, models.VolunteeringRejected); err != nil {
			return fmt.Errorf("error updating volunteering: %w", err)
		}

		msg := "Your volunteer application for a help request was rejected."
		return notify(ctx, st, v.UserID, msg, nil, &requestID)
	})
}

// Complete marks an in-progress request as done. Only the original
// requester may complete their request; admins are notified to validate.
func (s *HelpService) Complete(ctx context.Context, requestID, userID string) (*models.HelpRequest, error) {
	var request *models.HelpRequest
	err := s.repo.Transact(ctx, func(st repository.Store) error {
		var err error
		request, err = st.GetHelpRequestForUpdate(ctx, requestID)
		if err != nil {
			return fmt.Errorf("error getting help request: %w", err)
		}
		if request == nil {
			return ErrNotFound
		}
		if request.RequesterID != userID {
			return ErrForbidden
		}
		if request.State != models.RequestInProgress {
			return ErrNotInProgress
		}

		if err := st.SetHelpRequestState(ctx, requestID, models.RequestCompleted); err != nil {
			return fmt.Errorf("error updating help request: %w", err)
		}
		request.State = models.RequestCompleted

		requester, err := st.GetUserByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("error getting requester: %w", err)
		}
		name := "A member"
		if requester != nil {
			name = requester.Name
		}

		msg := fmt.Sprintf("%s marked a help request as completed. Please validate the completion.", name)
		return notifyAdmins(ctx, st, msg, nil, &requestID)
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// ValidateCompletion pays the request's reward to the requester from the
// platform (system-funded, no payer balance check) and finalizes the
// request. The accepted volunteer is thanked. Admin-only.
func (s *HelpService) ValidateCompletion(ctx context.Context, requestID, adminID string) (*models.HelpRequest, error) {
	var request *models.HelpRequest
	err := s.repo.Transact(ctx, func(st repository.Store) error {
		if _, err := requireAdmin(ctx, st, adminID); err != nil {
			return err
		}

		var err error
		request, err = st.GetHelpRequestForUpdate(ctx, requestID)
		if err != nil {
			return fmt.Errorf("error getting help request: %w", err)
		}
		if request == nil {
			return ErrNotFound
		}
		if request.State != models.RequestCompleted {
			return ErrNotCompleted
		}

		tx := &models.CareTransaction{
			PayeeID:   request.RequesterID,
			Amount:    request.Reward,
			Kind:      models.KindHelpReward,
			RequestID: &request.ID,
		}
		if err := s.ledger.Transfer(ctx, st, tx); err != nil {
			return err
		}

		if err := st.SetHelpRequestState(ctx, requestID, models.RequestPaid); err != nil {
			return fmt.Errorf("error updating help request: %w", err)
		}
		request.State = models.RequestPaid

		v, err := st.AcceptedVolunteering(ctx, requestID)
		if err != nil {
			return fmt.Errorf("error getting volunteering: %w", err)
		}
		if v != nil {
			msg := "The help request you volunteered for was completed. Thank you for your help!"
			return notify(ctx, st, v.UserID, msg, nil, &requestID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// Get returns a single help request.
func (s *HelpService) Get(ctx context.Context, requestID string) (*models.HelpRequest, error) {
	request, err := s.repo.GetHelpRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("error getting help request: %w", err)
	}
	if request == nil {
		return nil, ErrNotFound
	}
	return request, nil
}
