package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/communicare/server/internal/models"
	"github.com/communicare/server/internal/repository"
	"github.com/communicare/server/internal/service"
)

func helpInput(reward int) models.CreateHelpRequest {
	return models.CreateHelpRequest{
		Description:  "Help moving furniture",
		ScheduledAt:  time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		HoursNeeded:  2,
		PeopleNeeded: 1,
		Reward:       reward,
	}
}

func TestHelpRequestLifecycle(t *testing.T) {
	repo := repository.NewMemoryRepository()
	help := service.NewHelpService(repo)
	ctx := context.Background()

	admin := seedUser(t, repo, "admin", "Admin", models.UserTypeAdmin, 0)
	requester := seedUser(t, repo, "requester", "Requester", models.UserTypeMember, 50)
	volunteer := seedUser(t, repo, "volunteer", "Volunteer", models.UserTypeMember, 50)

	request, err := help.Create(ctx, requester.ID, helpInput(10))
	assert.NoError(t, err)
	assert.Equal(t, models.RequestPending, request.State)

	// Admins get a moderation notification.
	ns, err := repo.ListNotifications(ctx, admin.ID)
	assert.NoError(t, err)
	assert.Len(t, ns, 1)

	request, err = help.ValidateOpen(ctx, request.ID, admin.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.RequestOpen, request.State)

	// Everyone but the requester hears about the open request.
	ns, err = repo.ListNotifications(ctx, volunteer.ID)
	assert.NoError(t, err)
	assert.Len(t, ns, 1)
	ns, err = repo.ListNotifications(ctx, requester.ID)
	assert.NoError(t, err)
	assert.Empty(t, ns)

	err = help.Volunteer(ctx, request.ID, volunteer.ID)
	assert.NoError(t, err)

	request, err = help.AcceptVolunteer(ctx, request.ID, admin.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.RequestInProgress, request.State)

	request, err = help.Complete(ctx, request.ID, requester.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.RequestCompleted, request.State)

	request, err = help.ValidateCompletion(ctx, request.ID, admin.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.RequestPaid, request.State)

	// The reward is platform-funded: the requester is credited and nobody
	// is debited.
	assert.Equal(t, 60, userBalance(t, repo, requester.ID))
	assert.Equal(t, 50, userBalance(t, repo, volunteer.ID))

	txs, err := repo.ListTransactionsForUser(ctx, requester.ID)
	assert.NoError(t, err)
	assert.Len(t, txs, 1)
	assert.Equal(t, models.KindHelpReward, txs[0].Kind)
	assert.Nil(t, txs[0].PayerID)
	assert.Equal(t, 10, txs[0].Amount)

	// And it is paid exactly once.
	_, err = help.ValidateCompletion(ctx, request.ID, admin.ID)
	assert.ErrorIs(t, err, service.ErrNotCompleted)
	assert.Equal(t, 60, userBalance(t, repo, requester.ID))
}

func TestCreateHelpRequestInvalidInput(t *testing.T) {
	repo := repository.NewMemoryRepository()
	help := service.NewHelpService(repo)
	requester := seedUser(t, repo, "requester", "Requester", models.UserTypeMember, 50)

	in := helpInput(10)
	in.Description = "   "
	_, err := help.Create(context.Background(), requester.ID, in)
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	in = helpInput(10)
	in.HoursNeeded = 0
	_, err = help.Create(context.Background(), requester.ID, in)
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	in = helpInput(-5)
	_, err = help.Create(context.Background(), requester.ID, in)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestRejectHelpRequest(t *testing.T) {
	repo := repository.NewMemoryRepository()
	help := service.NewHelpService(repo)
	ctx := context.Background()

	admin := seedUser(t, repo, "admin", "Admin", models.UserTypeAdmin, 0)
	requester := seedUser(t, repo, "requester", "Requester", models.UserTypeMember, 50)

	request, err := help.Create(ctx, requester.ID, helpInput(10))
	assert.NoError(t, err)

	request, err = help.Reject(ctx, request.ID, admin.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.RequestRejected, request.State)

	// A decided request cannot be reopened or re-rejected.
	_, err = help.ValidateOpen(ctx, request.ID, admin.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyDecided)
	_, err = help.Reject(ctx, request.ID, admin.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyDecided)

	ns, err := repo.ListNotifications(ctx, requester.ID)
	assert.NoError(t, err)
	assert.Len(t, ns, 1)
}

func TestVolunteer(t *testing.T) {
	repo := repository.NewMemoryRepository()
	help := service.NewHelpService(repo)
	ctx := context.Background()

	admin := seedUser(t, repo, "admin", "Admin", models.UserTypeAdmin, 0)
	requester := seedUser(t, repo, "requester", "Requester", models.UserTypeMember, 50)
	volunteer := seedUser(t, repo, "volunteer", "Volunteer", models.UserTypeMember, 50)

	request, err := help.Create(ctx, requester.ID, helpInput(10))
	assert.NoError(t, err)

	// Volunteering on a pending request fails.
	err = help.Volunteer(ctx, request.ID, volunteer.ID)
	assert.ErrorIs(t, err, service.ErrNotOpen)

	_, err = help.ValidateOpen(ctx, request.ID, admin.ID)
	assert.NoError(t, err)

	err = help.Volunteer(ctx, request.ID, volunteer.ID)
	assert.NoError(t, err)

	// At most one application per user per request.
	err = help.Volunteer(ctx, request.ID, volunteer.ID)
	assert.ErrorIs(t, err, service.ErrDuplicate)
}

func TestAcceptVolunteerTakesEarliest(t *testing.T) {
	repo := repository.NewMemoryRepository()
	help := service.NewHelpService(repo)
	ctx := context.Background()

	admin := seedUser(t, repo, "admin", "Admin", models.UserTypeAdmin, 0)
	requester := seedUser(t, repo, "requester", "Requester", models.UserTypeMember, 50)
	first := seedUser(t, repo, "volunteer-a", "First", models.UserTypeMember, 50)
	second := seedUser(t, repo, "volunteer-b", "Second", models.UserTypeMember, 50)

	request, err := help.Create(ctx, requester.ID, helpInput(10))
	assert.NoError(t, err)
	_, err = help.ValidateOpen(ctx, request.ID, admin.ID)
	assert.NoError(t, err)

	assert.NoError(t, help.Volunteer(ctx, request.ID, first.ID))
	assert.NoError(t, help.Volunteer(ctx, request.ID, second.ID))

	_, err = help.AcceptVolunteer(ctx, request.ID, admin.ID)
	assert.NoError(t, err)

	accepted, err := repo.AcceptedVolunteering(ctx, request.ID)
	assert.NoError(t, err)
	assert.NotNil(t, accepted)
	assert.Equal(t, first.ID, accepted.UserID)

	// The request is no longer open, so the second volunteer stays pending
	// and further admin decisions fail.
	_, err = help.AcceptVolunteer(ctx, request.ID, admin.ID)
	assert.ErrorIs(t, err, service.ErrNotOpen)
}

func TestAcceptVolunteerWithoutApplicants(t *testing.T) {
	repo := repository.NewMemoryRepository()
	help := service.NewHelpService(repo)
	ctx := context.Background()

	admin := seedUser(t, repo, "admin", "Admin", models.UserTypeAdmin, 0)
	requester := seedUser(t, repo, "requester", "Requester", models.UserTypeMember, 50)

	request, err := help.Create(ctx, requester.ID, helpInput(10))
	assert.NoError(t, err)
	_, err = help.ValidateOpen(ctx, request.ID, admin.ID)
	assert.NoError(t, err)

	_, err = help.AcceptVolunteer(ctx, request.ID, admin.ID)
	assert.ErrorIs(t, err, service.ErrNoVolunteer)
}

func TestRejectVolunteerKeepsRequestOpen(t *testing.T) {
	repo := repository.NewMemoryRepository()
	help := service.NewHelpService(repo)
	ctx := context.Background()

	admin := seedUser(t, repo, "admin", "Admin", models.UserTypeAdmin, 0)
	requester := seedUser(t, repo, "requester", "Requester", models.UserTypeMember, 50)
	volunteer := seedUser(t, repo, "volunteer", "Volunteer", models.UserTypeMember, 50)

	request, err := help.Create(ctx, requester.ID, helpInput(10))
	assert.NoError(t, err)
	_, err = help.ValidateOpen(ctx, request.ID, admin.ID)
	assert.NoError(t, err)
	assert.NoError(t, help.Volunteer(ctx, request.ID, volunteer.ID))

	err = help.RejectVolunteer(ctx, request.ID, admin.ID)
	assert.NoError(t, err)

	got, err := help.Get(ctx, request.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.RequestOpen, got.State)

	// The rejected application is spent; there is nobody left to accept.
	_, err = help.AcceptVolunteer(ctx, request.ID, admin.ID)
	assert.ErrorIs(t, err, service.ErrNoVolunteer)
}

func TestCompleteOnlyByRequester(t *testing.T) {
	repo := repository.NewMemoryRepository()
	help := service.NewHelpService(repo)
	ctx := context.Background()

	admin := seedUser(t, repo, "admin", "Admin", models.UserTypeAdmin, 0)
	requester := seedUser(t, repo, "requester", "Requester", models.UserTypeMember, 50)
	volunteer := seedUser(t, repo, "volunteer", "Volunteer", models.UserTypeMember, 50)

	request, err := help.Create(ctx, requester.ID, helpInput(10))
	assert.NoError(t, err)
	_, err = help.ValidateOpen(ctx, request.ID, admin.ID)
	assert.NoError(t, err)
	assert.NoError(t, help.Volunteer(ctx, request.ID, volunteer.ID))
	_, err = help.AcceptVolunteer(ctx, request.ID, admin.ID)
	assert.NoError(t, err)

	// Neither the volunteer nor an admin may complete on the requester's
	// behalf.
	_, err = help.Complete(ctx, request.ID, volunteer.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = help.Complete(ctx, request.ID, admin.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = help.Complete(ctx, request.ID, requester.ID)
	assert.NoError(t, err)
}

func TestValidateCompletionRequiresCompletedState(t *testing.T) {
	repo := repository.NewMemoryRepository()
	help := service.NewHelpService(repo)
	ctx := context.Background()

	admin := seedUser(t, repo, "admin", "Admin", models.UserTypeAdmin, 0)
	requester := seedUser(t, repo, "requester", "Requester", models.UserTypeMember, 50)

	request, err := help.Create(ctx, requester.ID, helpInput(10))
	assert.NoError(t, err)

	_, err = help.ValidateCompletion(ctx, request.ID, admin.ID)
	assert.ErrorIs(t, err, service.ErrNotCompleted)

	// Non-admins cannot validate completion at all.
	_, err = help.ValidateCompletion(ctx, request.ID, requester.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)
}
