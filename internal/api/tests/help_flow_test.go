package api_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/communicare/server/internal/api/testutils"
	"github.com/communicare/server/internal/models"
)

func createHelpBody() models.CreateHelpRequest {
	return models.CreateHelpRequest{
		Description:  "Help moving furniture",
		ScheduledAt:  time.Now().Add(48 * time.Hour).UTC(),
		HoursNeeded:  2,
		PeopleNeeded: 1,
		Reward:       10,
	}
}

func TestHelpRequestFlow(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	_, volunteerJWT := testutils.CreateTestUser(t, testCtx.Repo, "volunteer@example.com", "Volunteer", models.UserTypeMember)

	// Member posts a request.
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/help-requests",
		createHelpBody(),
		testutils.AuthHeaders(testCtx.MemberJWT),
	)
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp models.HelpRequestResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	requestID := resp.Request.ID
	assert.Equal(t, models.RequestPending, resp.Request.State)

	// Volunteering before moderation fails.
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/help-requests/"+requestID+"/volunteer",
		nil,
		testutils.AuthHeaders(volunteerJWT),
	)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Admin opens the request.
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/help-requests/"+requestID+"/validate",
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/help-requests/"+requestID+"/volunteer",
		nil,
		testutils.AuthHeaders(volunteerJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	// A second application by the same user is a conflict.
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/help-requests/"+requestID+"/volunteer",
		nil,
		testutils.AuthHeaders(volunteerJWT),
	)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/help-requests/"+requestID+"/accept-volunteer",
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	// Only the requester may complete.
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/help-requests/"+requestID+"/complete",
		nil,
		testutils.AuthHeaders(volunteerJWT),
	)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/help-requests/"+requestID+"/complete",
		nil,
		testutils.AuthHeaders(testCtx.MemberJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/help-requests/"+requestID+"/validate-completion",
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.RequestPaid, resp.Request.State)

	// The volunteer got a mailbox entry for each step that touched them.
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/notifications",
		nil,
		testutils.AuthHeaders(volunteerJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	var notifications models.NotificationListResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &notifications))
	assert.NotEmpty(t, notifications.Notifications)
}

func TestRejectHelpRequestFlow(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/help-requests",
		createHelpBody(),
		testutils.AuthHeaders(testCtx.MemberJWT),
	)
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp models.HelpRequestResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	requestID := resp.Request.ID

	// Members cannot moderate.
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/help-requests/"+requestID+"/reject",
		nil,
		testutils.AuthHeaders(testCtx.MemberJWT),
	)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/help-requests/"+requestID+"/reject",
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	// A rejected request cannot be opened afterwards.
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/help-requests/"+requestID+"/validate",
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusConflict, w.Code)
}
