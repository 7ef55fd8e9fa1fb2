package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/communicare/server/internal/api"
	"github.com/communicare/server/internal/models"
	"github.com/communicare/server/internal/repository"
	"github.com/communicare/server/internal/service"
)

const jwtSecret = "test-secret-key"

// TestContext holds all dependencies for tests. Each test gets a fresh
// in-memory repository, so there is nothing to clean up.
type TestContext struct {
	Router    *gin.Engine
	Repo      *repository.MemoryRepository
	AdminID   string
	AdminJWT  string
	MemberID  string
	MemberJWT string
}

// SetupTestContext wires the full API stack on top of an in-memory
// repository, with one administrator and one member already registered.
func SetupTestContext(t *testing.T) *TestContext {
	repo := repository.NewMemoryRepository()

	auth := service.NewAuthService(repo, jwtSecret, 50)
	items := service.NewItemService(repo)
	loans := service.NewLoanService(repo)
	help := service.NewHelpService(repo)
	notifications := service.NewNotificationService(repo)

	handler := api.NewHandler(auth, items, loans, help, notifications, []byte(jwtSecret))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler.SetupRoutes(router)

	ctx := &TestContext{Router: router, Repo: repo}
	ctx.AdminID, ctx.AdminJWT = CreateTestUser(t, repo, "admin@example.com", "Admin", models.UserTypeAdmin)
	ctx.MemberID, ctx.MemberJWT = CreateTestUser(t, repo, "member@example.com", "Member", models.UserTypeMember)
	return ctx
}

// CreateTestUser registers a user directly in the repository and returns its
// id with a signed JWT.
func CreateTestUser(t *testing.T, repo *repository.MemoryRepository, email, name string, userType models.UserType) (string, string) {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("testpassword"), bcrypt.DefaultCost)

	user := &models.User{
		Email:    email,
		Name:     name,
		Password: string(hashedPassword),
		Type:     userType,
		Balance:  50,
	}
	err := repo.CreateUser(context.Background(), user)
	assert.NoError(t, err, "Failed to create test user")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})

	tokenString, err := token.SignedString([]byte(jwtSecret))
	assert.NoError(t, err, "Failed to generate JWT token")

	return user.ID, tokenString
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}
