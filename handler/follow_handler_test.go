package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"followgraph-service/middleware"
	"followgraph-service/model"
	"followgraph-service/service"
	"followgraph-service/validate"
)

const testSecret = "test-secret"

type mockService struct {
	isFollowing  bool
	followErr    error
	toggleResult bool
	count        int32
	entries      []models.FollowEntry
	statuses     map[string]bool

	lastFollower string
	lastTarget   string
}

func (m *mockService) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	m.lastFollower, m.lastTarget = followerID, followingID
	return m.isFollowing, nil
}

func (m *mockService) FollowUser(ctx context.Context, followerID, followingID string) (*models.Follow, error) {
	m.lastFollower, m.lastTarget = followerID, followingID
	if m.followErr != nil {
		return nil, m.followErr
	}
	follower, err := validate.Identifier("follower_id", followerID)
	if err != nil {
		return nil, err
	}
	following, err := validate.Identifier("following_id", followingID)
	if err != nil {
		return nil, err
	}
	return &models.Follow{
		ID:          uuid.New(),
		FollowerID:  follower,
		FollowingID: following,
		CreatedAt:   time.Now(),
	}, nil
}

func (m *mockService) UnfollowUser(ctx context.Context, followerID, followingID string) error {
	m.lastFollower, m.lastTarget = followerID, followingID
	return nil
}

func (m *mockService) ToggleFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	m.lastFollower, m.lastTarget = followerID, followingID
	return m.toggleResult, nil
}

func (m *mockService) GetFollowersCount(ctx context.Context, userID string) (int32, error) {
	return m.count, nil
}

func (m *mockService) GetFollowingCount(ctx context.Context, userID string) (int32, error) {
	return m.count, nil
}

func (m *mockService) GetFollowers(ctx context.Context, userID string, limit, offset int32) ([]models.FollowEntry, error) {
	return m.entries, nil
}

func (m *mockService) GetFollowing(ctx context.Context, userID string, limit, offset int32) ([]models.FollowEntry, error) {
	return m.entries, nil
}

func (m *mockService) BatchCheckFollowStatus(ctx context.Context, followerID string, targetIDs []string) (map[string]bool, error) {
	m.lastFollower = followerID
	return m.statuses, nil
}

func newRouter(svc service.FollowGraphService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewFollowHandler(svc, middleware.NewAuthMiddleware(testSecret))
	h.RegisterRoutes(r)
	return r
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &middleware.Claims{UserID: userID})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return "Bearer " + signed
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return env
}

func TestFollowRequiresAuth(t *testing.T) {
	r := newRouter(&mockService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/"+uuid.New().String()+"/follow", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if env := decode(t, w); env.Success {
		t.Error("expected success=false")
	}
}

func TestFollowHappyPath(t *testing.T) {
	svc := &mockService{}
	r := newRouter(svc)

	follower := uuid.New().String()
	target := uuid.New().String()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/"+target+"/follow", nil)
	req.Header.Set("Authorization", bearerToken(t, follower))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if svc.lastFollower != follower || svc.lastTarget != target {
		t.Errorf("expected service call (%s, %s), got (%s, %s)",
			follower, target, svc.lastFollower, svc.lastTarget)
	}
	if env := decode(t, w); !env.Success {
		t.Error("expected success=true")
	}
}

func TestFollowErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"self follow", service.ErrSelfFollow, http.StatusBadRequest},
		{"already following", service.ErrAlreadyFollowing, http.StatusConflict},
		{"invalid id", &validate.InvalidIdentifierError{Field: "following_id", Reason: "not a valid UUID"}, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(&mockService{followErr: tc.err})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/users/"+uuid.New().String()+"/follow", nil)
			req.Header.Set("Authorization", bearerToken(t, uuid.New().String()))
			r.ServeHTTP(w, req)

			if w.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, w.Code, w.Body.String())
			}
			if env := decode(t, w); env.Success || env.Error == "" {
				t.Error("expected an error envelope")
			}
		})
	}
}

func TestGetFollowersCount(t *testing.T) {
	r := newRouter(&mockService{count: 17})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/"+uuid.New().String()+"/followers/count", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var data struct {
		Count int32 `json:"count"`
	}
	env := decode(t, w)
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Count != 17 {
		t.Errorf("expected count 17, got %d", data.Count)
	}
}

func TestToggleReturnsState(t *testing.T) {
	r := newRouter(&mockService{toggleResult: true})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/"+uuid.New().String()+"/follow/toggle", nil)
	req.Header.Set("Authorization", bearerToken(t, uuid.New().String()))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var data struct {
		IsFollowing bool `json:"is_following"`
	}
	env := decode(t, w)
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if !data.IsFollowing {
		t.Error("expected is_following true")
	}
}

func TestBatchCheckFollowStatus(t *testing.T) {
	target := uuid.New().String()
	svc := &mockService{statuses: map[string]bool{target: true}}
	r := newRouter(svc)

	body, _ := json.Marshal(map[string][]string{"target_ids": {target}})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		"/api/v1/users/"+uuid.New().String()+"/following/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var data struct {
		Results map[string]bool `json:"results"`
	}
	env := decode(t, w)
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if !data.Results[target] {
		t.Error("expected target marked as followed")
	}
}

func TestBatchCheckRejectsMissingBody(t *testing.T) {
	r := newRouter(&mockService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		"/api/v1/users/"+uuid.New().String()+"/following/status", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
