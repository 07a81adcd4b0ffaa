package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"usfconnect.africa/internal/access"
	"usfconnect.africa/internal/activity"
	"usfconnect.africa/internal/auth"
	"usfconnect.africa/internal/cache"
	"usfconnect.africa/internal/directory"
	"usfconnect.africa/internal/ids"
	"usfconnect.africa/internal/roles"
	"usfconnect.africa/internal/stats"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

// --- test doubles ---

type stubCounter struct{}

func (stubCounter) Count(ctx context.Context, entity string) (int64, error) {
	return 10, nil
}

func (stubCounter) CountSince(ctx context.Context, entity, field string, cutoff time.Time) (int64, error) {
	return 2, nil
}

type stubFeeds struct{}

func (stubFeeds) RecentProjects(ctx context.Context, limit int) ([]activity.ProjectRow, error) {
	return []activity.ProjectRow{
		{ID: "p1", Name: "Rural Broadband", Country: "Kenya", CreatedAt: time.Now().UTC().Add(-time.Hour)},
	}, nil
}

func (stubFeeds) RecentDocuments(ctx context.Context, limit int) ([]activity.DocumentRow, error) {
	return []activity.DocumentRow{
		{ID: "d1", Title: "Annual Report", Country: "Ghana", UploadedAt: time.Now().UTC().Add(-2 * time.Hour)},
	}, nil
}

func (stubFeeds) RecentEvents(ctx context.Context, limit int) ([]activity.EventRow, error) {
	return nil, nil
}

func (stubFeeds) RecentDiscussions(ctx context.Context, limit int) ([]activity.DiscussionRow, error) {
	return nil, nil
}

type memberStore struct {
	mu      sync.Mutex
	members map[string]directory.Member
}

func newMemberStore() *memberStore {
	return &memberStore{members: make(map[string]directory.Member)}
}

func (s *memberStore) CreateMember(ctx context.Context, m directory.Member) (directory.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.members {
		if existing.Email == m.Email {
			return directory.Member{}, directory.ErrConflict
		}
	}
	m.ID = ids.New()
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt
	s.members[m.ID] = m
	return m, nil
}

func (s *memberStore) GetMember(ctx context.Context, id string) (directory.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return directory.Member{}, directory.ErrNotFound
	}
	return m, nil
}

func (s *memberStore) GetMemberByEmail(ctx context.Context, email string) (directory.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.Email == email {
			return m, nil
		}
	}
	return directory.Member{}, directory.ErrNotFound
}

func (s *memberStore) ListMembers(ctx context.Context, country string) ([]directory.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []directory.Member
	for _, m := range s.members {
		if country == "" || m.Country == country {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memberStore) UpdateMemberRole(ctx context.Context, id string, role roles.Role) (directory.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return directory.Member{}, directory.ErrNotFound
	}
	m.Role = role
	s.members[id] = m
	return m, nil
}

// --- harness ---

func newTestAPI(t *testing.T) (*apiClient, *directory.Service) {
	t.Helper()

	t.Setenv("CONNECT_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()

	statsSvc, err := stats.NewService(stubCounter{}, stats.WithCache(cache.New(time.Minute)))
	if err != nil {
		t.Fatalf("stats.NewService: %v", err)
	}
	dirSvc, err := directory.NewService(newMemberStore())
	if err != nil {
		t.Fatalf("directory.NewService: %v", err)
	}

	api := New(ReadyProbe{}, "test", statsSvc, stubFeeds{}, dirSvc)
	api.rateBurst = 100
	api.ratePerSec = 100

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}, dirSvc
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func bearerFor(t *testing.T, memberID string, role roles.Role) map[string]string {
	t.Helper()
	token, err := auth.GenerateToken(memberID, role, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// --- tests ---

func TestHealthz(t *testing.T) {
	c, _ := newTestAPI(t)
	resp := c.get("/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body map[string]any
	decodeBody(t, resp, &body)
	if body["service"] != "connect-api" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestHomeStatsPublic(t *testing.T) {
	c, _ := newTestAPI(t)
	resp := c.get("/v1/stats/home", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var snap stats.Snapshot
	decodeBody(t, resp, &snap)
	if snap.Metrics["projects"] != 10 || snap.Metrics["projects_this_quarter"] != 2 {
		t.Fatalf("unexpected metrics: %v", snap.Metrics)
	}
	if snap.RefreshedAt.IsZero() {
		t.Fatal("refreshed_at must be set")
	}
}

func TestAdvancedStatsRequiresPermission(t *testing.T) {
	c, _ := newTestAPI(t)

	resp := c.get("/v1/stats/advanced", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous: status %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.get("/v1/stats/advanced", nil, bearerFor(t, "m-reader", roles.Reader))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("reader: status %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.get("/v1/stats/advanced", nil, bearerFor(t, "m-focal", roles.FocalPoint))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("focal_point: status %d, want 200", resp.StatusCode)
	}
	var snap stats.Snapshot
	decodeBody(t, resp, &snap)
	if _, ok := snap.Metrics["documents"]; !ok {
		t.Fatalf("advanced snapshot missing documents: %v", snap.Metrics)
	}
}

func TestActivityFeed(t *testing.T) {
	c, _ := newTestAPI(t)
	resp := c.get("/v1/activity", url.Values{"limit": {"5"}}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body activityResponse
	decodeBody(t, resp, &body)
	if len(body.Activities) != 2 {
		t.Fatalf("expected 2 items, got %d", len(body.Activities))
	}
	if body.HasMore {
		t.Fatal("has_more must be false with 2 of 5 items")
	}
	first := body.Activities[0]
	if first.ID != "p1" || first.TimeAgo == "" || first.Flag != "🇰🇪" {
		t.Fatalf("unexpected first item: %+v", first)
	}
}

func TestActivityFeedRejectsBadLimit(t *testing.T) {
	c, _ := newTestAPI(t)
	for _, limit := range []string{"0", "-3", "abc", "999"} {
		resp := c.get("/v1/activity", url.Values{"limit": {limit}}, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("limit=%s: status %d, want 400", limit, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestNavigationAnonymousIsReader(t *testing.T) {
	c, _ := newTestAPI(t)
	resp := c.get("/v1/navigation", url.Values{"path": {"/admin/users"}}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body navigationResponse
	decodeBody(t, resp, &body)
	if body.Role != "reader" {
		t.Fatalf("anonymous role %s, want reader", body.Role)
	}
	if !body.Visibility.ShowAdminUI {
		t.Fatal("/admin/users must classify operational regardless of role")
	}
	for _, item := range body.Nav {
		if item.Path == "/admin" {
			t.Fatal("reader nav must not include admin entry")
		}
	}
}

func TestNavigationAdminSeesFullNav(t *testing.T) {
	c, _ := newTestAPI(t)
	resp := c.get("/v1/navigation", url.Values{"path": {"/projects/7"}}, bearerFor(t, "m-admin", roles.SuperAdmin))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body navigationResponse
	decodeBody(t, resp, &body)
	if body.Visibility.Layer != access.LayerCollaboration {
		t.Fatalf("unexpected layer: %v", body.Visibility.Layer)
	}
	found := false
	for _, item := range body.Nav {
		if item.Path == "/admin" {
			found = true
		}
	}
	if !found {
		t.Fatal("super_admin nav must include admin entry")
	}
}

func TestAuthTokenAndRoleChange(t *testing.T) {
	c, dir := newTestAPI(t)

	if _, err := dir.CreateMember(context.Background(), "admin@usf.africa", "pw-admin-1", "Admin", "Kenya", "super_admin"); err != nil {
		t.Fatal(err)
	}
	target, err := dir.CreateMember(context.Background(), "user@usf.africa", "pw-user-1", "User", "Ghana", "contributor")
	if err != nil {
		t.Fatal(err)
	}

	// Login as admin.
	resp := c.post("/v1/auth/token", tokenRequest{Email: "admin@usf.africa", Password: "pw-admin-1"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d", resp.StatusCode)
	}
	var tok tokenResponse
	decodeBody(t, resp, &tok)
	if tok.Token == "" || tok.Role != "super_admin" {
		t.Fatalf("unexpected token response: %+v", tok)
	}

	headers := map[string]string{"Authorization": "Bearer " + tok.Token}

	// Promote the target member.
	resp = c.post("/v1/members/"+target.ID+"/role", setRoleRequest{Role: "editor"}, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("role change status %d", resp.StatusCode)
	}
	var envelope struct {
		Data  *directory.Member `json:"data"`
		Error *string           `json:"error"`
	}
	decodeBody(t, resp, &envelope)
	if envelope.Error != nil {
		t.Fatalf("unexpected envelope error: %v", *envelope.Error)
	}
	if envelope.Data == nil || envelope.Data.Role != roles.Editor {
		t.Fatalf("unexpected envelope data: %+v", envelope.Data)
	}

	// Verify persisted.
	stored, err := dir.GetMember(context.Background(), target.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Role != roles.Editor {
		t.Fatalf("role not persisted: %s", stored.Role)
	}
}

func TestRoleChangeForbiddenForEditor(t *testing.T) {
	c, dir := newTestAPI(t)
	target, err := dir.CreateMember(context.Background(), "user@usf.africa", "pw-user-1", "User", "Ghana", "reader")
	if err != nil {
		t.Fatal(err)
	}

	resp := c.post("/v1/members/"+target.ID+"/role", setRoleRequest{Role: "editor"}, bearerFor(t, "m-editor", roles.Editor))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleChangeRejectsUnknownRole(t *testing.T) {
	c, dir := newTestAPI(t)
	target, err := dir.CreateMember(context.Background(), "user@usf.africa", "pw-user-1", "User", "Ghana", "reader")
	if err != nil {
		t.Fatal(err)
	}

	resp := c.post("/v1/members/"+target.ID+"/role", setRoleRequest{Role: "galactic_admin"}, bearerFor(t, "m-admin", roles.SuperAdmin))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
	var envelope struct {
		Data  any     `json:"data"`
		Error *string `json:"error"`
	}
	decodeBody(t, resp, &envelope)
	if envelope.Error == nil {
		t.Fatal("expected envelope error")
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	c, _ := newTestAPI(t)
	resp := c.get("/v1/members", nil, map[string]string{"Authorization": "Bearer not-a-token"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}
