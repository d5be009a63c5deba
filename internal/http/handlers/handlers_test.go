package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-courseview/internal/data/repos"
	"github.com/yungbote/neurobridge-courseview/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-courseview/internal/domain"
	"github.com/yungbote/neurobridge-courseview/internal/http/response"
	"github.com/yungbote/neurobridge-courseview/internal/modules/learning/content"
	"github.com/yungbote/neurobridge-courseview/internal/platform/openai"
	"github.com/yungbote/neurobridge-courseview/internal/realtime"
	"github.com/yungbote/neurobridge-courseview/internal/services"
)

var generatedBody = strings.Repeat("Generated chapter paragraph for the reader. ", 4)

type stubProvider struct {
	err error
}

func (p *stubProvider) GenerateContent(ctx context.Context, title, hint string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return generatedBody, nil
}

func (p *stubProvider) GenerateSyllabus(ctx context.Context, topic string) ([]openai.SyllabusChapter, error) {
	if p.err != nil {
		return nil, p.err
	}
	return []openai.SyllabusChapter{
		{Title: "Getting started", Content: "Setup and first steps."},
		{Title: "Going further", Content: "Advanced usage."},
	}, nil
}

func (p *stubProvider) Model() string { return "stub" }

type testAPI struct {
	router *gin.Engine
	seed   func(chapters ...testutil.SeedChapter) *types.Course
	views  *services.CourseViewService
	keys   *openai.KeyStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := testutil.Logger(t)
	gdb := testutil.DB(t)
	r := repos.New(gdb, log)

	provider := &stubProvider{}
	hub := realtime.NewSSEHub(log)
	notifier := services.NewNotifier(&services.HubEmitter{Hub: hub})
	store := services.NewCourseStore(gdb, log, r.Course, r.Chapter)
	resolver := content.NewResolver(log, content.Config{}, store, provider, notifier)
	courses := services.NewCourseService(log, store, resolver, provider, notifier)
	views := services.NewCourseViewService(log, store, resolver, notifier)
	t.Cleanup(views.Wait)
	keys := openai.NewKeyStore("", &services.ProviderKeyPersister{Repo: r.ProviderSetting})

	api := &testAPI{
		views: views,
		keys:  keys,
		seed: func(chapters ...testutil.SeedChapter) *types.Course {
			return testutil.SeedCourse(t, context.Background(), gdb, "HTTP course", chapters...)
		},
	}

	engine := gin.New()
	course := NewCourseHandler(log, courses)
	chapter := NewChapterHandler(log, courses)
	view := NewViewHandler(log, views)
	settings := NewSettingsHandler(log, services.NewProviderSettingsService(log, keys, "stub"))
	health := NewHealthHandler(nil)

	engine.GET("/healthcheck", health.HealthCheck)
	engine.GET("/readyz", health.Ready)
	engine.GET("/api/courses", course.ListCourses)
	engine.POST("/api/courses", course.CreateCourse)
	engine.POST("/api/courses/import", course.ImportCourse)
	engine.GET("/api/courses/:id", course.GetCourse)
	engine.PATCH("/api/courses/:id", course.UpdateCourse)
	engine.DELETE("/api/courses/:id", course.DeleteCourse)
	engine.GET("/api/courses/:id/export", course.ExportCourse)
	engine.POST("/api/courses/:id/chapters/:chapter_id/resolve", chapter.ResolveContent)
	engine.PUT("/api/courses/:id/chapters/:chapter_id/completion", chapter.SetCompletion)
	engine.POST("/api/views", view.OpenView)
	engine.GET("/api/views/:session_id", view.GetView)
	engine.POST("/api/views/:session_id/select", view.SelectChapter)
	engine.DELETE("/api/views/:session_id", view.CloseView)
	engine.GET("/api/settings/provider", settings.GetProvider)
	engine.PUT("/api/settings/provider-key", settings.SetProviderKey)
	api.router = engine
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	env := decode[response.ErrorEnvelope](t, rec)
	if env.Error.Code != code {
		t.Fatalf("error code = %q, want %q", env.Error.Code, code)
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/healthcheck", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck = %d %q", rec.Code, rec.Body.String())
	}
	if rec := api.do(t, http.MethodGet, "/readyz", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz = %d", rec.Code)
	}
}

func TestCreateAndGetCourse(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/courses", map[string]string{"topic": "Kubernetes"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}
	created := decode[struct {
		Course types.Course `json:"course"`
	}](t, rec)
	if created.Course.Title != "Kubernetes" || len(created.Course.Chapters) != 2 {
		t.Fatalf("unexpected course: %+v", created.Course)
	}

	rec = api.do(t, http.MethodGet, "/api/courses/"+created.Course.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = api.do(t, http.MethodGet, "/api/courses", nil)
	list := decode[struct {
		Courses []types.Course `json:"courses"`
	}](t, rec)
	if len(list.Courses) != 1 {
		t.Fatalf("list returned %d courses", len(list.Courses))
	}
}

func TestCourseErrors(t *testing.T) {
	api := newTestAPI(t)
	course := api.seed(testutil.SeedChapter{Title: "One", Content: "a"})
	other := api.seed(testutil.SeedChapter{Title: "Elsewhere", Content: "b"})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{name: "bad id", method: http.MethodGet, path: "/api/courses/nope", status: http.StatusBadRequest, code: "invalid_course_id"},
		{name: "unknown course", method: http.MethodGet, path: "/api/courses/" + uuid.NewString(), status: http.StatusNotFound, code: "course_not_found"},
		{name: "blank topic", method: http.MethodPost, path: "/api/courses", body: map[string]string{"topic": " "}, status: http.StatusBadRequest, code: "invalid_input"},
		{
			name:   "unknown chapter completion",
			method: http.MethodPut,
			path:   "/api/courses/" + course.ID.String() + "/chapters/" + uuid.NewString() + "/completion",
			body:   map[string]bool{"completed": true},
			status: http.StatusNotFound,
			code:   "chapter_not_found",
		},
		{
			name:   "chapter id from another course",
			method: http.MethodPatch,
			path:   "/api/courses/" + course.ID.String(),
			body:   map[string]any{"chapters": []map[string]any{{"id": other.Chapters[0].ID.String(), "title": "Stolen"}}},
			status: http.StatusBadRequest,
			code:   "invalid_input",
		},
		{
			name:   "completion without flag",
			method: http.MethodPut,
			path:   "/api/courses/" + course.ID.String() + "/chapters/" + course.Chapters[0].ID.String() + "/completion",
			body:   map[string]string{},
			status: http.StatusBadRequest,
			code:   "invalid_request",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expectError(t, api.do(t, tc.method, tc.path, tc.body), tc.status, tc.code)
		})
	}
}

func TestSetCompletion(t *testing.T) {
	api := newTestAPI(t)
	course := api.seed(
		testutil.SeedChapter{Title: "One", Content: "a"},
		testutil.SeedChapter{Title: "Two", Content: "b"},
		testutil.SeedChapter{Title: "Three", Content: "c"},
		testutil.SeedChapter{Title: "Four", Content: "d"},
	)
	path := "/api/courses/" + course.ID.String() + "/chapters/" + course.Chapters[3].ID.String() + "/completion"

	rec := api.do(t, http.MethodPut, path, map[string]bool{"completed": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	got := decode[struct {
		Course types.Course `json:"course"`
	}](t, rec)
	if got.Course.Progress != 25 || !got.Course.Chapters[3].Completed {
		t.Fatalf("progress=%d completed=%v", got.Course.Progress, got.Course.Chapters[3].Completed)
	}
}

func TestResolveContent(t *testing.T) {
	api := newTestAPI(t)
	course := api.seed(testutil.SeedChapter{Title: "One", Content: "line one\nline two"})
	path := "/api/courses/" + course.ID.String() + "/chapters/" + course.Chapters[0].ID.String() + "/resolve"

	rec := api.do(t, http.MethodPost, path, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	got := decode[resolveResponse](t, rec)
	if got.Source != content.SourceGenerated || !got.Persisted {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got.Content != generatedBody {
		t.Fatalf("content = %q", got.Content)
	}
}

func TestExportCourse(t *testing.T) {
	api := newTestAPI(t)
	course := api.seed(testutil.SeedChapter{Title: "One", Content: testutil.ResolvedText, Completed: true})
	path := "/api/courses/" + course.ID.String() + "/export"

	plain := api.do(t, http.MethodGet, path, nil)
	if plain.Code != http.StatusOK || plain.Header().Get("Content-Encoding") != "" {
		t.Fatalf("plain export: status=%d encoding=%q", plain.Code, plain.Header().Get("Content-Encoding"))
	}
	want := decode[services.CourseExport](t, plain)

	br := api.do(t, http.MethodGet, path, nil, "Accept-Encoding", "gzip, br")
	if br.Code != http.StatusOK || br.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("brotli export: status=%d encoding=%q", br.Code, br.Header().Get("Content-Encoding"))
	}
	raw, err := io.ReadAll(brotli.NewReader(br.Body))
	if err != nil {
		t.Fatalf("brotli decode: %v", err)
	}
	var got services.CourseExport
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if got.Course.Title != want.Course.Title || len(got.Course.Chapters) != 1 || got.Course.Chapters[0].Content != testutil.ResolvedText {
		t.Fatalf("brotli export differs: %+v", got)
	}

	rec := api.do(t, http.MethodPost, "/api/courses/import", got)
	if rec.Code != http.StatusCreated {
		t.Fatalf("import status = %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestAcceptsBrotli(t *testing.T) {
	tests := map[string]bool{
		"":                 false,
		"gzip":             false,
		"br":               true,
		"gzip, br;q=0.8":   true,
		"BR":               true,
		"br;q=0, gzip":     false,
		"identity, brotli": false,
	}
	for header, want := range tests {
		if got := acceptsBrotli(header); got != want {
			t.Errorf("acceptsBrotli(%q) = %v, want %v", header, got, want)
		}
	}
}

func TestViewLifecycle(t *testing.T) {
	api := newTestAPI(t)
	course := api.seed(
		testutil.SeedChapter{Title: "One", Content: testutil.ResolvedText},
		testutil.SeedChapter{Title: "Two", Content: "outline"},
	)

	rec := api.do(t, http.MethodPost, "/api/views", map[string]string{"course_id": course.ID.String()})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open status = %d body=%s", rec.Code, rec.Body.String())
	}
	opened := decode[struct {
		View services.ViewSnapshot `json:"view"`
	}](t, rec)
	if opened.View.SelectedChapterID != course.Chapters[0].ID || opened.View.Loading {
		t.Fatalf("unexpected open snapshot: %+v", opened.View)
	}
	base := "/api/views/" + opened.View.SessionID.String()

	rec = api.do(t, http.MethodPost, base+"/select", map[string]string{"chapter_id": course.Chapters[1].ID.String()})
	if rec.Code != http.StatusOK {
		t.Fatalf("select status = %d body=%s", rec.Code, rec.Body.String())
	}
	api.views.Wait()

	rec = api.do(t, http.MethodGet, base, nil)
	snap := decode[struct {
		View services.ViewSnapshot `json:"view"`
	}](t, rec)
	if snap.View.Loading || snap.View.SelectedChapterID != course.Chapters[1].ID || snap.View.Content == "" {
		t.Fatalf("unexpected snapshot after resolve: %+v", snap.View)
	}

	if rec := api.do(t, http.MethodDelete, base, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("close status = %d", rec.Code)
	}
	expectError(t, api.do(t, http.MethodGet, base, nil), http.StatusNotFound, "session_not_found")
	expectError(t, api.do(t, http.MethodPost, "/api/views", map[string]string{"course_id": uuid.NewString()}), http.StatusNotFound, "course_not_found")
}

func TestSetProviderKey(t *testing.T) {
	api := newTestAPI(t)

	expectError(t, api.do(t, http.MethodPut, "/api/settings/provider-key", map[string]string{"api_key": "  "}), http.StatusBadRequest, "invalid_api_key")

	rec := api.do(t, http.MethodPut, "/api/settings/provider-key", map[string]string{"api_key": "sk-test-key"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if api.keys.APIKey() != "sk-test-key" {
		t.Fatalf("key not applied")
	}
	got := decode[struct {
		Provider services.ProviderStatus `json:"provider"`
	}](t, api.do(t, http.MethodGet, "/api/settings/provider", nil))
	if !got.Provider.Configured || got.Provider.Model != "stub" {
		t.Fatalf("status = %+v", got.Provider)
	}
}
