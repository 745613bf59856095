package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/eduassist/portal/internal/domain/auth"
	"github.com/eduassist/portal/internal/domain/model"
	"github.com/eduassist/portal/internal/ports"
)

type recorded struct {
	mu   sync.Mutex
	reqs []*http.Request
	body [][]byte
}

func (r *recorded) last() (*http.Request, []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reqs[len(r.reqs)-1], r.body[len(r.body)-1]
}

// newServer serves fixed responses keyed by "METHOD /path".
func newServer(t *testing.T, routes map[string]func(w http.ResponseWriter)) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.reqs = append(rec.reqs, r.Clone(context.Background()))
		rec.body = append(rec.body, b)
		rec.mu.Unlock()

		h, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"no route"}`))
			return
		}
		h(w)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func respond(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func newTestClient(t *testing.T, baseURL string, tokens TokenSource) *Client {
	t.Helper()
	c, err := NewClient(Options{BaseURL: baseURL, Tokens: tokens})
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Options{})
	require.Error(t, err)

	_, err = NewClient(Options{BaseURL: "ftp://x"})
	require.Error(t, err)

	_, err = NewClient(Options{BaseURL: "http://x", ReplyPath: "response ||"})
	require.Error(t, err)
}

func TestBearerHeader_AttachedWhenTokenResolves(t *testing.T) {
	srv, rec := newServer(t, map[string]func(http.ResponseWriter){
		"GET /api/v1/courses/": respond(200, `[]`),
	})
	c := newTestClient(t, srv.URL, TokenFunc(func(context.Context) string { return "t1" }))

	_, err := c.ListCourses(context.Background())
	require.NoError(t, err)

	req, _ := rec.last()
	assert.Equal(t, "Bearer t1", req.Header.Get("Authorization"))
}

func TestBearerHeader_OmittedWithoutToken(t *testing.T) {
	srv, rec := newServer(t, map[string]func(http.ResponseWriter){
		"GET /api/v1/courses/": respond(200, `[]`),
	})
	c := newTestClient(t, srv.URL, TokenFunc(func(context.Context) string { return "" }))

	_, err := c.ListCourses(context.Background())
	require.NoError(t, err)

	req, _ := rec.last()
	_, present := req.Header["Authorization"]
	assert.False(t, present, "header must be absent, not empty")
}

func TestBearerHeader_NilTokenSource(t *testing.T) {
	srv, rec := newServer(t, map[string]func(http.ResponseWriter){
		"GET /test-suites": respond(200, `[]`),
	})
	c := newTestClient(t, srv.URL, nil)

	_, err := c.ListSuites(context.Background())
	require.NoError(t, err)
	req, _ := rec.last()
	assert.Empty(t, req.Header.Values("Authorization"))
}

func TestWithTokens_IsolatesCallers(t *testing.T) {
	srv, rec := newServer(t, map[string]func(http.ResponseWriter){
		"GET /test-suites": respond(200, `[]`),
	})
	base := newTestClient(t, srv.URL, nil)
	alice := base.WithTokens(TokenFunc(func(context.Context) string { return "alice" }))

	_, err := alice.ListSuites(context.Background())
	require.NoError(t, err)
	req, _ := rec.last()
	assert.Equal(t, "Bearer alice", req.Header.Get("Authorization"))

	_, err = base.ListSuites(context.Background())
	require.NoError(t, err)
	req, _ = rec.last()
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestDebugLoggingRedactsToken(t *testing.T) {
	srv, _ := newServer(t, map[string]func(http.ResponseWriter){
		"GET /test-suites": respond(200, `[]`),
	})
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c, err := NewClient(Options{
		BaseURL: srv.URL,
		Logger:  logger,
		Tokens:  TokenFunc(func(context.Context) string { return "secret-token" }),
	})
	require.NoError(t, err)

	_, err = c.ListSuites(context.Background())
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "backend request")
	assert.NotContains(t, buf.String(), "secret-token")
}

func TestListShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "bare array", body: `[{"courseId":"1"},{"courseId":"2"}]`, want: 2},
		{name: "entity wrapper", body: `{"courses":[{"courseId":"1"}]}`, want: 1},
		{name: "data wrapper", body: `{"data":[{"courseId":"1"}]}`, want: 1},
		{name: "unexpected object", body: `{"total":3}`, want: 0},
		{name: "wrapper not array", body: `{"courses":{"courseId":"1"}}`, want: 0},
		{name: "null", body: `null`, want: 0},
		{name: "empty body", body: ``, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, map[string]func(http.ResponseWriter){
				"GET /api/v1/courses/": respond(200, tt.body),
			})
			got, err := newTestClient(t, srv.URL, nil).ListCourses(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestVideosWithPagination(t *testing.T) {
	srv, _ := newServer(t, map[string]func(http.ResponseWriter){
		"GET /api/v1/courses/modules/m1/videos": respond(200,
			`{"videos":[{"id":"v1","title":"Intro","hasQuiz":true}],"pagination":{"total":1,"page":1,"limit":20}}`),
	})
	got, err := newTestClient(t, srv.URL, nil).ListVideos(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Intro", got[0].Title)
	assert.True(t, got[0].HasQuiz)
}

func TestErrorDetail(t *testing.T) {
	srv, _ := newServer(t, map[string]func(http.ResponseWriter){
		"POST /api/v1/courses/":    respond(400, `{"detail":"Course name already taken"}`),
		"DELETE /api/v1/modules/x": respond(422, `{"detail":[{"msg":"bad id"},{"msg":"too short"}]}`),
		"GET /test-suites/x":       respond(500, `oops`),
	})
	c := newTestClient(t, srv.URL, nil)

	_, err := c.CreateCourse(context.Background(), model.CourseRequest{Name: "A"})
	require.Error(t, err)
	assert.Equal(t, "Course name already taken", Detail(err, "Failed to save course."))
	assert.True(t, IsStatus(err, http.StatusBadRequest))

	err = c.DeleteModule(context.Background(), "x")
	assert.Equal(t, "bad id; too short", Detail(err, "fallback"))

	_, err = c.GetSuite(context.Background(), "x")
	assert.Equal(t, "fallback", Detail(err, "fallback"))
	assert.Equal(t, "fallback", Detail(assert.AnError, "fallback"))
}

func TestChatReplyExtraction(t *testing.T) {
	srv, rec := newServer(t, map[string]func(http.ResponseWriter){
		"POST /api/v1/modules/m1/chat": respond(200, `{"response":"Photosynthesis is..."}`),
		"POST /api/v1/videos/v1/chat":  respond(200, `{"rag_prompt":"Built prompt"}`),
		"POST /rag/generate-prompt":    respond(200, `{"unrelated":1}`),
	})
	c := newTestClient(t, srv.URL, nil)
	ctx := context.Background()

	reply, err := c.ModuleChat(ctx, "m1", model.ChatRequest{Message: "what?"})
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis is...", reply)

	_, body := rec.last()
	var sent model.ChatRequest
	require.NoError(t, json.Unmarshal(body, &sent))
	assert.Equal(t, "what?", sent.Message)
	assert.Equal(t, model.DefaultPromptTemplate, sent.PromptTemplate)
	assert.NotNil(t, sent.ContextDocuments)

	reply, err = c.VideoChat(ctx, "v1", model.ChatRequest{Message: "q"})
	require.NoError(t, err)
	assert.Equal(t, "Built prompt", reply)

	reply, err = c.GeneratePrompt(ctx, model.ChatRequest{Message: "q"})
	require.NoError(t, err)
	assert.Equal(t, model.FallbackReply, reply)
}

func TestUploadMultipart(t *testing.T) {
	var title, drive, filename, content string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/courses/modules/m1/videos-sync", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		title = r.FormValue("title")
		drive = r.FormValue("upload_to_drive")
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		filename = hdr.Filename
		b, _ := io.ReadAll(f)
		content = string(b)
		respond(202, `{"videoId":"v9","title":"Lecture 1","status":"PROCESSING"}`)(w)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, TokenFunc(func(context.Context) string { return "tok" }))
	out, err := c.UploadVideo(context.Background(), "m1", model.Upload{
		Filename:      "lecture.mp4",
		Title:         "Lecture 1",
		UploadToDrive: true,
		Content:       strings.NewReader("video-bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, "v9", out.VideoID)
	assert.Equal(t, "Lecture 1", title)
	assert.Equal(t, "true", drive)
	assert.Equal(t, "lecture.mp4", filename)
	assert.Equal(t, "video-bytes", content)
}

func TestUploadRequiresFile(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", nil)
	_, err := c.UploadResource(context.Background(), "m1", model.Upload{Filename: "a.pdf"})
	require.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	srv, rec := newServer(t, map[string]func(http.ResponseWriter){
		"POST /api/v1/auth/login": respond(200,
			`{"access_token":"jwt","user":{"email":"prof@example.edu","name":"Prof","role":"faculty"}}`),
	})
	c := newTestClient(t, srv.URL, nil)

	grant, err := c.Authenticate(context.Background(), ports.Credentials{Email: "prof@example.edu", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "jwt", grant.Token)
	assert.Equal(t, domainauth.RoleFaculty, grant.User.Role)

	_, body := rec.last()
	assert.JSONEq(t, `{"email":"prof@example.edu","password":"pw"}`, string(body))
}

func TestAuthenticate_IncompleteResponse(t *testing.T) {
	srv, _ := newServer(t, map[string]func(http.ResponseWriter){
		"POST /api/v1/auth/login": respond(200, `{"user":{"email":"a@b.c"}}`),
	})
	_, err := newTestClient(t, srv.URL, nil).Authenticate(context.Background(), ports.Credentials{Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrIncompleteLogin)
}

func TestGenerateCode(t *testing.T) {
	srv, rec := newServer(t, map[string]func(http.ResponseWriter){
		"PUT /code-generator/c1": respond(200, `{"code":"test('x', async () => {})"}`),
	})
	code, err := newTestClient(t, srv.URL, nil).GenerateCode(context.Background(), "c1",
		model.CodeGenRequest{IR: `{"steps":[]}`, Tool: "playwright"})
	require.NoError(t, err)
	assert.Contains(t, code, "test(")

	_, body := rec.last()
	assert.JSONEq(t, `{"IR":"{\"steps\":[]}","tool":"playwright","code":""}`, string(body))
}

func TestPathEscaping(t *testing.T) {
	srv, rec := newServer(t, map[string]func(http.ResponseWriter){})
	_ = newTestClient(t, srv.URL, nil).DeleteCase(context.Background(), "../admin")

	req, _ := rec.last()
	assert.Equal(t, "/test-cases/..%2Fadmin", req.URL.EscapedPath())
}
