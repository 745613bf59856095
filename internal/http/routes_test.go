package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduassist/portal/internal/adapters/memstore"
	"github.com/eduassist/portal/internal/capture"
	domainauth "github.com/eduassist/portal/internal/domain/auth"
	"github.com/eduassist/portal/internal/ports"
	"github.com/eduassist/portal/internal/session"
)

const coursesJSON = `[{"courseId":"c1","name":"Linear Algebra","description":"Vectors","status":"ACTIVE"}]`

func TestRouter_Healthz(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_StaticAssets(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(httptest.NewRequest(http.MethodGet, "/static/js/app.js", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "htmx:configRequest")
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
}

func TestRouter_GuardRedirectsAndNeverRenders(t *testing.T) {
	env := newTestEnv(t)
	env.backend.json("GET /api/v1/courses/", http.StatusOK, coursesJSON)

	w := env.do(env.request(http.MethodGet, "/", "", nil))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/signin", w.Header().Get("Location"))
	assert.NotContains(t, w.Body.String(), "Linear Algebra")
	assert.False(t, env.backend.called("GET /api/v1/courses/"))
}

func TestRouter_SignInPage(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(env.request(http.MethodGet, "/signin", "", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, ContainsAll(body, []string{`name="email"`, `name="password"`, `/signup`}), body)
}

func TestRouter_DashboardRoleGate(t *testing.T) {
	tests := []struct {
		name       string
		role       domainauth.Role
		present    []string
		notPresent []string
	}{
		{
			name:       "faculty sees create and edit controls",
			role:       domainauth.RoleFaculty,
			present:    []string{"Linear Algebra", "Create course", "Delete course"},
			notPresent: []string{"Have an invitation code"},
		},
		{
			name:       "student sees the join hint",
			role:       domainauth.RoleStudent,
			present:    []string{"Linear Algebra", "Have an invitation code"},
			notPresent: []string{"Create course", "Delete course"},
		},
		{
			name:       "unknown role sees neither",
			role:       domainauth.Role("ADMIN"),
			present:    []string{"Linear Algebra"},
			notPresent: []string{"Create course", "Have an invitation code", "Delete course"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.backend.json("GET /api/v1/courses/", http.StatusOK, coursesJSON)
			id := env.signIn(tt.role, "tok-"+string(tt.role))

			w := env.do(env.request(http.MethodGet, "/", id, nil))

			require.Equal(t, http.StatusOK, w.Code)
			body := w.Body.String()
			for _, s := range tt.present {
				assert.Contains(t, body, s)
			}
			for _, s := range tt.notPresent {
				assert.NotContains(t, body, s)
			}
			assert.Equal(t, "Bearer tok-"+string(tt.role), env.backend.lastAuth())
		})
	}
}

func TestRouter_DurableOnlyTokenIsAuthorized(t *testing.T) {
	env := newTestEnv(t)
	env.backend.json("GET /api/v1/courses/", http.StatusOK, coursesJSON)
	id := uuid.NewString()
	require.NoError(t, env.storage.Set(context.Background(), id+":"+session.AccessTokenKey, "persisted"))

	w := env.do(env.request(http.MethodGet, "/", id, nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Linear Algebra")
	assert.Equal(t, "Bearer persisted", env.backend.lastAuth())
}

func TestRouter_HTMXNavigationRendersPartial(t *testing.T) {
	env := newTestEnv(t)
	env.backend.json("GET /api/v1/courses/", http.StatusOK, coursesJSON)
	id := env.signIn(domainauth.RoleStudent, "t1")

	w := env.do(env.htmx(http.MethodGet, "/", id, ""))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `id="header-title"`)
	assert.NotContains(t, w.Body.String(), "<html")
	assert.Contains(t, w.Header().Get("Hx-Trigger"), "nav:activate")
}

func TestRouter_SignInFlow(t *testing.T) {
	env := newTestEnv(t)
	env.backend.json("POST /api/v1/auth/login", http.StatusOK,
		`{"access_token":"t1","user":{"email":"f@example.com","name":"Fay","role":"faculty"}}`)
	id := uuid.NewString()

	w := env.do(env.htmx(http.MethodPost, "/signin", id, "email=f%40example.com&password=pw&redirect_uri=%2Ftest-suites"))

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "/test-suites", w.Header().Get("Hx-Redirect"))

	tok, err := env.storage.Get(context.Background(), id+":"+session.AccessTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "t1", tok)

	auth := session.NewAuth(env.sessions.Store(id))
	assert.True(t, auth.IsAuthenticated(context.Background()))
	assert.True(t, auth.IsFaculty(context.Background()))
	assert.False(t, auth.IsStudent(context.Background()))
}

func TestRouter_SignInFailureKeepsPage(t *testing.T) {
	env := newTestEnv(t)
	env.backend.json("POST /api/v1/auth/login", http.StatusUnauthorized, `{"detail":"Invalid email or password"}`)
	id := uuid.NewString()

	w := env.do(env.htmx(http.MethodPost, "/signin", id, "email=f%40example.com&password=nope"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "none", w.Header().Get("Hx-Reswap"))
	assert.Equal(t, "Invalid email or password", triggeredToast(t, w.Header()).Message)
	_, err := env.storage.Get(context.Background(), id+":"+session.AccessTokenKey)
	assert.ErrorIs(t, err, ports.ErrKeyNotFound)
}

func TestRouter_SignOut(t *testing.T) {
	env := newTestEnv(t)
	id := env.signIn(domainauth.RoleStudent, "t1")

	w := env.do(env.htmx(http.MethodPost, "/signout", id, ""))
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "/signin", w.Header().Get("Hx-Redirect"))

	_, err := env.storage.Get(context.Background(), id+":"+session.AccessTokenKey)
	assert.ErrorIs(t, err, ports.ErrKeyNotFound)

	w = env.do(env.request(http.MethodGet, "/", id, nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestRouter_CreateCourse(t *testing.T) {
	t.Run("success redirects with a flash", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.json("POST /api/v1/courses/", http.StatusCreated, `{"courseId":"c2","name":"Physics"}`)
		id := env.signIn(domainauth.RoleFaculty, "t1")

		w := env.do(env.htmx(http.MethodPost, "/courses", id, "name=Physics&description=Motion"))

		require.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "/", w.Header().Get("Hx-Redirect"))
		var sent map[string]any
		require.NoError(t, json.Unmarshal([]byte(env.backend.body("POST /api/v1/courses/")), &sent))
		assert.Equal(t, "Physics", sent["name"])

		var flash *http.Cookie
		for _, c := range w.Result().Cookies() {
			if c.Name == FlashCookie {
				flash = c
			}
		}
		require.NotNil(t, flash)
	})

	t.Run("backend detail becomes the toast", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.json("POST /api/v1/courses/", http.StatusBadRequest, `{"detail":"Course already exists"}`)
		id := env.signIn(domainauth.RoleFaculty, "t1")

		w := env.do(env.htmx(http.MethodPost, "/courses", id, "name=Physics"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "none", w.Header().Get("Hx-Reswap"))
		assert.Equal(t, Toast{Type: toastError, Message: "Course already exists"}, triggeredToast(t, w.Header()))
	})

	t.Run("missing name never reaches the backend", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.signIn(domainauth.RoleFaculty, "t1")

		w := env.do(env.htmx(http.MethodPost, "/courses", id, "name=+"))

		assert.Equal(t, "none", w.Header().Get("Hx-Reswap"))
		assert.False(t, env.backend.called("POST /api/v1/courses/"))
	})

	t.Run("missing csrf token is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.signIn(domainauth.RoleFaculty, "t1")
		r := env.htmx(http.MethodPost, "/courses", id, "name=Physics")
		r.Header.Del(DefaultCSRFHeaderName)

		w := env.do(r)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRouter_CourseNotFound(t *testing.T) {
	env := newTestEnv(t)
	id := env.signIn(domainauth.RoleStudent, "t1")

	w := env.do(env.request(http.MethodGet, "/courses/missing", id, nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Not Found")
}

func TestRouter_UnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(env.request(http.MethodGet, "/no/such/page", "", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
}

func TestRouter_ModuleChat(t *testing.T) {
	env := newTestEnv(t)
	env.backend.json("POST /api/v1/modules/m1/chat", http.StatusOK, `{"response":"Eigenvalues scale eigenvectors."}`)
	id := env.signIn(domainauth.RoleStudent, "t1")

	w := env.do(env.htmx(http.MethodPost, "/modules/m1/chat", id, "message=What+is+an+eigenvalue%3F"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Eigenvalues scale eigenvectors.")
	assert.Contains(t, w.Body.String(), "What is an eigenvalue?")
}

func TestRouter_ChatFailureRendersErrorReply(t *testing.T) {
	env := newTestEnv(t)
	env.backend.json("POST /api/v1/videos/v1/chat", http.StatusInternalServerError, `{}`)
	id := env.signIn(domainauth.RoleStudent, "t1")

	w := env.do(env.htmx(http.MethodPost, "/videos/v1/chat", id, "message=hello"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "chat-failed")
}

func TestRouter_SuiteExportCSV(t *testing.T) {
	env := newTestEnv(t)
	env.backend.json("GET /test-cases/s1", http.StatusOK,
		`[{"_id":"t1","testCaseName":"Login works","suiteId":"s1","tool":"playwright","createdAt":"2024-05-01T10:00:00Z"},
		  {"_id":"t2","testCaseName":"Logout","suiteId":"s1","tool":"playwright"}]`)
	id := env.signIn(domainauth.RoleFaculty, "t1")

	w := env.do(env.request(http.MethodGet, "/test-suites/s1/export.csv?q=login", id, nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `test-cases-s1.csv`)
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Login works,playwright,2024-05-01 10:00:00", strings.TrimSpace(lines[1]))
}

func TestRouter_AuthStatus(t *testing.T) {
	env := newTestEnv(t)
	id := env.signIn(domainauth.RoleFaculty, "t1")

	r := env.request(http.MethodGet, "/auth/status", id, nil)
	r.Header.Set("Accept", "application/json")
	w := env.do(r)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, true, body["faculty"])
	assert.Equal(t, false, body["student"])
}

func TestRouter_SessionlessRoutesDoNotCreateStores(t *testing.T) {
	env := newTestEnv(t, withSessions(t, session.ManagerOptions{Storage: memstore.New(), Capacity: 3}),
		func(s *RouterServices) { s.Capture = capture.NewLocalTransport(1); s.CapturePoll = time.Millisecond })
	id := env.signIn(domainauth.RoleFaculty, "t1")
	require.Equal(t, 1, env.sessions.Len())

	for range 3 {
		for _, target := range []string{"/healthz", "/static/js/app.js", "/api/capture/requests"} {
			w := env.do(httptest.NewRequest(http.MethodGet, target, nil))
			assert.Less(t, w.Code, http.StatusBadRequest, target)
			assert.Empty(t, w.Result().Cookies(), target)
		}
		w := env.do(env.request(http.MethodGet, "/no-such-page", "", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
	assert.Equal(t, 1, env.sessions.Len())

	facts := session.NewAuth(env.sessions.Store(id)).Facts(context.Background())
	assert.True(t, facts.Authenticated)
	assert.True(t, facts.Faculty)
}

func TestRouter_EvictedClientKeepsRole(t *testing.T) {
	env := newTestEnv(t, withSessions(t, session.ManagerOptions{Storage: memstore.New(), Capacity: 1}))
	env.backend.json("GET /api/v1/courses/", http.StatusOK, coursesJSON)
	id := env.signIn(domainauth.RoleFaculty, "t1")

	// A second signed-in client pushes the first out of the registry.
	env.signIn(domainauth.RoleStudent, "t2")

	r := env.request(http.MethodGet, "/auth/status", id, nil)
	r.Header.Set("Accept", "application/json")
	w := env.do(r)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, true, body["faculty"])
}
