package core

import (
	"bytes"
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduassist/portal/internal/rolegate"
)

type viewer struct{ faculty, student bool }

func (v viewer) IsFaculty() bool { return v.faculty }
func (v viewer) IsStudent() bool { return v.student }

func TestParseGate(t *testing.T) {
	g, err := ParseGate("showFor", "faculty", "children", "course-actions", "fallback", "readonly")
	require.NoError(t, err)
	assert.Equal(t, rolegate.ShowForFaculty, g.ShowFor)
	require.NotNil(t, g.Children)
	assert.Equal(t, "course-actions", *g.Children)
	assert.Nil(t, g.Faculty)
	assert.Equal(t, "readonly", g.Fallback)

	_, err = ParseGate("faculty")
	assert.Error(t, err)

	_, err = ParseGate("admin", "x")
	assert.Error(t, err)
}

func newSet(t *testing.T, src string) *template.Template {
	t.Helper()
	var set *template.Template
	funcs := Funcs(Deps{
		Execute:            TemplateExecutor(func() *template.Template { return set }),
		ContentTemplateFor: func(p string) string { return p + "-content" },
	})
	set = template.Must(template.New("root").Funcs(funcs).Parse(src))
	return set
}

func TestRoleGateFunc(t *testing.T) {
	set := newSet(t, `
{{define "page"}}[{{roleGate .V .D "faculty" "fac" "student" "stu"}}]{{end}}
{{define "only"}}[{{roleGate .V .D "showFor" "FACULTY" "children" "fac"}}]{{end}}
{{define "fac"}}F:{{.}}{{end}}
{{define "stu"}}S:{{.}}{{end}}`)

	tests := []struct {
		name string
		tmpl string
		v    rolegate.Viewer
		want string
	}{
		{"faculty branch", "page", viewer{faculty: true}, "[F:x]"},
		{"student branch", "page", viewer{student: true}, "[S:x]"},
		{"neither renders nothing", "page", viewer{}, "[]"},
		{"showFor faculty hides from students", "only", viewer{student: true}, "[]"},
		{"showFor faculty shows children", "only", viewer{faculty: true}, "[F:x]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, set.ExecuteTemplate(&buf, tt.tmpl, map[string]any{"V": tt.v, "D": "x"}))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestRenderSection(t *testing.T) {
	set := newSet(t, `{{define "main"}}({{renderSection .Page .}}){{end}}{{define "home-content"}}home {{.Page}}{{end}}`)
	var buf bytes.Buffer
	require.NoError(t, set.ExecuteTemplate(&buf, "main", map[string]any{"Page": "home"}))
	assert.Equal(t, "(home home)", buf.String())
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", TruncateText("short", 10))
	assert.Equal(t, "abcd…", TruncateText("abcdefgh", 5))
	assert.Equal(t, "héll…", TruncateText("héllo wörld", 5))
	assert.Equal(t, "unbounded", TruncateText("unbounded", 0))
}

func TestDuration(t *testing.T) {
	assert.Equal(t, "0:00", Duration(0))
	assert.Equal(t, "0:59", Duration(59))
	assert.Equal(t, "12:05", Duration(725))
	assert.Equal(t, "1:01:01", Duration(3661))
}

func TestFriendlyTime(t *testing.T) {
	assert.Equal(t, "not a time", FriendlyTime("not a time"))
	assert.NotEqual(t, "2024-05-01T10:00:00Z", FriendlyTime("2024-05-01T10:00:00Z"))
}

func TestStatusClass(t *testing.T) {
	type status string
	assert.Equal(t, "badge-success", StatusClass(status("Completed")))
	assert.Equal(t, "badge-info", StatusClass("Running"))
	assert.Equal(t, "badge-danger", StatusClass("Error"))
	assert.Equal(t, "badge-muted", StatusClass("ARCHIVED"))
	assert.Equal(t, "badge-neutral", StatusClass(42))
}

func TestDict(t *testing.T) {
	m, err := Dict("Module", 1, "CourseID", "c1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Module": 1, "CourseID": "c1"}, m)

	_, err = Dict("odd")
	assert.Error(t, err)
	_, err = Dict(1, 2)
	assert.Error(t, err)
}
