package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	domainauth "github.com/eduassist/portal/internal/domain/auth"
	"github.com/eduassist/portal/internal/domain/model"
	"github.com/eduassist/portal/internal/ports"
)

// statusErr mimics an upstream HTTP error.
type statusErr int

func (e statusErr) Error() string   { return http.StatusText(int(e)) }
func (e statusErr) StatusCode() int { return int(e) }

// fakeSession records LoginSuccess/Logout calls.
type fakeSession struct {
	user      *domainauth.User
	token     string
	loginErr  error
	logoutErr error
	loggedOut bool
}

func (s *fakeSession) LoginSuccess(_ context.Context, user domainauth.User, token string) error {
	if s.loginErr != nil {
		return s.loginErr
	}
	s.user, s.token = &user, token
	return nil
}

func (s *fakeSession) Logout(context.Context) error {
	s.user, s.token, s.loggedOut = nil, "", true
	return s.logoutErr
}

// fakeClassroom embeds the port so unexpected calls panic.
type fakeClassroom struct {
	ports.ClassroomAPI

	course       model.Course
	courseErr    error
	modules      []model.Module
	module       model.Module
	moduleErr    error
	videos       []model.Video
	videosErr    error
	resources    []model.Resource
	resourcesErr error
	history      []model.ChatMessage
	historyErr   error
	reply        string
	chatErr      error

	mu       sync.Mutex
	created  []model.CourseRequest
	chatReqs []model.ChatRequest
	uploads  []model.Upload
	updates  []model.ResourceUpdate
}

func (f *fakeClassroom) CreateCourse(_ context.Context, in model.CourseRequest) (model.Course, error) {
	f.created = append(f.created, in)
	return model.Course{CourseID: "c-new", Name: in.Name, Description: in.Description}, f.courseErr
}

func (f *fakeClassroom) GetCourse(context.Context, string) (model.Course, error) {
	return f.course, f.courseErr
}

func (f *fakeClassroom) ListModules(context.Context, string) ([]model.Module, error) {
	return f.modules, nil
}

func (f *fakeClassroom) GetModule(context.Context, string) (model.Module, error) {
	return f.module, f.moduleErr
}

func (f *fakeClassroom) ListVideos(context.Context, string) ([]model.Video, error) {
	return f.videos, f.videosErr
}

func (f *fakeClassroom) ListResources(context.Context, string) ([]model.Resource, error) {
	return f.resources, f.resourcesErr
}

func (f *fakeClassroom) ChatHistory(context.Context, string) ([]model.ChatMessage, error) {
	return f.history, f.historyErr
}

func (f *fakeClassroom) UploadVideo(_ context.Context, _ string, up model.Upload) (model.VideoUpload, error) {
	f.uploads = append(f.uploads, up)
	return model.VideoUpload{VideoID: "v1", Title: up.Title, Status: "PROCESSING"}, nil
}

func (f *fakeClassroom) UpdateResource(_ context.Context, id string, in model.ResourceUpdate) (model.Resource, error) {
	f.updates = append(f.updates, in)
	return model.Resource{Video: model.Video{ID: id, Title: in.Title}}, nil
}

func (f *fakeClassroom) chat(in model.ChatRequest) (string, error) {
	f.mu.Lock()
	f.chatReqs = append(f.chatReqs, in)
	f.mu.Unlock()
	return f.reply, f.chatErr
}

func (f *fakeClassroom) ModuleChat(_ context.Context, _ string, in model.ChatRequest) (string, error) {
	return f.chat(in)
}

func (f *fakeClassroom) VideoChat(_ context.Context, _ string, in model.ChatRequest) (string, error) {
	return f.chat(in)
}

func (f *fakeClassroom) GeneratePrompt(_ context.Context, in model.ChatRequest) (string, error) {
	return f.chat(in)
}

// fakeTestPilot keeps cases in memory.
type fakeTestPilot struct {
	ports.TestPilotAPI

	suite    model.TestSuite
	cases    []model.TestCase
	listErr  error
	genCode  string
	genErr   error
	genReqs  []model.CodeGenRequest
	updates  map[string]model.TestCaseRequest
	created  []model.TestCaseRequest
	suiteReq []model.TestSuiteRequest
}

func (f *fakeTestPilot) GetSuite(context.Context, string) (model.TestSuite, error) {
	return f.suite, nil
}

func (f *fakeTestPilot) CreateSuite(_ context.Context, in model.TestSuiteRequest) (model.TestSuite, error) {
	f.suiteReq = append(f.suiteReq, in)
	return model.TestSuite{ID: "s-new", SuiteName: in.SuiteName, Tool: in.Tool}, nil
}

func (f *fakeTestPilot) ListCases(context.Context, string) ([]model.TestCase, error) {
	return f.cases, f.listErr
}

func (f *fakeTestPilot) CreateCase(_ context.Context, in model.TestCaseRequest) (model.TestCase, error) {
	f.created = append(f.created, in)
	c := model.TestCase{ID: "tc-new", TestCaseName: *in.TestCaseName}
	if in.Tool != nil {
		c.Tool = *in.Tool
	}
	return c, nil
}

func (f *fakeTestPilot) UpdateCase(_ context.Context, id string, in model.TestCaseRequest) (model.TestCase, error) {
	if f.updates == nil {
		f.updates = make(map[string]model.TestCaseRequest)
	}
	f.updates[id] = in
	return model.TestCase{}, nil
}

func (f *fakeTestPilot) GenerateCode(_ context.Context, _ string, in model.CodeGenRequest) (string, error) {
	f.genReqs = append(f.genReqs, in)
	return f.genCode, f.genErr
}

// fakeRecorder returns a canned IR.
type fakeRecorder struct {
	ir  json.RawMessage
	err error
}

func (r fakeRecorder) FetchLatestIR(context.Context) (json.RawMessage, error) { return r.ir, r.err }
