package ports

import (
	"context"

	"github.com/eduassist/portal/internal/domain/model"
)

// ClassroomAPI is the EduAssist course, media and chat surface of the backend.
type ClassroomAPI interface {
	ListCourses(ctx context.Context) ([]model.Course, error)
	GetCourse(ctx context.Context, id string) (model.Course, error)
	CreateCourse(ctx context.Context, in model.CourseRequest) (model.Course, error)
	UpdateCourse(ctx context.Context, id string, in model.CourseRequest) (model.Course, error)
	DeleteCourse(ctx context.Context, id string) error

	ListModules(ctx context.Context, courseID string) ([]model.Module, error)
	GetModule(ctx context.Context, id string) (model.Module, error)
	CreateModule(ctx context.Context, courseID string, in model.ModuleRequest) (model.Module, error)
	UpdateModule(ctx context.Context, id string, in model.ModuleRequest) (model.Module, error)
	DeleteModule(ctx context.Context, id string) error

	ListVideos(ctx context.Context, moduleID string) ([]model.Video, error)
	ListResources(ctx context.Context, moduleID string) ([]model.Resource, error)
	UploadVideo(ctx context.Context, moduleID string, up model.Upload) (model.VideoUpload, error)
	UploadResource(ctx context.Context, moduleID string, up model.Upload) (model.ResourceUpload, error)
	UpdateResource(ctx context.Context, id string, in model.ResourceUpdate) (model.Resource, error)
	DeleteResource(ctx context.Context, id string) error

	ChatHistory(ctx context.Context, moduleID string) ([]model.ChatMessage, error)
	ModuleChat(ctx context.Context, moduleID string, in model.ChatRequest) (string, error)
	VideoChat(ctx context.Context, videoID string, in model.ChatRequest) (string, error)
	GeneratePrompt(ctx context.Context, in model.ChatRequest) (string, error)
}

// TestPilotAPI is the test suite and code generation surface of the backend.
type TestPilotAPI interface {
	ListSuites(ctx context.Context) ([]model.TestSuite, error)
	GetSuite(ctx context.Context, id string) (model.TestSuite, error)
	CreateSuite(ctx context.Context, in model.TestSuiteRequest) (model.TestSuite, error)
	UpdateSuite(ctx context.Context, id string, in model.TestSuiteRequest) (model.TestSuite, error)
	DeleteSuite(ctx context.Context, id string) error

	ListCases(ctx context.Context, suiteID string) ([]model.TestCase, error)
	CreateCase(ctx context.Context, in model.TestCaseRequest) (model.TestCase, error)
	UpdateCase(ctx context.Context, id string, in model.TestCaseRequest) (model.TestCase, error)
	DeleteCase(ctx context.Context, id string) error
	GenerateCode(ctx context.Context, id string, in model.CodeGenRequest) (string, error)
}
