package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/eduassist/portal/internal/domain/model"
	"github.com/eduassist/portal/internal/ports"
)

var errTitleRequired = errors.New("title is required")

// ClassroomServiceOptions groups dependencies for ClassroomService.
type ClassroomServiceOptions struct {
	API    ports.ClassroomAPI // Required
	Logger *slog.Logger       // Optional
}

// ClassroomService drives the EduAssist course, module and chat screens.
type ClassroomService struct {
	api    ports.ClassroomAPI
	logger *slog.Logger
}

// NewClassroomService constructs a ClassroomService.
func NewClassroomService(opts ClassroomServiceOptions) *ClassroomService {
	if opts.API == nil {
		panic("ClassroomService requires an API")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassroomService{api: opts.API, logger: logger.With("component", "classroom_service")}
}

// WithAPI returns a copy bound to api, typically the backend client carrying
// one client's bearer token.
func (s *ClassroomService) WithAPI(api ports.ClassroomAPI) *ClassroomService {
	cp := *s
	cp.api = api
	return &cp
}

// ListCourses returns the dashboard courses.
func (s *ClassroomService) ListCourses(ctx context.Context) ([]model.Course, error) {
	courses, err := s.api.ListCourses(ctx)
	if err != nil {
		return nil, upstreamError(err, "Failed to load courses")
	}
	return courses, nil
}

// CreateCourse validates and creates a course.
func (s *ClassroomService) CreateCourse(ctx context.Context, in model.CourseRequest) (model.Course, error) {
	if err := in.Validate(); err != nil {
		return model.Course{}, validation(err)
	}
	c, err := s.api.CreateCourse(ctx, in)
	if err != nil {
		return model.Course{}, upstreamError(err, "Failed to create course")
	}
	return c, nil
}

// UpdateCourse validates and updates a course.
func (s *ClassroomService) UpdateCourse(ctx context.Context, id string, in model.CourseRequest) (model.Course, error) {
	if err := in.Validate(); err != nil {
		return model.Course{}, validation(err)
	}
	c, err := s.api.UpdateCourse(ctx, id, in)
	if err != nil {
		return model.Course{}, upstreamError(err, "Failed to update course")
	}
	return c, nil
}

// DeleteCourse deletes a course.
func (s *ClassroomService) DeleteCourse(ctx context.Context, id string) error {
	return upstreamError(s.api.DeleteCourse(ctx, id), "Failed to delete course")
}

// CourseDetail is a course with its modules.
type CourseDetail struct {
	Course  model.Course
	Modules []model.Module
}

// GetCourse loads a course and its modules concurrently.
func (s *ClassroomService) GetCourse(ctx context.Context, id string) (CourseDetail, error) {
	var d CourseDetail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.api.GetCourse(gctx, id)
		d.Course = c
		return err
	})
	g.Go(func() error {
		m, err := s.api.ListModules(gctx, id)
		d.Modules = m
		return err
	})
	if err := g.Wait(); err != nil {
		return CourseDetail{}, upstreamError(err, "Failed to load course")
	}
	return d, nil
}

// CreateModule validates and creates a module in a course.
func (s *ClassroomService) CreateModule(ctx context.Context, courseID string, in model.ModuleRequest) (model.Module, error) {
	if err := in.Validate(); err != nil {
		return model.Module{}, validation(err)
	}
	m, err := s.api.CreateModule(ctx, courseID, in)
	if err != nil {
		return model.Module{}, upstreamError(err, "Failed to create module")
	}
	return m, nil
}

// UpdateModule validates and updates a module.
func (s *ClassroomService) UpdateModule(ctx context.Context, id string, in model.ModuleRequest) (model.Module, error) {
	if err := in.Validate(); err != nil {
		return model.Module{}, validation(err)
	}
	m, err := s.api.UpdateModule(ctx, id, in)
	if err != nil {
		return model.Module{}, upstreamError(err, "Failed to update module")
	}
	return m, nil
}

// DeleteModule deletes a module.
func (s *ClassroomService) DeleteModule(ctx context.Context, id string) error {
	return upstreamError(s.api.DeleteModule(ctx, id), "Failed to delete module")
}

// ModuleDetail is everything the module page shows.
type ModuleDetail struct {
	Module    model.Module
	Videos    []model.Video
	Resources []model.Resource
	History   []model.ChatMessage
}

// GetModule loads a module with its videos, resources and chat history.
// The module itself is required; the three lists degrade to empty on
// failure so one broken panel does not blank the page.
func (s *ClassroomService) GetModule(ctx context.Context, id string) (ModuleDetail, error) {
	var d ModuleDetail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.api.GetModule(gctx, id)
		d.Module = m
		return err
	})
	g.Go(func() error {
		v, err := s.api.ListVideos(gctx, id)
		d.Videos = panelOrEmpty(ctx, s.logger, "videos", v, err)
		return nil
	})
	g.Go(func() error {
		r, err := s.api.ListResources(gctx, id)
		d.Resources = panelOrEmpty(ctx, s.logger, "resources", r, err)
		return nil
	})
	g.Go(func() error {
		h, err := s.api.ChatHistory(gctx, id)
		d.History = panelOrEmpty(ctx, s.logger, "chat_history", h, err)
		return nil
	})
	if err := g.Wait(); err != nil {
		return ModuleDetail{}, upstreamError(err, "Failed to load module")
	}
	return d, nil
}

func panelOrEmpty[T any](ctx context.Context, logger *slog.Logger, panel string, v []T, err error) []T {
	if err != nil {
		logger.WarnContext(ctx, "module panel unavailable", "panel", panel, "error", err)
		return []T{}
	}
	return v
}

// UploadVideo sends a video to a module.
func (s *ClassroomService) UploadVideo(ctx context.Context, moduleID string, up model.Upload) (model.VideoUpload, error) {
	if err := up.Validate(); err != nil {
		return model.VideoUpload{}, validation(err)
	}
	out, err := s.api.UploadVideo(ctx, moduleID, up)
	if err != nil {
		return model.VideoUpload{}, upstreamError(err, "Failed to upload video")
	}
	return out, nil
}

// UploadResource sends a document to a module.
func (s *ClassroomService) UploadResource(ctx context.Context, moduleID string, up model.Upload) (model.ResourceUpload, error) {
	if err := up.Validate(); err != nil {
		return model.ResourceUpload{}, validation(err)
	}
	out, err := s.api.UploadResource(ctx, moduleID, up)
	if err != nil {
		return model.ResourceUpload{}, upstreamError(err, "Failed to upload resource")
	}
	return out, nil
}

// UpdateResource renames or (un)publishes a resource.
func (s *ClassroomService) UpdateResource(ctx context.Context, id string, in model.ResourceUpdate) (model.Resource, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return model.Resource{}, validation(errTitleRequired)
	}
	r, err := s.api.UpdateResource(ctx, id, in)
	if err != nil {
		return model.Resource{}, upstreamError(err, "Failed to update resource")
	}
	return r, nil
}

// DeleteResource deletes a resource.
func (s *ClassroomService) DeleteResource(ctx context.Context, id string) error {
	return upstreamError(s.api.DeleteResource(ctx, id), "Failed to delete resource")
}

// ChatTarget selects which chat endpoint a message goes to.
type ChatTarget int

const (
	ChatModule ChatTarget = iota
	ChatVideo
	ChatRAG
)

// Chat sends one message and always returns a renderable turn: a failed call
// yields the error reply rather than an error.
func (s *ClassroomService) Chat(ctx context.Context, target ChatTarget, id string, in model.ChatRequest) model.ChatTurn {
	turn := model.ChatTurn{Message: strings.TrimSpace(in.Message)}
	in.Message = turn.Message
	in = in.WithDefaults()

	var (
		reply string
		err   error
	)
	switch target {
	case ChatVideo:
		reply, err = s.api.VideoChat(ctx, id, in)
	case ChatRAG:
		reply, err = s.api.GeneratePrompt(ctx, in)
	default:
		reply, err = s.api.ModuleChat(ctx, id, in)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "chat request failed", "target", int(target), "error", err)
		turn.Reply = model.ChatErrorReply
		turn.Failed = true
		return turn
	}
	turn.Reply = reply
	return turn
}
