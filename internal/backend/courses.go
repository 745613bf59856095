package backend

import (
	"context"
	"net/http"

	"github.com/eduassist/portal/internal/domain/model"
)

// ListCourses returns the courses visible to the caller.
func (c *Client) ListCourses(ctx context.Context) ([]model.Course, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/api/v1/courses/"})
	if err != nil {
		return nil, err
	}
	return decodeList[model.Course](body, "courses")
}

// GetCourse fetches one course.
func (c *Client) GetCourse(ctx context.Context, id string) (model.Course, error) {
	var out model.Course
	err := c.sendJSON(ctx, http.MethodGet, "/api/v1/courses/"+escape(id), nil, &out)
	return out, err
}

// CreateCourse creates a course.
func (c *Client) CreateCourse(ctx context.Context, in model.CourseRequest) (model.Course, error) {
	var out model.Course
	err := c.sendJSON(ctx, http.MethodPost, "/api/v1/courses/", in, &out)
	return out, err
}

// UpdateCourse replaces a course's editable fields.
func (c *Client) UpdateCourse(ctx context.Context, id string, in model.CourseRequest) (model.Course, error) {
	var out model.Course
	err := c.sendJSON(ctx, http.MethodPut, "/api/v1/courses/"+escape(id), in, &out)
	return out, err
}

// DeleteCourse deletes a course.
func (c *Client) DeleteCourse(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodDelete, "/api/v1/courses/"+escape(id), nil, nil)
}

// ListModules returns a course's modules.
func (c *Client) ListModules(ctx context.Context, courseID string) ([]model.Module, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/api/v1/courses/" + escape(courseID) + "/modules"})
	if err != nil {
		return nil, err
	}
	return decodeList[model.Module](body, "modules")
}

// CreateModule adds a module to a course.
func (c *Client) CreateModule(ctx context.Context, courseID string, in model.ModuleRequest) (model.Module, error) {
	var out model.Module
	err := c.sendJSON(ctx, http.MethodPost, "/api/v1/courses/"+escape(courseID)+"/modules", in, &out)
	return out, err
}

// GetModule fetches one module.
func (c *Client) GetModule(ctx context.Context, id string) (model.Module, error) {
	var out model.Module
	err := c.sendJSON(ctx, http.MethodGet, "/api/v1/modules/"+escape(id), nil, &out)
	return out, err
}

// UpdateModule replaces a module's editable fields.
func (c *Client) UpdateModule(ctx context.Context, id string, in model.ModuleRequest) (model.Module, error) {
	var out model.Module
	err := c.sendJSON(ctx, http.MethodPut, "/api/v1/modules/"+escape(id), in, &out)
	return out, err
}

// DeleteModule deletes a module.
func (c *Client) DeleteModule(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodDelete, "/api/v1/modules/"+escape(id), nil, nil)
}
