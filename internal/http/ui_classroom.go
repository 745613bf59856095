package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/eduassist/portal/internal/domain/model"
	apperrors "github.com/eduassist/portal/internal/errors"
	"github.com/eduassist/portal/internal/service"
)

const (
	// maxUploadBytes bounds a single multipart upload.
	maxUploadBytes = 512 << 20
	// uploadMemory is held in memory before multipart parts spill to disk.
	uploadMemory = 32 << 20
)

// Dashboard lists the user's courses.
// GET /.
func (h *UIHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.NotFound(w, r)
		return
	}
	svc := h.classroom(r)
	h.Page(w, r, PageSpec{
		Meta:         PageMeta{Title: "Dashboard", PageTitle: "My Courses", CurrentPage: PageDashboard},
		ErrorMessage: "Failed to fetch courses",
		Fetch: func(ctx context.Context, data map[string]any) error {
			courses, err := svc.ListCourses(ctx)
			data["Courses"] = courses
			return err
		},
	})
}

func courseRequestFromForm(r *http.Request) model.CourseRequest {
	return model.CourseRequest{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Status:      model.CourseStatus(r.FormValue("status")),
	}
}

func moduleRequestFromForm(r *http.Request) model.ModuleRequest {
	return model.ModuleRequest{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
	}
}

// CreateCourse handles POST /courses.
func (h *UIHandlers) CreateCourse(w http.ResponseWriter, r *http.Request) {
	if _, err := h.classroom(r).CreateCourse(r.Context(), courseRequestFromForm(r)); err != nil {
		h.mutationFailed(w, r, err, "Failed to save course.")
		return
	}
	h.mutationSucceeded(w, r, "Course created!", "/")
}

// UpdateCourse handles PUT /courses/{id}.
func (h *UIHandlers) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	if _, err := h.classroom(r).UpdateCourse(r.Context(), r.PathValue("id"), courseRequestFromForm(r)); err != nil {
		h.mutationFailed(w, r, err, "Failed to save course.")
		return
	}
	h.mutationSucceeded(w, r, "Course updated!", refererPath(r))
}

// DeleteCourse handles DELETE /courses/{id}.
func (h *UIHandlers) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := h.classroom(r).DeleteCourse(r.Context(), r.PathValue("id")); err != nil {
		h.mutationFailed(w, r, err, "Failed to delete course.")
		return
	}
	h.mutationSucceeded(w, r, "Course deleted!", "/")
}

// CourseView shows a course and its modules.
// GET /courses/{id}.
func (h *UIHandlers) CourseView(w http.ResponseWriter, r *http.Request) {
	svc := h.classroom(r)
	id := r.PathValue("id")
	h.Page(w, r, PageSpec{
		Meta:         PageMeta{Title: "Course", PageTitle: "Course", CurrentPage: PageCourse},
		ErrorMessage: "Failed to fetch course details",
		Fetch: func(ctx context.Context, data map[string]any) error {
			d, err := svc.GetCourse(ctx, id)
			if err != nil {
				return err
			}
			data["Course"] = d.Course
			data["Modules"] = d.Modules
			data["Title"] = d.Course.Name
			data["PageTitle"] = d.Course.Name
			return nil
		},
	})
}

// CreateModule handles POST /courses/{id}/modules.
func (h *UIHandlers) CreateModule(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("id")
	if _, err := h.classroom(r).CreateModule(r.Context(), courseID, moduleRequestFromForm(r)); err != nil {
		h.mutationFailed(w, r, err, "Failed to save module.")
		return
	}
	h.mutationSucceeded(w, r, "Module created!", "/courses/"+courseID)
}

// UpdateModule handles PUT /modules/{id}.
func (h *UIHandlers) UpdateModule(w http.ResponseWriter, r *http.Request) {
	if _, err := h.classroom(r).UpdateModule(r.Context(), r.PathValue("id"), moduleRequestFromForm(r)); err != nil {
		h.mutationFailed(w, r, err, "Failed to save module.")
		return
	}
	h.mutationSucceeded(w, r, "Module updated!", refererPath(r))
}

// DeleteModule handles DELETE /modules/{id}?course_id=<course>.
func (h *UIHandlers) DeleteModule(w http.ResponseWriter, r *http.Request) {
	if err := h.classroom(r).DeleteModule(r.Context(), r.PathValue("id")); err != nil {
		h.mutationFailed(w, r, err, "Failed to delete module.")
		return
	}
	target := "/"
	if courseID := strings.TrimSpace(r.FormValue("course_id")); courseID != "" {
		target = "/courses/" + courseID
	}
	h.mutationSucceeded(w, r, "Module deleted!", target)
}

// ModuleView shows a module with its videos, resources and chat history.
// GET /modules/{id}.
func (h *UIHandlers) ModuleView(w http.ResponseWriter, r *http.Request) {
	svc := h.classroom(r)
	id := r.PathValue("id")
	h.Page(w, r, PageSpec{
		Meta:         PageMeta{Title: "Module", PageTitle: "Module", CurrentPage: PageModule},
		ErrorMessage: "Failed to fetch module details",
		Fetch: func(ctx context.Context, data map[string]any) error {
			d, err := svc.GetModule(ctx, id)
			if err != nil {
				return err
			}
			data["Module"] = d.Module
			data["Videos"] = d.Videos
			data["Resources"] = d.Resources
			data["History"] = d.History
			data["Title"] = d.Module.Name
			data["PageTitle"] = d.Module.Name
			data["DefaultPromptTemplate"] = model.DefaultPromptTemplate
			return nil
		},
	})
}

// readUpload parses a multipart upload with fields file, title and upload_to_drive.
// The returned close func releases the file and any spilled parts.
func readUpload(w http.ResponseWriter, r *http.Request) (model.Upload, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return model.Upload{}, func() {}, apperrors.Validation("File is too large")
		}
		return model.Upload{}, func() {}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "Please choose a file to upload")
	}
	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		cleanup()
		return model.Upload{}, func() {}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "Please choose a file to upload")
	}
	driveUpload, _ := strconv.ParseBool(r.FormValue("upload_to_drive"))
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = hdr.Filename
	}
	up := model.Upload{
		Filename:      hdr.Filename,
		Title:         title,
		UploadToDrive: driveUpload,
		Content:       f,
	}
	return up, func() { _ = f.Close(); cleanup() }, nil
}

// UploadVideo handles POST /modules/{id}/videos.
func (h *UIHandlers) UploadVideo(w http.ResponseWriter, r *http.Request) {
	moduleID := r.PathValue("id")
	up, done, err := readUpload(w, r)
	defer done()
	if err != nil {
		h.mutationFailed(w, r, err, "Failed to upload video.")
		return
	}
	out, err := h.classroom(r).UploadVideo(r.Context(), moduleID, up)
	if err != nil {
		h.mutationFailed(w, r, err, "Failed to upload video.")
		return
	}
	msg := "Video uploaded!"
	if out.EstimatedProcessingTime != "" {
		msg += " Processing takes about " + out.EstimatedProcessingTime + "."
	}
	h.mutationSucceeded(w, r, msg, "/modules/"+moduleID)
}

// UploadResource handles POST /modules/{id}/resources.
func (h *UIHandlers) UploadResource(w http.ResponseWriter, r *http.Request) {
	moduleID := r.PathValue("id")
	up, done, err := readUpload(w, r)
	defer done()
	if err != nil {
		h.mutationFailed(w, r, err, "Failed to upload resource.")
		return
	}
	if _, err := h.classroom(r).UploadResource(r.Context(), moduleID, up); err != nil {
		h.mutationFailed(w, r, err, "Failed to upload resource.")
		return
	}
	h.mutationSucceeded(w, r, "Resource uploaded!", "/modules/"+moduleID)
}

// UpdateResource handles PUT /resources/{id}.
func (h *UIHandlers) UpdateResource(w http.ResponseWriter, r *http.Request) {
	in := model.ResourceUpdate{Title: r.FormValue("title")}
	if raw := r.FormValue("published"); raw != "" {
		published, err := strconv.ParseBool(raw)
		if err != nil {
			h.mutationFailed(w, r, apperrors.ValidationField("published", "Invalid published value"), "Failed to update resource.")
			return
		}
		in.Published = &published
	}
	if _, err := h.classroom(r).UpdateResource(r.Context(), r.PathValue("id"), in); err != nil {
		h.mutationFailed(w, r, err, "Failed to update resource.")
		return
	}
	h.mutationSucceeded(w, r, "Resource updated!", refererPath(r))
}

// DeleteResource handles DELETE /resources/{id}.
func (h *UIHandlers) DeleteResource(w http.ResponseWriter, r *http.Request) {
	if err := h.classroom(r).DeleteResource(r.Context(), r.PathValue("id")); err != nil {
		h.mutationFailed(w, r, err, "Failed to delete resource.")
		return
	}
	h.mutationSucceeded(w, r, "Resource deleted!", refererPath(r))
}

// ModuleChat handles POST /modules/{id}/chat.
func (h *UIHandlers) ModuleChat(w http.ResponseWriter, r *http.Request) {
	h.chat(w, r, service.ChatModule, r.PathValue("id"))
}

// VideoChat handles POST /videos/{id}/chat.
func (h *UIHandlers) VideoChat(w http.ResponseWriter, r *http.Request) {
	h.chat(w, r, service.ChatVideo, r.PathValue("id"))
}

// RAGPrompt handles POST /rag/prompt.
func (h *UIHandlers) RAGPrompt(w http.ResponseWriter, r *http.Request) {
	h.chat(w, r, service.ChatRAG, "")
}

// chat sends one message and swaps in the rendered turn. A failed backend
// call still renders, with the error reply.
func (h *UIHandlers) chat(w http.ResponseWriter, r *http.Request, target service.ChatTarget, id string) {
	in := model.ChatRequest{
		Message:          r.FormValue("message"),
		PromptTemplate:   strings.TrimSpace(r.FormValue("llm_prompt_template")),
		ContextDocuments: contextDocuments(r.FormValue("context_documents")),
	}
	if strings.TrimSpace(in.Message) == "" {
		h.mutationFailed(w, r, apperrors.ValidationField("message", "Please enter a message"), "Please enter a message")
		return
	}
	turn := h.classroom(r).Chat(r.Context(), target, id, in)
	h.renderFragment(w, r, "chat-turn", turn)
}

// contextDocuments splits a textarea into one document per non-blank line.
func contextDocuments(raw string) []string {
	var docs []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			docs = append(docs, line)
		}
	}
	return docs
}
