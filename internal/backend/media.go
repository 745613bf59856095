package backend

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/eduassist/portal/internal/domain/model"
)

// ListVideos returns the videos of a module.
func (c *Client) ListVideos(ctx context.Context, moduleID string) ([]model.Video, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/api/v1/courses/modules/" + escape(moduleID) + "/videos"})
	if err != nil {
		return nil, err
	}
	return decodeList[model.Video](body, "videos")
}

// ListResources returns the resources of a module.
func (c *Client) ListResources(ctx context.Context, moduleID string) ([]model.Resource, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/api/v1/courses/modules/" + escape(moduleID) + "/resources"})
	if err != nil {
		return nil, err
	}
	return decodeList[model.Resource](body, "resources")
}

// UploadVideo sends a video for processing.
func (c *Client) UploadVideo(ctx context.Context, moduleID string, up model.Upload) (model.VideoUpload, error) {
	var out model.VideoUpload
	err := c.upload(ctx, "/api/v1/courses/modules/"+escape(moduleID)+"/videos-sync", up, &out)
	return out, err
}

// UploadResource sends a supplementary document.
func (c *Client) UploadResource(ctx context.Context, moduleID string, up model.Upload) (model.ResourceUpload, error) {
	var out model.ResourceUpload
	err := c.upload(ctx, "/api/v1/courses/modules/"+escape(moduleID)+"/resources-sync", up, &out)
	return out, err
}

// UpdateResource edits a resource.
func (c *Client) UpdateResource(ctx context.Context, id string, in model.ResourceUpdate) (model.Resource, error) {
	var out model.Resource
	err := c.sendJSON(ctx, http.MethodPut, "/api/v1/courses/resources/"+escape(id), in, &out)
	return out, err
}

// DeleteResource deletes a resource.
func (c *Client) DeleteResource(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodDelete, "/api/v1/courses/resources/"+escape(id), nil, nil)
}

// upload streams up as multipart/form-data with fields file, title and upload_to_drive.
func (c *Client) upload(ctx context.Context, path string, up model.Upload, out any) error {
	if err := up.Validate(); err != nil {
		return err
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUpload(mw, up))
	}()

	err := c.doJSON(ctx, request{
		method:      http.MethodPost,
		path:        path,
		body:        pr,
		contentType: mw.FormDataContentType(),
	}, out)
	// Unblocks the writer if the request ended before the body was consumed.
	_ = pr.Close()
	return err
}

func writeUpload(mw *multipart.Writer, up model.Upload) error {
	title := up.Title
	if title == "" {
		title = up.Filename
	}
	if err := mw.WriteField("title", title); err != nil {
		return err
	}
	if err := mw.WriteField("upload_to_drive", strconv.FormatBool(up.UploadToDrive)); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("file", up.Filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, up.Content); err != nil {
		return fmt.Errorf("copy upload: %w", err)
	}
	return mw.Close()
}
