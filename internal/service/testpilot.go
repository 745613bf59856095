package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/eduassist/portal/internal/capture"
	"github.com/eduassist/portal/internal/domain/model"
	apperrors "github.com/eduassist/portal/internal/errors"
	"github.com/eduassist/portal/internal/ports"
)

// IRSource fetches the latest recording from a capture agent.
type IRSource interface {
	FetchLatestIR(ctx context.Context) (json.RawMessage, error)
}

// TestPilotServiceOptions groups dependencies for TestPilotService.
type TestPilotServiceOptions struct {
	API      ports.TestPilotAPI // Required
	Recorder IRSource           // Optional: record-IR disabled when nil
	Logger   *slog.Logger       // Optional
}

// TestPilotService drives the test suite screens.
type TestPilotService struct {
	api      ports.TestPilotAPI
	recorder IRSource
	logger   *slog.Logger
}

// NewTestPilotService constructs a TestPilotService.
func NewTestPilotService(opts TestPilotServiceOptions) *TestPilotService {
	if opts.API == nil {
		panic("TestPilotService requires an API")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TestPilotService{api: opts.API, recorder: opts.Recorder, logger: logger.With("component", "testpilot_service")}
}

// WithAPI returns a copy bound to api.
func (s *TestPilotService) WithAPI(api ports.TestPilotAPI) *TestPilotService {
	cp := *s
	cp.api = api
	return &cp
}

// ListSuites returns all suites.
func (s *TestPilotService) ListSuites(ctx context.Context) ([]model.TestSuite, error) {
	suites, err := s.api.ListSuites(ctx)
	if err != nil {
		return nil, upstreamError(err, "Failed to load test suites")
	}
	return suites, nil
}

// CreateSuite validates and creates a suite.
func (s *TestPilotService) CreateSuite(ctx context.Context, in model.TestSuiteRequest) (model.TestSuite, error) {
	if err := in.Validate(); err != nil {
		return model.TestSuite{}, validation(err)
	}
	suite, err := s.api.CreateSuite(ctx, in)
	if err != nil {
		return model.TestSuite{}, upstreamError(err, "Failed to create test suite")
	}
	return suite, nil
}

// UpdateSuite validates and updates a suite.
func (s *TestPilotService) UpdateSuite(ctx context.Context, id string, in model.TestSuiteRequest) (model.TestSuite, error) {
	if err := in.Validate(); err != nil {
		return model.TestSuite{}, validation(err)
	}
	suite, err := s.api.UpdateSuite(ctx, id, in)
	if err != nil {
		return model.TestSuite{}, upstreamError(err, "Failed to update test suite")
	}
	return suite, nil
}

// DeleteSuite deletes a suite.
func (s *TestPilotService) DeleteSuite(ctx context.Context, id string) error {
	return upstreamError(s.api.DeleteSuite(ctx, id), "Failed to delete test suite")
}

// CaseFilter narrows the case list by name and derived status.
type CaseFilter struct {
	Query  string
	Status model.TestCaseStatus // empty means all
}

// Match reports whether c passes the filter.
func (f CaseFilter) Match(c model.TestCase) bool {
	if q := strings.TrimSpace(f.Query); q != "" &&
		!strings.Contains(strings.ToLower(c.TestCaseName), strings.ToLower(q)) {
		return false
	}
	return f.Status == "" || c.DerivedStatus() == f.Status
}

// SuiteDetail is a suite with its filtered cases.
type SuiteDetail struct {
	Suite model.TestSuite
	Cases []model.TestCase
	Total int
}

// GetSuite loads a suite and the cases matching filter.
func (s *TestPilotService) GetSuite(ctx context.Context, id string, filter CaseFilter) (SuiteDetail, error) {
	suite, err := s.api.GetSuite(ctx, id)
	if err != nil {
		return SuiteDetail{}, upstreamError(err, "Failed to load test suite")
	}
	cases, err := s.cases(ctx, id, filter)
	if err != nil {
		return SuiteDetail{}, err
	}
	return SuiteDetail{Suite: suite, Cases: cases, Total: len(cases)}, nil
}

func (s *TestPilotService) cases(ctx context.Context, suiteID string, filter CaseFilter) ([]model.TestCase, error) {
	all, err := s.api.ListCases(ctx, suiteID)
	if err != nil {
		return nil, upstreamError(err, "Failed to load test cases")
	}
	out := make([]model.TestCase, 0, len(all))
	for _, c := range all {
		if filter.Match(c) {
			c.Status = c.DerivedStatus()
			out = append(out, c)
		}
	}
	return out, nil
}

// CreateCase adds a case to a suite.
func (s *TestPilotService) CreateCase(ctx context.Context, suiteID, name, tool string) (model.TestCase, error) {
	name, tool = strings.TrimSpace(name), strings.TrimSpace(tool)
	if name == "" {
		return model.TestCase{}, apperrors.ValidationField("testCaseName", "Test case name is required")
	}
	req := model.TestCaseRequest{TestCaseName: &name, SuiteID: &suiteID}
	if tool != "" {
		req.Tool = &tool
	}
	c, err := s.api.CreateCase(ctx, req)
	if err != nil {
		return model.TestCase{}, upstreamError(err, "Failed to save test case")
	}
	return c, nil
}

// UpdateCase applies a partial update.
func (s *TestPilotService) UpdateCase(ctx context.Context, id string, in model.TestCaseRequest) (model.TestCase, error) {
	if !in.HasUpdates() {
		return model.TestCase{}, apperrors.Validation("Nothing to update")
	}
	c, err := s.api.UpdateCase(ctx, id, in)
	if err != nil {
		return model.TestCase{}, upstreamError(err, "Failed to save test case")
	}
	return c, nil
}

// DeleteCase deletes a case.
func (s *TestPilotService) DeleteCase(ctx context.Context, id string) error {
	return upstreamError(s.api.DeleteCase(ctx, id), "Failed to delete test case")
}

func (s *TestPilotService) findCase(ctx context.Context, suiteID, caseID string) (model.TestCase, error) {
	cases, err := s.api.ListCases(ctx, suiteID)
	if err != nil {
		return model.TestCase{}, upstreamError(err, "Failed to load test case")
	}
	for _, c := range cases {
		if c.ID == caseID {
			return c, nil
		}
	}
	return model.TestCase{}, apperrors.NotFoundf("Test case %s not found", caseID)
}

// GenerateCode asks the backend to generate code from the case's IR. On
// failure the returned case carries the Error status.
func (s *TestPilotService) GenerateCode(ctx context.Context, suiteID, caseID string) (model.TestCase, error) {
	c, err := s.findCase(ctx, suiteID, caseID)
	if err != nil {
		return model.TestCase{}, err
	}
	if strings.TrimSpace(c.IR) == "" {
		return c, apperrors.Validation("Record an IR before generating code")
	}

	code, err := s.api.GenerateCode(ctx, c.ID, model.CodeGenRequest{IR: c.IR, Tool: c.Tool, Code: c.Code})
	if err != nil {
		c.Status = model.TestCaseError
		return c, upstreamError(err, "Failed to generate code")
	}
	c.Code = code
	c.Status = c.DerivedStatus()
	return c, nil
}

// RecordIR fetches the agent's latest recording and saves it on the case.
func (s *TestPilotService) RecordIR(ctx context.Context, suiteID, caseID string) (model.TestCase, error) {
	if s.recorder == nil {
		return model.TestCase{}, apperrors.Wrap(capture.ErrClosed, apperrors.ErrCodeUnavailable, "IR capture is not configured")
	}
	c, err := s.findCase(ctx, suiteID, caseID)
	if err != nil {
		return model.TestCase{}, err
	}

	ir, err := s.recorder.FetchLatestIR(ctx)
	switch {
	case errors.Is(err, capture.ErrTimeout):
		return c, apperrors.Wrap(err, apperrors.ErrCodeTimeout, "No recording received from the capture agent")
	case errors.Is(err, capture.ErrNoIR):
		return c, apperrors.Wrap(err, apperrors.ErrCodeValidation, "The capture agent has no recording yet")
	case err != nil:
		return c, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "Failed to save IR.")
	}

	irText := string(ir)
	updated, err := s.api.UpdateCase(ctx, c.ID, model.TestCaseRequest{
		TestCaseName: &c.TestCaseName,
		Tool:         &c.Tool,
		Code:         &c.Code,
		IR:           &irText,
	})
	if err != nil {
		return c, upstreamError(err, "Failed to save IR.")
	}
	if updated.ID == "" {
		updated = c
	}
	updated.IR = irText
	updated.Status = updated.DerivedStatus()
	s.logger.InfoContext(ctx, "recorded IR", "case_id", c.ID, "bytes", len(irText))
	return updated, nil
}

// ExportCSV writes the matching cases of a suite as CSV.
func (s *TestPilotService) ExportCSV(ctx context.Context, suiteID string, filter CaseFilter, w io.Writer) error {
	cases, err := s.cases(ctx, suiteID, filter)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Test Case Name", "Tool", "Created At"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range cases {
		if err := cw.Write([]string{c.TestCaseName, c.Tool, formatCreatedAt(c.CreatedAt)}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCreatedAt(raw string) string {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format("2006-01-02 15:04:05")
		}
	}
	return raw
}
