package httpx

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/eduassist/portal/internal/domain/model"
	apperrors "github.com/eduassist/portal/internal/errors"
	"github.com/eduassist/portal/internal/service"
)

//nolint:gochecknoglobals // static read-only list
var caseStatuses = []model.TestCaseStatus{
	model.TestCaseReady, model.TestCaseRunning, model.TestCaseCompleted, model.TestCaseError,
}

// parseCaseStatus matches a status filter case-insensitively; unknown values mean all.
func parseCaseStatus(raw string) model.TestCaseStatus {
	raw = strings.TrimSpace(raw)
	for _, s := range caseStatuses {
		if strings.EqualFold(raw, string(s)) {
			return s
		}
	}
	return ""
}

func caseFilterFromQuery(r *http.Request) service.CaseFilter {
	q := r.URL.Query()
	return service.CaseFilter{
		Query:  strings.TrimSpace(q.Get("q")),
		Status: parseCaseStatus(q.Get("status")),
	}
}

func suiteRequestFromForm(r *http.Request) model.TestSuiteRequest {
	return model.TestSuiteRequest{
		SuiteName: r.FormValue("suiteName"),
		Tool:      r.FormValue("tool"),
	}
}

// Suites lists the user's test suites.
// GET /test-suites.
func (h *UIHandlers) Suites(w http.ResponseWriter, r *http.Request) {
	svc := h.testPilot(r)
	h.Page(w, r, PageSpec{
		Meta:         PageMeta{Title: "Test Suites", PageTitle: "Test Suites", CurrentPage: PageSuites},
		ErrorMessage: "Failed to fetch test suites",
		Fetch: func(ctx context.Context, data map[string]any) error {
			suites, err := svc.ListSuites(ctx)
			data["Suites"] = suites
			return err
		},
	})
}

// CreateSuite handles POST /test-suites.
func (h *UIHandlers) CreateSuite(w http.ResponseWriter, r *http.Request) {
	if _, err := h.testPilot(r).CreateSuite(r.Context(), suiteRequestFromForm(r)); err != nil {
		h.mutationFailed(w, r, err, "Failed to save test suite.")
		return
	}
	h.mutationSucceeded(w, r, "Test suite created!", "/test-suites")
}

// UpdateSuite handles PUT /test-suites/{id}.
func (h *UIHandlers) UpdateSuite(w http.ResponseWriter, r *http.Request) {
	if _, err := h.testPilot(r).UpdateSuite(r.Context(), r.PathValue("id"), suiteRequestFromForm(r)); err != nil {
		h.mutationFailed(w, r, err, "Failed to save test suite.")
		return
	}
	h.mutationSucceeded(w, r, "Test suite updated!", refererPath(r))
}

// DeleteSuite handles DELETE /test-suites/{id}.
func (h *UIHandlers) DeleteSuite(w http.ResponseWriter, r *http.Request) {
	if err := h.testPilot(r).DeleteSuite(r.Context(), r.PathValue("id")); err != nil {
		h.mutationFailed(w, r, err, "Failed to delete test suite.")
		return
	}
	h.mutationSucceeded(w, r, "Test suite deleted!", "/test-suites")
}

// SuiteView shows a suite and its cases, filtered by ?q= and ?status=.
// GET /test-suites/{id}.
func (h *UIHandlers) SuiteView(w http.ResponseWriter, r *http.Request) {
	svc := h.testPilot(r)
	id := r.PathValue("id")
	filter := caseFilterFromQuery(r)
	h.Page(w, r, PageSpec{
		Meta:         PageMeta{Title: "Test Suite", PageTitle: "Test Suite", CurrentPage: PageSuite},
		ErrorMessage: "Failed to fetch test cases",
		Fetch: func(ctx context.Context, data map[string]any) error {
			d, err := svc.GetSuite(ctx, id, filter)
			if err != nil {
				return err
			}
			data["Suite"] = d.Suite
			data["Cases"] = d.Cases
			data["Total"] = d.Total
			data["Filter"] = filter
			data["Statuses"] = caseStatuses
			data["Title"] = d.Suite.SuiteName
			data["PageTitle"] = d.Suite.SuiteName
			return nil
		},
	})
}

// CreateCase handles POST /test-suites/{id}/cases.
func (h *UIHandlers) CreateCase(w http.ResponseWriter, r *http.Request) {
	suiteID := r.PathValue("id")
	if _, err := h.testPilot(r).CreateCase(r.Context(), suiteID, r.FormValue("testCaseName"), r.FormValue("tool")); err != nil {
		h.mutationFailed(w, r, err, "Failed to save test case")
		return
	}
	h.mutationSucceeded(w, r, "Test case created!", "/test-suites/"+suiteID)
}

// caseUpdateFromForm sets only the fields present in the form.
func caseUpdateFromForm(r *http.Request) model.TestCaseRequest {
	var in model.TestCaseRequest
	field := func(name string) *string {
		if _, ok := r.PostForm[name]; !ok {
			return nil
		}
		v := r.PostForm.Get(name)
		return &v
	}
	_ = r.ParseForm()
	in.TestCaseName = field("testCaseName")
	in.Tool = field("tool")
	in.Code = field("code")
	if in.TestCaseName != nil {
		name := strings.TrimSpace(*in.TestCaseName)
		in.TestCaseName = &name
	}
	return in
}

// UpdateCase handles PUT /test-cases/{id}.
func (h *UIHandlers) UpdateCase(w http.ResponseWriter, r *http.Request) {
	in := caseUpdateFromForm(r)
	if in.TestCaseName != nil && *in.TestCaseName == "" {
		h.mutationFailed(w, r, apperrors.ValidationField("testCaseName", "Test case name is required"), "Failed to save test case")
		return
	}
	if _, err := h.testPilot(r).UpdateCase(r.Context(), r.PathValue("id"), in); err != nil {
		h.mutationFailed(w, r, err, "Failed to save test case")
		return
	}
	h.mutationSucceeded(w, r, "Test case updated!", refererPath(r))
}

// DeleteCase handles DELETE /test-cases/{id}.
func (h *UIHandlers) DeleteCase(w http.ResponseWriter, r *http.Request) {
	if err := h.testPilot(r).DeleteCase(r.Context(), r.PathValue("id")); err != nil {
		h.mutationFailed(w, r, err, "Failed to delete test case")
		return
	}
	h.mutationSucceeded(w, r, "Test case deleted!", refererPath(r))
}

// suiteTarget is the suite page a case action returns to.
func suiteTarget(r *http.Request) (string, string) {
	suiteID := strings.TrimSpace(r.FormValue("suite_id"))
	if suiteID == "" {
		return "", refererPath(r)
	}
	return suiteID, "/test-suites/" + suiteID
}

// GenerateCode handles POST /test-cases/{id}/generate with form field suite_id.
func (h *UIHandlers) GenerateCode(w http.ResponseWriter, r *http.Request) {
	suiteID, target := suiteTarget(r)
	if suiteID == "" {
		h.mutationFailed(w, r, apperrors.ValidationField("suite_id", "Missing test suite"), "Failed to generate code")
		return
	}
	if _, err := h.testPilot(r).GenerateCode(r.Context(), suiteID, r.PathValue("id")); err != nil {
		h.mutationFailed(w, r, err, "Failed to generate code")
		return
	}
	h.mutationSucceeded(w, r, "Code generated!", target)
}

// RecordIR handles POST /test-cases/{id}/record-ir with form field suite_id.
func (h *UIHandlers) RecordIR(w http.ResponseWriter, r *http.Request) {
	suiteID, target := suiteTarget(r)
	if suiteID == "" {
		h.mutationFailed(w, r, apperrors.ValidationField("suite_id", "Missing test suite"), "Failed to save IR.")
		return
	}
	if _, err := h.testPilot(r).RecordIR(r.Context(), suiteID, r.PathValue("id")); err != nil {
		h.mutationFailed(w, r, err, "Failed to save IR.")
		return
	}
	h.mutationSucceeded(w, r, "IR recording saved.", target)
}

// ExportCases streams the suite's filtered cases as CSV.
// GET /test-suites/{id}/export.csv.
func (h *UIHandlers) ExportCases(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var buf bytes.Buffer
	if err := h.testPilot(r).ExportCSV(r.Context(), id, caseFilterFromQuery(r), &buf); err != nil {
		h.mutationFailed(w, r, err, "Failed to export test cases")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="test-cases-`+safeFilename(id)+`.csv"`)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger().WarnContext(r.Context(), "csv export write failed", "error", err)
	}
}

// safeFilename keeps only characters that are harmless in a header value.
func safeFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "suite"
	}
	return b.String()
}
