//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"strings"
)

// TestCaseStatus is the derived progress of a test case.
type TestCaseStatus string

const (
	TestCaseReady     TestCaseStatus = "Ready"
	TestCaseRunning   TestCaseStatus = "Running"
	TestCaseCompleted TestCaseStatus = "Completed"
	TestCaseError     TestCaseStatus = "Error"
)

// TestSuite groups test cases recorded against one tool.
type TestSuite struct {
	ID        string `json:"_id"`
	SuiteName string `json:"suiteName"`
	UserID    string `json:"userId,omitempty"`
	Tool      string `json:"tool"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// TestSuiteRequest creates or updates a suite.
type TestSuiteRequest struct {
	SuiteName string `json:"suiteName"`
	Tool      string `json:"tool"`
}

// Validate normalises and validates the request.
func (r *TestSuiteRequest) Validate() error {
	r.SuiteName = strings.TrimSpace(r.SuiteName)
	r.Tool = strings.TrimSpace(r.Tool)
	if r.SuiteName == "" {
		return errors.New("suite name is required")
	}
	if r.Tool == "" {
		return errors.New("tool is required")
	}
	return nil
}

// TestCase is a recorded scenario and its generated code.
type TestCase struct {
	ID           string         `json:"_id"`
	TestCaseName string         `json:"testCaseName"`
	SuiteID      string         `json:"suiteId"`
	IR           string         `json:"IR,omitempty"`
	Code         string         `json:"code,omitempty"`
	Tool         string         `json:"tool,omitempty"`
	CreatedAt    string         `json:"createdAt,omitempty"`
	Status       TestCaseStatus `json:"status,omitempty"`
}

// DerivedStatus reports progress from the recorded IR and generated code.
// An explicit Error status always wins.
func (c TestCase) DerivedStatus() TestCaseStatus {
	hasIR := strings.TrimSpace(c.IR) != ""
	hasCode := strings.TrimSpace(c.Code) != ""
	switch {
	case c.Status == TestCaseError:
		return TestCaseError
	case hasIR && hasCode:
		return TestCaseCompleted
	case hasIR:
		return TestCaseRunning
	default:
		return TestCaseReady
	}
}

// TestCaseRequest creates or updates a case. Nil fields are left untouched.
type TestCaseRequest struct {
	TestCaseName *string `json:"testCaseName,omitempty"`
	SuiteID      *string `json:"suiteId,omitempty"`
	IR           *string `json:"IR,omitempty"`
	Code         *string `json:"code,omitempty"`
	Tool         *string `json:"tool,omitempty"`
}

// HasUpdates reports whether any field is set.
func (r *TestCaseRequest) HasUpdates() bool {
	return r.TestCaseName != nil || r.SuiteID != nil || r.IR != nil || r.Code != nil || r.Tool != nil
}

// CodeGenRequest asks the backend to generate test code from a recorded IR.
type CodeGenRequest struct {
	IR   string `json:"IR"`
	Tool string `json:"tool"`
	Code string `json:"code"`
}

// CodeGenResponse carries the generated code.
type CodeGenResponse struct {
	Code string `json:"code"`
}
