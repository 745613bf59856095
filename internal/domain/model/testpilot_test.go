//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCaseDerivedStatus(t *testing.T) {
	tests := []struct {
		name string
		tc   TestCase
		want TestCaseStatus
	}{
		{name: "empty is ready", tc: TestCase{}, want: TestCaseReady},
		{name: "ir only is running", tc: TestCase{IR: `{"steps":[]}`}, want: TestCaseRunning},
		{name: "ir and code is completed", tc: TestCase{IR: "{}", Code: "test()"}, want: TestCaseCompleted},
		{name: "code without ir is ready", tc: TestCase{Code: "test()"}, want: TestCaseReady},
		{name: "error wins", tc: TestCase{IR: "{}", Code: "x", Status: TestCaseError}, want: TestCaseError},
		{name: "whitespace ir ignored", tc: TestCase{IR: "  "}, want: TestCaseReady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tc.DerivedStatus())
		})
	}
}

func TestTestSuiteRequestValidate(t *testing.T) {
	req := TestSuiteRequest{SuiteName: "  Checkout ", Tool: " playwright "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "Checkout", req.SuiteName)
	assert.Equal(t, "playwright", req.Tool)

	assert.Error(t, (&TestSuiteRequest{Tool: "x"}).Validate())
	assert.Error(t, (&TestSuiteRequest{SuiteName: "x"}).Validate())
}

func TestCourseRequestValidate(t *testing.T) {
	req := CourseRequest{Name: " Algebra ", Status: "archived"}
	require.NoError(t, req.Validate())
	assert.Equal(t, "Algebra", req.Name)
	assert.Equal(t, CourseStatusArchived, req.Status)

	assert.Error(t, (&CourseRequest{Name: ""}).Validate())
	assert.Error(t, (&CourseRequest{Name: "x", Status: "DRAFT"}).Validate())
}

func TestChatRequestWithDefaults(t *testing.T) {
	got := ChatRequest{Message: "hi"}.WithDefaults()
	assert.Equal(t, DefaultPromptTemplate, got.PromptTemplate)
	assert.NotNil(t, got.ContextDocuments)

	custom := ChatRequest{Message: "hi", PromptTemplate: "be brief"}.WithDefaults()
	assert.Equal(t, "be brief", custom.PromptTemplate)
}
