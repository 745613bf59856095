package service

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduassist/portal/internal/capture"
	"github.com/eduassist/portal/internal/domain/model"
	apperrors "github.com/eduassist/portal/internal/errors"
)

func sampleCases() []model.TestCase {
	return []model.TestCase{
		{ID: "a", TestCaseName: "Login works", Tool: "playwright", CreatedAt: "2024-03-01T10:00:00Z"},
		{ID: "b", TestCaseName: "Logout", Tool: "playwright", IR: `{"steps":[]}`, CreatedAt: "2024-03-02T11:30:00.5Z"},
		{ID: "c", TestCaseName: "Login, with SSO", Tool: "cypress", IR: `{}`, Code: "test()", CreatedAt: "bogus"},
	}
}

func TestCaseFilter_Match(t *testing.T) {
	cases := sampleCases()
	tests := []struct {
		name   string
		filter CaseFilter
		want   []string
	}{
		{"all", CaseFilter{}, []string{"a", "b", "c"}},
		{"query is case-insensitive", CaseFilter{Query: "LOGIN"}, []string{"a", "c"}},
		{"status", CaseFilter{Status: model.TestCaseRunning}, []string{"b"}},
		{"query and status", CaseFilter{Query: "login", Status: model.TestCaseCompleted}, []string{"c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, c := range cases {
				if tt.filter.Match(c) {
					got = append(got, c.ID)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTestPilotService_GetSuite(t *testing.T) {
	api := &fakeTestPilot{suite: model.TestSuite{ID: "s1", SuiteName: "Smoke"}, cases: sampleCases()}
	svc := NewTestPilotService(TestPilotServiceOptions{API: api})

	d, err := svc.GetSuite(context.Background(), "s1", CaseFilter{Query: "log"})
	require.NoError(t, err)
	assert.Equal(t, "Smoke", d.Suite.SuiteName)
	assert.Equal(t, 3, d.Total)
	assert.Equal(t, model.TestCaseReady, d.Cases[0].Status)
	assert.Equal(t, model.TestCaseCompleted, d.Cases[2].Status)
}

func TestTestPilotService_CreateSuite_Validates(t *testing.T) {
	api := &fakeTestPilot{}
	svc := NewTestPilotService(TestPilotServiceOptions{API: api})

	_, err := svc.CreateSuite(context.Background(), model.TestSuiteRequest{SuiteName: "Smoke"})
	assert.True(t, apperrors.IsValidation(err))

	s, err := svc.CreateSuite(context.Background(), model.TestSuiteRequest{SuiteName: " Smoke ", Tool: "playwright"})
	require.NoError(t, err)
	assert.Equal(t, "Smoke", s.SuiteName)
}

func TestTestPilotService_CreateCase(t *testing.T) {
	api := &fakeTestPilot{}
	svc := NewTestPilotService(TestPilotServiceOptions{API: api})

	_, err := svc.CreateCase(context.Background(), "s1", " ", "playwright")
	assert.Equal(t, "testCaseName", apperrors.GetField(err))

	c, err := svc.CreateCase(context.Background(), "s1", "Checkout", "")
	require.NoError(t, err)
	assert.Equal(t, "Checkout", c.TestCaseName)
	require.Len(t, api.created, 1)
	assert.Equal(t, "s1", *api.created[0].SuiteID)
	assert.Nil(t, api.created[0].Tool)
}

func TestTestPilotService_UpdateCase_NothingToUpdate(t *testing.T) {
	svc := NewTestPilotService(TestPilotServiceOptions{API: &fakeTestPilot{}})
	_, err := svc.UpdateCase(context.Background(), "a", model.TestCaseRequest{})
	assert.True(t, apperrors.IsValidation(err))
}

func TestTestPilotService_GenerateCode(t *testing.T) {
	ctx := context.Background()

	t.Run("requires IR", func(t *testing.T) {
		api := &fakeTestPilot{cases: sampleCases()}
		_, err := NewTestPilotService(TestPilotServiceOptions{API: api}).GenerateCode(ctx, "s1", "a")
		assert.True(t, apperrors.IsValidation(err))
		assert.Empty(t, api.genReqs)
	})

	t.Run("unknown case", func(t *testing.T) {
		api := &fakeTestPilot{cases: sampleCases()}
		_, err := NewTestPilotService(TestPilotServiceOptions{API: api}).GenerateCode(ctx, "s1", "zzz")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("success", func(t *testing.T) {
		api := &fakeTestPilot{cases: sampleCases(), genCode: "generated()"}
		c, err := NewTestPilotService(TestPilotServiceOptions{API: api}).GenerateCode(ctx, "s1", "b")
		require.NoError(t, err)
		assert.Equal(t, "generated()", c.Code)
		assert.Equal(t, model.TestCaseCompleted, c.Status)
		require.Len(t, api.genReqs, 1)
		assert.Equal(t, model.CodeGenRequest{IR: `{"steps":[]}`, Tool: "playwright"}, api.genReqs[0])
	})

	t.Run("failure marks error", func(t *testing.T) {
		api := &fakeTestPilot{cases: sampleCases(), genErr: statusErr(500)}
		c, err := NewTestPilotService(TestPilotServiceOptions{API: api}).GenerateCode(ctx, "s1", "b")
		require.Error(t, err)
		assert.Equal(t, model.TestCaseError, c.Status)
	})
}

func TestTestPilotService_RecordIR(t *testing.T) {
	ctx := context.Background()

	t.Run("saves stringified IR", func(t *testing.T) {
		api := &fakeTestPilot{cases: sampleCases()}
		svc := NewTestPilotService(TestPilotServiceOptions{
			API:      api,
			Recorder: fakeRecorder{ir: json.RawMessage(`{"steps":[{"action":"click"}]}`)},
		})
		c, err := svc.RecordIR(ctx, "s1", "a")
		require.NoError(t, err)
		assert.Equal(t, model.TestCaseRunning, c.Status)

		req, ok := api.updates["a"]
		require.True(t, ok)
		assert.Equal(t, "Login works", *req.TestCaseName)
		assert.Equal(t, "playwright", *req.Tool)
		assert.Equal(t, "", *req.Code)
		assert.JSONEq(t, `{"steps":[{"action":"click"}]}`, *req.IR)
	})

	t.Run("agent timeout", func(t *testing.T) {
		api := &fakeTestPilot{cases: sampleCases()}
		svc := NewTestPilotService(TestPilotServiceOptions{API: api, Recorder: fakeRecorder{err: capture.ErrTimeout}})
		_, err := svc.RecordIR(ctx, "s1", "a")
		assert.True(t, apperrors.IsTimeout(err))
		assert.Empty(t, api.updates)
	})

	t.Run("no recording", func(t *testing.T) {
		api := &fakeTestPilot{cases: sampleCases()}
		svc := NewTestPilotService(TestPilotServiceOptions{API: api, Recorder: fakeRecorder{err: capture.ErrNoIR}})
		_, err := svc.RecordIR(ctx, "s1", "a")
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("not configured", func(t *testing.T) {
		svc := NewTestPilotService(TestPilotServiceOptions{API: &fakeTestPilot{}})
		_, err := svc.RecordIR(ctx, "s1", "a")
		assert.Equal(t, apperrors.ErrCodeUnavailable, apperrors.GetCode(err))
	})
}

func TestTestPilotService_ExportCSV(t *testing.T) {
	api := &fakeTestPilot{cases: sampleCases()}
	svc := NewTestPilotService(TestPilotServiceOptions{API: api})

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), "s1", CaseFilter{Query: "login"}, &buf))
	want := "Test Case Name,Tool,Created At\n" +
		"Login works,playwright,2024-03-01 10:00:00\n" +
		"\"Login, with SSO\",cypress,bogus\n"
	assert.Equal(t, want, buf.String())
}
