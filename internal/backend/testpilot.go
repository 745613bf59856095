package backend

import (
	"context"
	"net/http"

	"github.com/eduassist/portal/internal/domain/model"
)

// ListSuites returns the caller's test suites.
func (c *Client) ListSuites(ctx context.Context) ([]model.TestSuite, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/test-suites"})
	if err != nil {
		return nil, err
	}
	return decodeList[model.TestSuite](body, "testSuites")
}

// GetSuite fetches one suite.
func (c *Client) GetSuite(ctx context.Context, id string) (model.TestSuite, error) {
	var out model.TestSuite
	err := c.sendJSON(ctx, http.MethodGet, "/test-suites/"+escape(id), nil, &out)
	return out, err
}

// CreateSuite creates a suite.
func (c *Client) CreateSuite(ctx context.Context, in model.TestSuiteRequest) (model.TestSuite, error) {
	var out model.TestSuite
	err := c.sendJSON(ctx, http.MethodPost, "/test-suites", in, &out)
	return out, err
}

// UpdateSuite renames a suite or changes its tool.
func (c *Client) UpdateSuite(ctx context.Context, id string, in model.TestSuiteRequest) (model.TestSuite, error) {
	var out model.TestSuite
	err := c.sendJSON(ctx, http.MethodPut, "/test-suites/"+escape(id), in, &out)
	return out, err
}

// DeleteSuite deletes a suite.
func (c *Client) DeleteSuite(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodDelete, "/test-suites/"+escape(id), nil, nil)
}

// ListCases returns the cases of a suite.
func (c *Client) ListCases(ctx context.Context, suiteID string) ([]model.TestCase, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/test-cases/" + escape(suiteID)})
	if err != nil {
		return nil, err
	}
	return decodeList[model.TestCase](body, "testCases")
}

// CreateCase creates a case.
func (c *Client) CreateCase(ctx context.Context, in model.TestCaseRequest) (model.TestCase, error) {
	var out model.TestCase
	err := c.sendJSON(ctx, http.MethodPost, "/test-cases", in, &out)
	return out, err
}

// UpdateCase patches the set fields of a case.
func (c *Client) UpdateCase(ctx context.Context, id string, in model.TestCaseRequest) (model.TestCase, error) {
	var out model.TestCase
	err := c.sendJSON(ctx, http.MethodPut, "/test-cases/"+escape(id), in, &out)
	return out, err
}

// DeleteCase deletes a case.
func (c *Client) DeleteCase(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodDelete, "/test-cases/"+escape(id), nil, nil)
}

// GenerateCode asks the code generator to produce test code for a case.
func (c *Client) GenerateCode(ctx context.Context, id string, in model.CodeGenRequest) (string, error) {
	var out model.CodeGenResponse
	if err := c.sendJSON(ctx, http.MethodPut, "/code-generator/"+escape(id), in, &out); err != nil {
		return "", err
	}
	return out.Code, nil
}
