// File: internal/server/tools_actions_test.go
package server_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vxkeys/puppetry/api/schemas"
)

type actionResult struct {
	SessionID string               `json:"session_id"`
	Result    schemas.ActionResult `json:"result"`
}

func TestSingleActionTools_DispatchThroughTheDriver(t *testing.T) {
	r := newRig(t, nil, nil)
	sess := r.connect(t)
	openSession(t, sess, map[string]any{"session_id": "s1"})

	d := r.factory.Driver(0)
	d.On("Navigate", mock.Anything, "https://example.com/dash").Return(nil)
	d.On("Click", mock.Anything, schemas.Selector{Using: schemas.ByCSS, Value: "#go"}).Return(nil)
	d.On("SendKeys", mock.Anything, schemas.Selector{Using: schemas.ByXPath, Value: "//input[@name='q']"}, "hello").Return(nil)
	d.On("Title", mock.Anything).Return("Dashboard", nil)
	d.On("Screenshot", mock.Anything).Return("aGVsbG8=", nil)

	var res actionResult
	callOK(t, sess, "navigate", map[string]any{"url": "https://example.com/dash"}, &res)
	assert.Equal(t, "s1", res.SessionID)
	assert.True(t, res.Result.Success)
	assert.Equal(t, schemas.ActionNavigate, res.Result.Kind)

	// The selector strategy defaults to css when "using" is omitted.
	callOK(t, sess, "click", map[string]any{"selector": "#go"}, &res)
	assert.True(t, res.Result.Success)

	callOK(t, sess, "type_text", map[string]any{
		"selector": "//input[@name='q']",
		"using":    "xpath",
		"text":     "hello",
	}, &res)
	assert.True(t, res.Result.Success)

	callOK(t, sess, "get_title", map[string]any{}, &res)
	assert.True(t, res.Result.Success)
	assert.Equal(t, "Dashboard", res.Result.Payload)

	callOK(t, sess, "take_screenshot", map[string]any{}, &res)
	assert.True(t, res.Result.Success)
	assert.Equal(t, "aGVsbG8=", res.Result.Payload)

	d.AssertExpectations(t)
}

func TestSingleActionTool_FailureStaysInTheResult(t *testing.T) {
	r := newRig(t, nil, nil)
	sess := r.connect(t)
	openSession(t, sess, map[string]any{"session_id": "s1"})

	d := r.factory.Driver(0)
	d.On("Click", mock.Anything, mock.Anything).
		Return(fmt.Errorf("%w: #missing", schemas.ErrElementNotFound))

	var res actionResult
	callOK(t, sess, "click", map[string]any{"selector": "#missing"}, &res)
	assert.False(t, res.Result.Success)
	require.NotNil(t, res.Result.Error)
	assert.Equal(t, schemas.KindElementNotFound, res.Result.Error.Kind)
}

func TestSingleActionTool_DescriptorValidationStaysInTheResult(t *testing.T) {
	r := newRig(t, nil, nil)
	sess := r.connect(t)
	openSession(t, sess, map[string]any{"session_id": "s1"})

	// The executor rejects a navigate without a url; no driver call happens.
	var res actionResult
	callOK(t, sess, "navigate", map[string]any{"url": ""}, &res)
	assert.False(t, res.Result.Success)
	require.NotNil(t, res.Result.Error)
	assert.Equal(t, schemas.KindInvalidArgument, res.Result.Error.Kind)
	r.factory.Driver(0).AssertNotCalled(t, "Navigate", mock.Anything, mock.Anything)
}

func TestSingleActionTool_UnknownSessionStaysInTheResult(t *testing.T) {
	r := newRig(t, nil, nil)
	sess := r.connect(t)

	var res actionResult
	callOK(t, sess, "get_url", map[string]any{"session_id": "ghost"}, &res)
	assert.False(t, res.Result.Success)
	require.NotNil(t, res.Result.Error)
	assert.Equal(t, schemas.KindSessionNotFound, res.Result.Error.Kind)
}

func TestExecuteActions_PolicyShapesTheReport(t *testing.T) {
	r := newRig(t, nil, nil)
	sess := r.connect(t)
	openSession(t, sess, map[string]any{"session_id": "s1"})

	d := r.factory.Driver(0)
	d.On("Navigate", mock.Anything, "https://one.example/").Return(nil)
	d.On("Click", mock.Anything, mock.Anything).
		Return(fmt.Errorf("%w: #absent", schemas.ErrElementNotFound))
	d.On("Title", mock.Anything).Return("One", nil)

	actions := []map[string]any{
		{"kind": "navigate", "url": "https://one.example/"},
		{"kind": "click", "selector": map[string]any{"using": "css", "value": "#absent"}},
		{"kind": "get_title"},
	}

	var report schemas.ExecutionReport
	callOK(t, sess, "execute_actions", map[string]any{"actions": actions}, &report)
	assert.False(t, report.Success)
	assert.Len(t, report.Results, 2)

	callOK(t, sess, "execute_actions", map[string]any{
		"actions":           actions,
		"continue_on_error": true,
	}, &report)
	assert.True(t, report.Success)
	require.Len(t, report.Results, 3)
	assert.False(t, report.Results[1].Success)
	assert.Equal(t, "One", report.Results[2].Payload)
}

func TestExecuteActions_Validation(t *testing.T) {
	r := newRig(t, nil, nil)
	sess := r.connect(t)

	msg := callErr(t, sess, "execute_actions", map[string]any{"actions": []any{}})
	assert.Contains(t, msg, "InvalidArgument")

	// An unknown kind inside the sequence is a per-action failure, not a
	// tool error.
	openSession(t, sess, map[string]any{"session_id": "s1"})
	var report schemas.ExecutionReport
	callOK(t, sess, "execute_actions", map[string]any{
		"actions": []map[string]any{{"kind": "teleport"}},
	}, &report)
	assert.False(t, report.Success)
	require.Len(t, report.Results, 1)
	require.NotNil(t, report.Results[0].Error)
	assert.Equal(t, schemas.KindUnknownActionType, report.Results[0].Error.Kind)
}
