package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]int{"frames": 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("E_REJECTED", "frame rejected", map[string]string{"code": "TRUNCATED"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_REJECTED", resp.Error.Code)
	assert.Equal(t, "frame rejected", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Error("E_REJECTED", "frame rejected", "ignored"))
	assert.Equal(t, "Error [E_REJECTED]: frame rejected\n", buf.String())

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error("E_REJECTED", "frame rejected", "offset 44"))
	assert.Contains(t, buf.String(), "Details: offset 44")
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out, diag := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag}

	formatter.VerboseLog("decoding %s", "a.cap")
	assert.Empty(t, diag.String())

	formatter.Verbose = true
	formatter.VerboseLog("decoding %s", "a.cap")
	assert.Equal(t, "decoding a.cap\n", diag.String())
	assert.Empty(t, out.String())
	assert.Equal(t, diag, formatter.GetErrWriter())
}

func TestOutputFormatter_Respond(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Respond(CLIResponse{Status: "ok", Data: []int{1}}))
	assert.Contains(t, buf.String(), "\n  \"status\": \"ok\"")

	err := formatter.Respond(CLIResponse{
		Status: "error",
		Error:  &CLIError{Code: "E_DETERMINISM", Message: "replay mismatched"},
	})
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "replay mismatched", err.Error())
}

func TestExitError(t *testing.T) {
	cause := errors.New("no such file")
	err := fmt.Errorf("decode: %w", WrapExitError(ExitCommandError, "failed to read capture", cause))

	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "decode: failed to read capture: no such file", err.Error())
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestTypeTitle(t *testing.T) {
	assert.Equal(t, "Triangle", typeTitle("TRIANGLE"))
	assert.Equal(t, "Box", typeTitle("box"))
	assert.Equal(t, "", typeTitle(""))
}
