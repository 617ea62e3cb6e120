package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidConfig(t *testing.T) {
	cmd, out := newTestCommand(t)
	opts := &RootOptions{Format: "text"}

	cfg := `
equations:
  - name: lead
    expr: "sin(x) + 0.1*y"
    updates: ["x = x + t", "y = y * 0.99"]
`
	err := runValidate(opts, writeConfig(t, cfg), cmd)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "OK: 1 equation(s) valid")
}

func TestValidate_UnknownSymbol(t *testing.T) {
	cmd, out := newTestCommand(t)
	opts := &RootOptions{Format: "text"}

	cfg := `
equations:
  - name: bad
    expr: "sin(q)"
`
	err := runValidate(opts, writeConfig(t, cfg), cmd)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out.String(), "INVALID")
	assert.Contains(t, out.String(), "bad expression")
}

func TestValidate_BadUpdateRules(t *testing.T) {
	tests := []struct {
		name    string
		updates string
		want    string
	}{
		{"no equals sign", `["x + 1"]`, "no = sign"},
		{"unknown lhs", `["w = 1"]`, "unknown variable"},
		{"bad rhs", `["x = sin(q)"]`, "q"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, out := newTestCommand(t)
			opts := &RootOptions{Format: "text"}

			cfg := `
equations:
  - name: eq
    expr: "sin(x)"
    updates: ` + tt.updates + "\n"
			err := runValidate(opts, writeConfig(t, cfg), cmd)
			require.Error(t, err)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestValidate_TAllowedOnlyInUpdates(t *testing.T) {
	cmd, _ := newTestCommand(t)
	opts := &RootOptions{Format: "text"}

	// t is an update-rule symbol, not an expression symbol.
	cfg := `
equations:
  - name: eq
    expr: "sin(t)"
    updates: ["x = x + t"]
`
	err := runValidate(opts, writeConfig(t, cfg), cmd)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestValidate_JSONOutput(t *testing.T) {
	cmd, out := newTestCommand(t)
	opts := &RootOptions{Format: "json"}

	cfg := `
equations:
  - name: bad
    expr: "sin(q)"
`
	err := runValidate(opts, writeConfig(t, cfg), cmd)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalid, resp.Error.Code)

	data, err := json.Marshal(resp.Error.Details)
	require.NoError(t, err)
	var result ValidationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "bad", result.Errors[0].Equation)
	assert.Equal(t, "expression", result.Errors[0].Field)
}

func TestValidate_MissingFile(t *testing.T) {
	cmd, _ := newTestCommand(t)
	opts := &RootOptions{Format: "text"}

	err := runValidate(opts, "/nonexistent/config.yaml", cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
