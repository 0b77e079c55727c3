package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot is what a golden file holds for one scenario.
// It carries no durations or wall-clock values, so it is byte-stable.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	SessionID    string       `json:"session_id"`
	Trace        []TraceEvent `json:"trace"`
	Scene        []SceneEntry `json:"scene"`
}

// MarshalSnapshot renders the snapshot of result as indented JSON with a
// trailing newline.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	out, err := json.MarshalIndent(TraceSnapshot{
		ScenarioName: name,
		SessionID:    result.SessionID,
		Trace:        result.Trace,
		Scene:        result.Scene,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// RunWithGolden executes a scenario and compares the trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	out, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, out)
	return nil
}
