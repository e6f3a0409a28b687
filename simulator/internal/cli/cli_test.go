package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/breachsim/simulator/internal/authoring"
	"github.com/telhawk-systems/breachsim/simulator/internal/models"
	"github.com/telhawk-systems/breachsim/simulator/internal/scenario"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCommandsRegistered(t *testing.T) {
	root := NewRootCmd()

	expected := map[string]bool{
		"run": false, "scenarios": false, "rules": false,
		"correlate": false, "generate": false, "version": false,
	}
	for _, cmd := range root.Commands() {
		if _, ok := expected[cmd.Name()]; ok {
			expected[cmd.Name()] = true
		}
	}
	for name, found := range expected {
		assert.True(t, found, "expected command %q to be registered", name)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "breach "+Version+"\n", out)
}

func TestRun_BaselineTable(t *testing.T) {
	out, err := execute(t, "run")
	require.NoError(t, err)

	assert.Contains(t, out, "TIME")
	assert.Contains(t, out, "pickup package")
	assert.Contains(t, out, "bypass")
	assert.Contains(t, out, "Outcome: Bypassed")
	assert.Contains(t, out, "Compromised")
}

func TestRun_PatchedJSON(t *testing.T) {
	out, err := execute(t, "run", scenario.RelayAttackWagahID, "--patched", "-n", "2", "-o", "json")
	require.NoError(t, err)

	var report runReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Runs, 2)
	for _, log := range report.Runs {
		assert.Equal(t, models.OutcomeDetected, log.Outcome)
		assert.Equal(t, []string{authoring.HandoffRule().RuleID}, log.RuleIDs)
	}
	assert.Equal(t, 2, report.Stats.Iterations)
	assert.Equal(t, 100.0, report.Stats.DetectionRate)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown scenario", []string{"run", "ghost"}, "not found"},
		{"zero iterations", []string{"run", "-n", "0"}, "--iterations"},
		{"bad format", []string{"run", "-o", "xml"}, "unknown output format"},
		{"missing config", []string{"run", "--config", "/nonexistent/breach.yaml"}, "config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestScenarios(t *testing.T) {
	out, err := execute(t, "scenarios")
	require.NoError(t, err)
	assert.Contains(t, out, scenario.RelayAttackWagahID)
	assert.Contains(t, out, scenario.HandoffSignature)

	out, err = execute(t, "scenarios", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "event_sequence:")
}

func TestRulesPropose(t *testing.T) {
	out, err := execute(t, "rules", "propose", "-o", "json")
	require.NoError(t, err)

	var patch models.Patch
	require.NoError(t, json.Unmarshal([]byte(out), &patch))
	assert.True(t, strings.HasPrefix(patch.PatchID, "patch_"))
	assert.Equal(t, authoring.HandoffRule().RuleID, patch.Rule.RuleID)
	assert.NotEmpty(t, patch.PatchText)
}

func TestRulesCheck(t *testing.T) {
	data, err := json.Marshal(authoring.HandoffRule())
	require.NoError(t, err)
	valid := writeFile(t, "rule.json", string(data))

	out, err := execute(t, "rules", "check", valid)
	require.NoError(t, err)
	assert.Contains(t, out, "handoff: true")

	invalid := writeFile(t, "bad.json", `{"rule_id":"","trigger":{}}`)
	_, err = execute(t, "rules", "check", invalid)
	assert.Error(t, err)
}

func TestCorrelate(t *testing.T) {
	out, err := execute(t, "correlate", "-o", "json")
	require.NoError(t, err)

	var body map[string][]models.Correlation
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	require.Len(t, body["correlations"], 1)
	assert.Equal(t, models.StatusVulnerable, body["correlations"][0].Vulnerability.Status)

	out, err = execute(t, "correlate", "--patched", "--flag", "Attari checkpoint:warning", "-o", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	require.Len(t, body["correlations"], 2)
	for _, c := range body["correlations"] {
		assert.Equal(t, models.StatusPatched, c.Vulnerability.Status)
	}
	assert.Equal(t, models.ThreatWarning, body["correlations"][1].SocialThreat.Level)
}

func TestCorrelate_Table(t *testing.T) {
	out, err := execute(t, "correlate")
	require.NoError(t, err)
	assert.Contains(t, out, "Wagah Border Region")
	assert.Contains(t, out, "Vulnerable")
}

func TestCorrelate_BadFlag(t *testing.T) {
	_, err := execute(t, "correlate", "--flag", "Wagah:apocalyptic")
	assert.ErrorContains(t, err, "unknown level")

	_, err = execute(t, "correlate", "--flag", ":critical")
	assert.ErrorContains(t, err, "no location")
}

func TestGenerate_LoadableAndDeterministic(t *testing.T) {
	first, err := execute(t, "generate", "--count", "2", "--seed", "5", "--verify")
	require.NoError(t, err)
	second, err := execute(t, "generate", "--count", "2", "--seed", "5")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	catalog := writeFile(t, "relays.yaml", first)
	loaded, err := scenario.LoadFile(catalog)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	_, err = scenario.NewStore(loaded...)
	require.NoError(t, err)
}

func TestGenerate_RunsThroughEngine(t *testing.T) {
	out, err := execute(t, "generate", "--seed", "3",
		"--drop-delay", "10", "--pickup-delay", "20", "--pickup-dwell", "5")
	require.NoError(t, err)

	catalog := writeFile(t, "relays.yaml", out)
	loaded, err := scenario.LoadFile(catalog)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	cfgPath := writeFile(t, "config.yaml", "scenarios:\n  file: "+catalog+"\n")
	out, err = execute(t, "--config", cfgPath, "run", loaded[0].ID, "--patched", "-o", "json")
	require.NoError(t, err)

	var report runReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Runs, 1)
	assert.Equal(t, models.OutcomeDetected, report.Runs[0].Outcome)
	require.NotNil(t, report.Runs[0].TimeToDetect)
	assert.Equal(t, 25.0, *report.Runs[0].TimeToDetect)
}

func TestGenerate_UnknownZone(t *testing.T) {
	_, err := execute(t, "generate", "--zone", "Narnia")
	assert.ErrorContains(t, err, "unknown zone")
}
