package conformance

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jscore/pkg/config"
	"jscore/pkg/driver"
)

func quietConfig() *config.Config {
	cfg := config.Default()
	cfg.Log.Level = "disabled"
	return cfg
}

func TestScenariosPass(t *testing.T) {
	for _, sc := range Scenarios() {
		t.Run(sc.Name, func(t *testing.T) {
			s, err := driver.NewSession(quietConfig())
			require.NoError(t, err)
			require.NoError(t, sc.Run(s))
		})
	}
}

func TestScenarioNamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, sc := range Scenarios() {
		assert.False(t, seen[sc.Name], sc.Name)
		seen[sc.Name] = true
		assert.NotEmpty(t, sc.Description)
	}
}

func TestSelect(t *testing.T) {
	all := Scenarios()
	got, err := Select(all, "")
	require.NoError(t, err)
	assert.Len(t, got, len(all))

	got, err = Select(all, `^(proxy|dataview)/`)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "proxy/get-invariant", got[0].Name)
	assert.Equal(t, "dataview/construction", got[1].Name)

	got, err = Select(all, "nothing-matches")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Select(all, "(")
	assert.Error(t, err)
}

func TestRunReportsFailuresAndPanics(t *testing.T) {
	scenarios := []Scenario{
		{Name: "ok", Run: func(*driver.Session) error { return nil }},
		{Name: "fails", Run: func(s *driver.Session) error { return s.VM().NewTypeError("nope") }},
		{Name: "host", Run: func(*driver.Session) error { return errors.New("host failure") }},
		{Name: "panics", Run: func(*driver.Session) error { panic("boom") }},
	}
	results, stats := Run(quietConfig(), scenarios)
	assert.Equal(t, Stats{Total: 4, Passed: 1, Failed: 3, Duration: stats.Duration}, stats)
	require.Len(t, results, 4)
	assert.True(t, results[0].Passed())
	assert.EqualError(t, results[3].Err, "panic: boom")

	var out bytes.Buffer
	PrintResults(&out, results, false)
	text := out.String()
	assert.NotContains(t, text, "PASS ok")
	assert.Contains(t, text, "FAIL fails")
	assert.Contains(t, text, "Uncaught TypeError: nope")
	assert.Contains(t, text, "Uncaught host failure")

	out.Reset()
	PrintResults(&out, results, true)
	assert.Contains(t, out.String(), "PASS ok")

	out.Reset()
	PrintSummary(&out, stats)
	assert.Contains(t, out.String(), "Passed:   1 (25.0%)")
	assert.Contains(t, out.String(), "Failed:   3 (75.0%)")
}

func TestRunWithInvalidConfig(t *testing.T) {
	cfg := quietConfig()
	cfg.Memory.MaxByteLength = 0
	results, stats := Run(cfg, Scenarios()[:1])
	assert.Equal(t, 1, stats.Failed)
	assert.ErrorContains(t, results[0].Err, "new session")
}

func TestRunLogsScenarioOutcome(t *testing.T) {
	var logs bytes.Buffer
	cfg := config.Default()
	cfg.Log = config.LogConfig{Level: "debug", Format: config.FormatJSON}
	sel, err := Select(Scenarios(), "^equality/")
	require.NoError(t, err)
	_, stats := Run(cfg, sel, driver.WithLogWriter(&logs))
	assert.Equal(t, 1, stats.Passed)
	assert.Contains(t, logs.String(), `"scenario":"equality/bigint-boolean-loose"`)
	assert.Contains(t, logs.String(), `"passed":true`)
}
