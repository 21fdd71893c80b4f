package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduler/internal/models"
	"github.com/noah-isme/academy-scheduler/internal/service"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestValidateConfigCommand(t *testing.T) {
	logr = zap.NewNop()
	path := writeFile(t, "patch.yaml", "maxStudentsPerClass: 8\nworkingDays: [1, 2, 3]\n")

	cmd := validateConfigCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-f", path})
	require.NoError(t, cmd.Execute())

	var cfg service.EngineConfig
	require.NoError(t, json.Unmarshal(out.Bytes(), &cfg))
	assert.Equal(t, 8, cfg.MaxStudentsPerClass)
	assert.Len(t, cfg.WorkingDays, 3)
}

func TestValidateConfigCommandRejectsInvalidPatch(t *testing.T) {
	logr = zap.NewNop()
	path := writeFile(t, "patch.yaml", "workingHourStart: 20\nworkingHourEnd: 9\n")

	cmd := validateConfigCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-f", path})

	assert.Error(t, cmd.Execute())
}

func TestOptimizeCommand(t *testing.T) {
	logr = zap.NewNop()
	path := writeFile(t, "input.yaml", `
decisions:
  - class:
      id: c1
      courseId: math
      teacherId: t1
      studentIds: [s1, s2]
      timeSlot:
        startTime: 2026-03-02T09:00:00Z
        endTime: 2026-03-02T10:00:00Z
        dayOfWeek: 1
    priority: medium
constraints:
  teachers:
    - id: t1
`)

	cmd := optimizeCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-f", path, "--alternatives", "-1"})
	require.NoError(t, cmd.Execute())

	var solution models.OptimizationSolution
	require.NoError(t, json.Unmarshal(out.Bytes(), &solution))
	require.Len(t, solution.ScheduledClasses, 1)
	assert.Equal(t, "c1", solution.ScheduledClasses[0].ID)
	assert.Empty(t, solution.AlternativeSolutions)
}

func TestOptimizeCommandRequiresDecisions(t *testing.T) {
	logr = zap.NewNop()
	path := writeFile(t, "input.yaml", "decisions: []\n")

	cmd := optimizeCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-f", path})

	assert.Error(t, cmd.Execute())
}
