package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/config"
	"github.com/mydudu/screening-api/internal/domain/growth"
	"github.com/mydudu/screening-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGrowthCommand(t *testing.T) {
	out, err := execute(t, "growth",
		"--sex", "female", "--age-days", "548", "--weight", "10.2", "--height", "80.5",
		"--temperature", "38.4", "--json")
	require.NoError(t, err)

	var report growth.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.NotEmpty(t, report.Assessments)
	require.NotNil(t, report.Profile.TemperatureC)
	assert.NotEmpty(t, report.Notes, "a fever produces a vital note")
	assert.Nil(t, report.Profile.HeartRateBpm, "unset optional flags stay nil")

	out, err = execute(t, "growth", "--sex", "female", "--age-days", "548", "--weight", "10.2", "--height", "80.5")
	require.NoError(t, err)
	assert.Contains(t, out, string(report.Assessments[0].Indicator))

	_, err = execute(t, "growth", "--sex", "robot", "--age-days", "548", "--weight", "10.2", "--height", "80.5")
	assert.Error(t, err)
}

func TestGrowthCommand_Batch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"ref,sex,age_days,weight_kg,height_cm\nA1,female,548,10.2,80.5\nA2,male,365,9.6,75.7\n"), 0o600))

	out, err := execute(t, "growth", "--csv", path, "--concurrency", "2", "--json")
	require.NoError(t, err)

	var results []batchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "A1", results[0].Ref)
	assert.Equal(t, "A2", results[1].Ref)

	_, err = execute(t, "growth", "--csv", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestKBCommands(t *testing.T) {
	out, err := execute(t, "kb", "validate", filepath.Join("..", "..", "internal", "knowledge", "default.yaml"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "OK "), out)
	assert.Contains(t, out, "6 diseases")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("diseases: []\n"), 0o600))
	_, err = execute(t, "kb", "validate", bad)
	assert.Error(t, err)

	out, err = execute(t, "kb", "symptom", "fever")
	require.NoError(t, err)
	assert.Contains(t, out, "P(yes)=")

	_, err = execute(t, "kb", "symptom", "fevr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean fever")
}

func TestTokenCommand(t *testing.T) {
	secret := "cli-test-secret-0123456789abcdefghij"
	operator := uuid.New()

	out, err := execute(t, "token", "--jwt-secret", secret, "--operator", operator.String())
	require.NoError(t, err)

	jwtService, err := auth.NewJWTService(config.AuthConfig{JWTSecret: secret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)
	claims, err := jwtService.ValidateToken(context.Background(), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, operator, claims.OperatorID)

	_, err = execute(t, "token", "--jwt-secret", secret, "--operator", "not-a-uuid")
	assert.Error(t, err)
}
