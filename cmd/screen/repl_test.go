package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/config"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/domain/inference"
	"github.com/mydudu/screening-api/internal/knowledge"
	"github.com/mydudu/screening-api/internal/platform/logger"
	"github.com/mydudu/screening-api/internal/platform/sqlite"
	"github.com/mydudu/screening-api/internal/service/screening"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedReader replays lines, then repeats fallback up to a fixed number of
// reads before reporting end of input.
type scriptedReader struct {
	lines    []string
	fallback string
	reads    int
	prompts  []string
}

func (s *scriptedReader) Readline() (string, error) {
	s.reads++
	if len(s.lines) > 0 {
		line := s.lines[0]
		s.lines = s.lines[1:]
		return line, nil
	}
	if s.fallback == "" || s.reads > 500 {
		return "", io.EOF
	}
	return s.fallback, nil
}

func (s *scriptedReader) SetPrompt(prompt string) {
	s.prompts = append(s.prompts, prompt)
}

var measurementLines = []string{"female", "548", "10.2", "80.5", "", ""}

func newTestREPL(t *testing.T, in *scriptedReader) (*sessionREPL, *bytes.Buffer) {
	t.Helper()

	log, _ := logger.GetTestLogger(t)
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "repl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	bundle, err := knowledge.Default()
	require.NoError(t, err)

	svc, err := screening.NewService(
		db, sqlite.NewSessionStore(db), sqlite.NewArticleStore(db), bundle,
		config.ScreeningConfig{SessionTimeoutMinutes: 30},
		config.PrivacyConfig{ChildIDKey: "repl-test-child-key"},
		log,
	)
	require.NoError(t, err)

	operator := uuid.New()
	view, err := svc.StartSession(context.Background(), operator, "KID-42")
	require.NoError(t, err)

	var out bytes.Buffer
	return &sessionREPL{
		service:   svc,
		operator:  operator,
		sessionID: view.Record.ID,
		in:        in,
		out:       &out,
	}, &out
}

func phaseOf(t *testing.T, r *sessionREPL) domain.Phase {
	t.Helper()
	view, err := r.service.GetSession(context.Background(), r.operator, r.sessionID)
	require.NoError(t, err)
	return view.State.Phase
}

func TestSessionREPL_Emergency(t *testing.T) {
	t.Parallel() // Enable parallel execution

	in := &scriptedReader{lines: append(append([]string{}, measurementLines...), "y")}
	r, out := newTestREPL(t, in)

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, domain.PhaseResult, phaseOf(t, r))
	assert.Contains(t, out.String(), string(domain.TriageEmergency))
	assert.Contains(t, out.String(), "Refer to a health facility immediately.")
}

func TestSessionREPL_QuizToResult(t *testing.T) {
	t.Parallel() // Enable parallel execution

	in := &scriptedReader{lines: append([]string{}, measurementLines...), fallback: "n"}
	r, out := newTestREPL(t, in)

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, domain.PhaseResult, phaseOf(t, r))
	assert.Contains(t, out.String(), "Growth")
	assert.Contains(t, out.String(), "Symptom")

	history, err := r.service.GetHistory(context.Background(), r.operator, r.sessionID)
	require.NoError(t, err)
	assert.NotEmpty(t, history)
}

func TestSessionREPL_QuitKeepsSession(t *testing.T) {
	t.Parallel() // Enable parallel execution

	in := &scriptedReader{lines: append(append([]string{}, measurementLines...), ":quit")}
	r, out := newTestREPL(t, in)

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, domain.PhaseRedFlags, phaseOf(t, r))
	assert.Contains(t, out.String(), "--resume "+r.sessionID.String())
}

func TestSessionREPL_EndOfInputQuits(t *testing.T) {
	t.Parallel() // Enable parallel execution

	r, out := newTestREPL(t, &scriptedReader{lines: []string{"female"}})

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, domain.PhaseMeasurements, phaseOf(t, r))
	assert.Contains(t, out.String(), "Saved.")
}

func TestSessionREPL_InvalidInputReprompts(t *testing.T) {
	t.Parallel() // Enable parallel execution

	in := &scriptedReader{lines: []string{
		"robot", "female",
		"old", "18m",
		"-3", "10.2",
		"80.5",
		"hot", "",
		"",
		"maybe", ":quit",
	}}
	r, out := newTestREPL(t, in)

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, domain.PhaseRedFlags, phaseOf(t, r))
	assert.Contains(t, out.String(), "enter male or female")
	assert.Contains(t, out.String(), `invalid age "old"`)
	assert.Contains(t, out.String(), "enter a positive number")
	assert.Contains(t, out.String(), "answer y or n")
}

func TestSessionREPL_HistoryAndReset(t *testing.T) {
	t.Parallel() // Enable parallel execution

	in := &scriptedReader{lines: append(append([]string{}, measurementLines...),
		"n", ":history", ":reset", ":quit")}
	r, out := newTestREPL(t, in)

	require.NoError(t, r.Run(context.Background()))
	assert.Contains(t, out.String(), string(domain.PhaseRedFlags))
	assert.Contains(t, out.String(), "Screening reset.")
	assert.Equal(t, domain.PhaseMeasurements, phaseOf(t, r))
}

func TestParseAgeDays(t *testing.T) {
	t.Parallel() // Enable parallel execution

	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "548", want: 548},
		{in: "18m", want: 548},
		{in: " 0 ", want: 0},
		{in: "12M", want: 365},
		{in: "-1", wantErr: true},
		{in: "m", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel() // Enable parallel execution

			got, err := parseAgeDays(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseAnswer(t *testing.T) {
	t.Parallel() // Enable parallel execution

	tests := []struct {
		in        string
		yesNoOnly bool
		want      inference.AnswerValue
		wantErr   bool
	}{
		{in: "y", want: inference.AnswerYes},
		{in: "YES", want: inference.AnswerYes},
		{in: "n", want: inference.AnswerNo},
		{in: "?", want: inference.AnswerDontKnow},
		{in: "?", yesNoOnly: true, wantErr: true},
		{in: "no", yesNoOnly: true, want: inference.AnswerNo},
		{in: "perhaps", wantErr: true},
	}

	for _, tc := range tests {
		got, err := parseAnswer(tc.in, tc.yesNoOnly)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
