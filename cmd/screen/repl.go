package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/domain/inference"
	fsm "github.com/mydudu/screening-api/internal/domain/screening"
	"github.com/mydudu/screening-api/internal/service/screening"
)

// errQuit ends the loop and leaves the session resumable.
var errQuit = errors.New("quit")

// lineReader is the part of *readline.Instance the loop needs.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// sessionREPL walks one screening through its phases, one question per line.
type sessionREPL struct {
	service   screening.Service
	operator  uuid.UUID
	sessionID uuid.UUID
	in        lineReader
	out       io.Writer
}

var (
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// Run drives the session until it reaches a result or the operator quits.
func (r *sessionREPL) Run(ctx context.Context) error {
	view, err := r.service.GetSession(ctx, r.operator, r.sessionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s %s\n", cyan("Screening"), view.Record.ID)
	fmt.Fprintln(r.out, gray("Commands: :history, :reset, :quit"))

	for {
		switch view.State.Phase {
		case domain.PhaseMeasurements:
			view, err = r.askMeasurements(ctx)
			if err == nil && view.State.Growth != nil {
				fmt.Fprintln(r.out, renderReport(view.State.Growth))
			}
		case domain.PhaseRedFlags, domain.PhaseQuiz:
			view, err = r.askPrompt(ctx, view)
		case domain.PhaseResult:
			if view.State.Outcome != nil {
				fmt.Fprintln(r.out, renderOutcome(view.State.Outcome))
			}
			return nil
		default:
			return fmt.Errorf("session is in unknown phase %q", view.State.Phase)
		}

		if errors.Is(err, errQuit) {
			fmt.Fprintf(r.out, "%s resume with --resume %s\n", yellow("Saved."), r.sessionID)
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// readLine reads one trimmed line. Interrupts and end of input quit.
func (r *sessionREPL) readLine(prompt string) (string, error) {
	r.in.SetPrompt(prompt)
	line, err := r.in.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", errQuit
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// command handles the colon commands available at any question. The
// returned view is non-nil when the session changed.
func (r *sessionREPL) command(ctx context.Context, line string) (*screening.SessionView, bool, error) {
	switch line {
	case ":quit", ":q":
		return nil, true, errQuit
	case ":history":
		entries, err := r.service.GetHistory(ctx, r.operator, r.sessionID)
		if err != nil {
			return nil, true, err
		}
		if len(entries) == 0 {
			fmt.Fprintln(r.out, gray("no answers yet"))
		}
		for _, e := range entries {
			fmt.Fprintf(r.out, "%3d  %-11s %-40s %s\n", e.Step, e.Phase, e.Question, e.Value)
		}
		return nil, true, nil
	case ":reset":
		view, err := r.service.ResetSession(ctx, r.operator, r.sessionID)
		if err != nil {
			return nil, true, err
		}
		fmt.Fprintln(r.out, yellow("Screening reset."))
		return view, true, nil
	default:
		return nil, false, nil
	}
}

func (r *sessionREPL) askMeasurements(ctx context.Context) (*screening.SessionView, error) {
	for {
		profile, err := r.readProfile()
		if err != nil {
			return nil, err
		}
		view, err := r.service.RecordMeasurements(ctx, r.operator, r.sessionID, profile)
		if errors.Is(err, domain.ErrInvalidMeasurement) || errors.Is(err, domain.ErrInvalidSex) {
			fmt.Fprintf(r.out, "%s %v\n", red("Invalid:"), err)
			continue
		}
		return view, err
	}
}

func (r *sessionREPL) readProfile() (domain.ChildProfile, error) {
	var p domain.ChildProfile

	sex, err := r.ask("Sex (male/female): ", func(s string) error {
		if !domain.Sex(strings.ToLower(s)).Valid() {
			return fmt.Errorf("enter male or female")
		}
		return nil
	})
	if err != nil {
		return p, err
	}
	p.Sex = domain.Sex(strings.ToLower(sex))

	age, err := r.ask("Age (days, or months with an m suffix): ", func(s string) error {
		_, err := parseAgeDays(s)
		return err
	})
	if err != nil {
		return p, err
	}
	p.AgeDays, _ = parseAgeDays(age)

	if p.WeightKg, err = r.askFloat("Weight (kg): "); err != nil {
		return p, err
	}
	if p.HeightCm, err = r.askFloat("Length/height (cm): "); err != nil {
		return p, err
	}

	temp, err := r.askOptional("Temperature °C (blank to skip): ", func(s string) error {
		_, err := strconv.ParseFloat(s, 64)
		return err
	})
	if err != nil {
		return p, err
	}
	if temp != "" {
		t, _ := strconv.ParseFloat(temp, 64)
		p.TemperatureC = &t
	}

	hr, err := r.askOptional("Heart rate bpm (blank to skip): ", func(s string) error {
		_, err := strconv.Atoi(s)
		return err
	})
	if err != nil {
		return p, err
	}
	if hr != "" {
		v, _ := strconv.Atoi(hr)
		p.HeartRateBpm = &v
	}
	return p, nil
}

// ask repeats the question until check accepts a non-empty answer.
func (r *sessionREPL) ask(prompt string, check func(string) error) (string, error) {
	for {
		line, err := r.readLine(prompt)
		if err != nil {
			return "", err
		}
		if line == ":quit" || line == ":q" {
			return "", errQuit
		}
		if line == "" {
			continue
		}
		if err := check(line); err != nil {
			fmt.Fprintf(r.out, "%s %v\n", red("Invalid:"), err)
			continue
		}
		return line, nil
	}
}

// askOptional is ask that also accepts a blank answer.
func (r *sessionREPL) askOptional(prompt string, check func(string) error) (string, error) {
	for {
		line, err := r.readLine(prompt)
		if err != nil {
			return "", err
		}
		if line == ":quit" || line == ":q" {
			return "", errQuit
		}
		if line == "" {
			return "", nil
		}
		if err := check(line); err != nil {
			fmt.Fprintf(r.out, "%s %v\n", red("Invalid:"), err)
			continue
		}
		return line, nil
	}
}

func (r *sessionREPL) askFloat(prompt string) (float64, error) {
	s, err := r.ask(prompt, func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			return fmt.Errorf("enter a positive number")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	v, _ := strconv.ParseFloat(s, 64)
	return v, nil
}

// parseAgeDays accepts days ("548") or whole months ("18m").
func parseAgeDays(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if months, ok := strings.CutSuffix(s, "m"); ok {
		n, err := strconv.Atoi(months)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid age %q", s)
		}
		return int(math.Round(float64(n) * 30.4375)), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid age %q", s)
	}
	return n, nil
}

func (r *sessionREPL) askPrompt(ctx context.Context, view *screening.SessionView) (*screening.SessionView, error) {
	p := view.Prompt
	if p == nil {
		var err error
		if p, err = r.service.GetPrompt(ctx, r.operator, r.sessionID); err != nil {
			return nil, err
		}
	}

	label := "Symptom"
	choices := "(y/n/?)"
	if p.Kind == fsm.PromptRedFlag {
		label = red("Danger sign")
		choices = "(y/n)"
	}
	fmt.Fprintf(r.out, "\n%s %d: %s\n", label, p.Step, p.Question)
	if p.Layman != "" {
		fmt.Fprintln(r.out, gray(p.Layman))
	}

	for {
		line, err := r.readLine(choices + " ")
		if err != nil {
			return nil, err
		}
		if next, handled, err := r.command(ctx, line); handled {
			if err != nil || next != nil {
				return next, err
			}
			continue
		}

		value, err := parseAnswer(line, p.Kind == fsm.PromptRedFlag)
		if err != nil {
			fmt.Fprintf(r.out, "%s %v\n", red("Invalid:"), err)
			continue
		}

		if p.Kind == fsm.PromptRedFlag {
			return r.service.AnswerRedFlag(ctx, r.operator, r.sessionID, p.ID, value == inference.AnswerYes)
		}
		return r.service.AnswerQuestion(ctx, r.operator, r.sessionID, p.ID, value)
	}
}

// parseAnswer maps y/n/? style input to an answer. Danger signs must be
// answered yes or no.
func parseAnswer(s string, yesNoOnly bool) (inference.AnswerValue, error) {
	switch strings.ToLower(s) {
	case "y", "yes":
		return inference.AnswerYes, nil
	case "n", "no":
		return inference.AnswerNo, nil
	case "?", "dk", "dont_know", "don't know":
		if !yesNoOnly {
			return inference.AnswerDontKnow, nil
		}
	}
	if yesNoOnly {
		return "", fmt.Errorf("answer y or n")
	}
	return "", fmt.Errorf("answer y, n or ?")
}
