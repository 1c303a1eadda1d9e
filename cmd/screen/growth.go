package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/domain/growth"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type growthOptions struct {
	sex         string
	ageDays     int
	weightKg    float64
	heightCm    float64
	temperature float64
	heartRate   int
	csvPath     string
	concurrency int
	asJSON      bool
}

func newGrowthCmd(global *globalOptions) *cobra.Command {
	opts := &growthOptions{}

	cmd := &cobra.Command{
		Use:   "growth",
		Short: "Evaluate growth indicators for one child or a CSV batch",
		Long: `Evaluate WHO growth indicators without starting a screening.

A batch CSV needs the columns sex, age_days, weight_kg and height_cm. The
columns ref, temperature_c and heart_rate_bpm are optional.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := global.load(cmd)
			if err != nil {
				return err
			}
			bundle, err := loadBundle(cfg)
			if err != nil {
				return err
			}

			if opts.csvPath != "" {
				return runGrowthBatch(cmd.Context(), cmd.OutOrStdout(), bundle.References, opts)
			}

			profile := domain.ChildProfile{
				Sex:      domain.Sex(strings.ToLower(opts.sex)),
				AgeDays:  opts.ageDays,
				WeightKg: opts.weightKg,
				HeightCm: opts.heightCm,
			}
			if cmd.Flags().Changed("temperature") {
				profile.TemperatureC = &opts.temperature
			}
			if cmd.Flags().Changed("heart-rate") {
				profile.HeartRateBpm = &opts.heartRate
			}

			report, err := growth.Analyze(profile, bundle.References)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderReport(report))
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.sex, "sex", "", "male or female")
	f.IntVar(&opts.ageDays, "age-days", 0, "age in days")
	f.Float64Var(&opts.weightKg, "weight", 0, "weight in kg")
	f.Float64Var(&opts.heightCm, "height", 0, "length or height in cm")
	f.Float64Var(&opts.temperature, "temperature", 0, "body temperature in °C (optional)")
	f.IntVar(&opts.heartRate, "heart-rate", 0, "heart rate in bpm (optional)")
	f.StringVar(&opts.csvPath, "csv", "", "evaluate every row of a CSV file")
	f.IntVar(&opts.concurrency, "concurrency", 4, "rows evaluated in parallel in batch mode")
	f.BoolVar(&opts.asJSON, "json", false, "print JSON instead of a formatted card")

	cmd.MarkFlagsMutuallyExclusive("csv", "sex")
	return cmd
}

// batchRow is one parsed CSV line.
type batchRow struct {
	Line    int
	Ref     string
	Profile domain.ChildProfile
}

// batchResult is the evaluation of one row. Err holds a per-row failure such
// as an out-of-range measurement; it does not stop the batch.
type batchResult struct {
	Line   int            `json:"line"`
	Ref    string         `json:"ref,omitempty"`
	Report *growth.Report `json:"report,omitempty"`
	Err    error          `json:"-"`
	Error  string         `json:"error,omitempty"`
}

func runGrowthBatch(ctx context.Context, out io.Writer, refs *growth.ReferenceSet, opts *growthOptions) error {
	f, err := os.Open(opts.csvPath)
	if err != nil {
		return fmt.Errorf("failed to open batch file: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := readProfiles(f)
	if err != nil {
		return err
	}

	results, err := evaluateBatch(ctx, refs, rows, opts.concurrency)
	if err != nil {
		return err
	}

	if opts.asJSON {
		return writeJSON(out, results)
	}
	_, err = io.WriteString(out, renderBatch(results))
	return err
}

var requiredColumns = []string{"sex", "age_days", "weight_kg", "height_cm"}

// readProfiles parses a batch CSV with a header row. A malformed number fails
// the whole file with its line number.
func readProfiles(r io.Reader) ([]batchRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("CSV is missing column %q", name)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []batchRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := batchRow{Line: line, Ref: field(rec, "ref")}
		row.Profile.Sex = domain.Sex(strings.ToLower(field(rec, "sex")))

		if row.Profile.AgeDays, err = strconv.Atoi(field(rec, "age_days")); err != nil {
			return nil, fmt.Errorf("line %d: invalid age_days: %w", line, err)
		}
		if row.Profile.WeightKg, err = strconv.ParseFloat(field(rec, "weight_kg"), 64); err != nil {
			return nil, fmt.Errorf("line %d: invalid weight_kg: %w", line, err)
		}
		if row.Profile.HeightCm, err = strconv.ParseFloat(field(rec, "height_cm"), 64); err != nil {
			return nil, fmt.Errorf("line %d: invalid height_cm: %w", line, err)
		}
		if v := field(rec, "temperature_c"); v != "" {
			t, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid temperature_c: %w", line, err)
			}
			row.Profile.TemperatureC = &t
		}
		if v := field(rec, "heart_rate_bpm"); v != "" {
			hr, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid heart_rate_bpm: %w", line, err)
			}
			row.Profile.HeartRateBpm = &hr
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// evaluateBatch analyzes rows with at most concurrency in flight. Results
// keep input order.
func evaluateBatch(ctx context.Context, refs *growth.ReferenceSet, rows []batchRow, concurrency int) ([]batchResult, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]batchResult, len(rows))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, row := range rows {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := batchResult{Line: row.Line, Ref: row.Ref}
			res.Report, res.Err = growth.Analyze(row.Profile, refs)
			if res.Err != nil {
				res.Error = res.Err.Error()
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
