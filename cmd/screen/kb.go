package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mydudu/screening-api/internal/knowledge"
	"github.com/spf13/cobra"
)

func newKBCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Inspect and validate knowledge bases",
	}
	cmd.AddCommand(newKBValidateCmd(), newKBSymptomCmd(global))
	return cmd
}

func newKBValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Load a knowledge base file and report what it contains",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := knowledge.Load(args[0])
			if err != nil {
				return err
			}
			s := bundle.Summary()
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"OK %s: %d diseases, %d symptoms, %d red flags, %d growth tables\n",
				s.Source, len(s.Diseases), len(s.Symptoms), len(s.RedFlags), s.Tables)
			return err
		},
	}
}

func newKBSymptomCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "symptom <id>",
		Short: "Show a symptom question and its likelihoods",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := global.load(cmd)
			if err != nil {
				return err
			}
			bundle, err := loadBundle(cfg)
			if err != nil {
				return err
			}

			s, ok := bundle.KB.Symptom(args[0])
			if !ok {
				if suggestions := bundle.SuggestSymptoms(args[0]); len(suggestions) > 0 {
					return fmt.Errorf("unknown symptom %q, did you mean %s?", args[0], strings.Join(suggestions, ", "))
				}
				return fmt.Errorf("unknown symptom %q", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n%s\n", titleStyle.Render(s.ID), s.Question)
			if s.Layman != "" {
				fmt.Fprintln(out, faintStyle.Render(s.Layman))
			}

			ids := make([]string, 0, len(s.Likelihoods))
			for id := range s.Likelihoods {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				name := id
				if d, ok := bundle.KB.Disease(id); ok {
					name = d.Name
				}
				l := s.Likelihoods[id]
				fmt.Fprintf(out, "  %-24s P(yes)=%.2f  P(no)=%.2f\n", name, l.Yes, l.No)
			}
			return nil
		},
	}
}
