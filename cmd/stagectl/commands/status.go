package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/savaki/stagectl/internal/config"
	"github.com/savaki/stagectl/internal/di"
	"github.com/savaki/stagectl/internal/orchestrator"
	"github.com/savaki/stagectl/internal/stacks"
	"github.com/urfave/cli/v2"
)

// StatusCommand returns the status command
func StatusCommand(logger *zerolog.Logger, settings config.Settings, opts ...di.Option) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show what is deployed for the current branch's stage",
		Flags: []cli.Flag{
			branchFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the report as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			container, err := newContainer(c, settings, opts...)
			if err != nil {
				return err
			}

			o, err := resolve[*orchestrator.Orchestrator](container)
			if err != nil {
				return err
			}

			logger.Debug().
				Str("branch", o.Config().Branch).
				Str("stage", o.Config().Stage).
				Msg("Starting status")

			report, err := o.Status(c.Context)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				encoder := json.NewEncoder(c.App.Writer)
				encoder.SetIndent("", "  ")
				return encoder.Encode(report)
			}
			return printStatus(c.App.Writer, report)
		},
	}
}

func printStatus(w io.Writer, report orchestrator.StatusReport) error {
	cfg := report.Config
	fmt.Fprintf(w, "Stage:   %s (branch %s)\n", cfg.Stage, cfg.Branch)
	fmt.Fprintf(w, "Account: %s (%s) %s\n", cfg.Account, cfg.Alias, cfg.Region)
	fmt.Fprintf(w, "Profile: %s\n\n", cfg.Profile)

	plan := make(map[string]stacks.Spec, len(report.Plan))
	for _, spec := range report.Plan {
		plan[spec.Name] = spec
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STACK\tSTATUS\tLAST UPDATED\tPROTECTED\tREMOVAL")
	for _, stack := range report.Stacks {
		updated := "-"
		if !stack.LastUpdated.IsZero() {
			updated = stack.LastUpdated.Format("2006-01-02 15:04:05")
		}
		protected, removal := "-", "-"
		if spec, ok := plan[stack.Name]; ok {
			protected = fmt.Sprint(spec.TerminationProtection)
			removal = string(spec.RemovalPolicy)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", stack.Name, stack.Status, updated, protected, removal)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	var logGroups []string
	for _, spec := range report.Plan {
		logGroups = append(logGroups, spec.LogGroups...)
	}
	if len(logGroups) > 0 {
		fmt.Fprintln(w, "\nLog groups:")
		for _, name := range logGroups {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}

	if len(report.Parameters) > 0 {
		fmt.Fprintln(w, "\nParameters:")
		for _, name := range sortedKeys(report.Parameters) {
			fmt.Fprintf(w, "  %s = %s\n", name, report.Parameters[name])
		}
	}

	if len(report.Outputs) > 0 {
		fmt.Fprintln(w, "\nOutputs:")
		for _, stack := range sortedKeys(report.Outputs) {
			outputs := report.Outputs[stack]
			for _, key := range sortedKeys(outputs) {
				fmt.Fprintf(w, "  %s.%s = %s\n", stack, key, outputs[key])
			}
		}
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
