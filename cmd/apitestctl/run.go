package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/santhoshkumr96/orchestapi/internal/domain/runrec"
	"github.com/santhoshkumr96/orchestapi/internal/events"
	"github.com/santhoshkumr96/orchestapi/internal/suiteexec"
	"github.com/santhoshkumr96/orchestapi/internal/tui"
)

type runOptions struct {
	environmentID  string
	targetStepID   string
	nonInteractive bool
	jsonOutput     bool
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <suiteId>",
		Short: "Execute a suite once against an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(cmd, flags, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.environmentID, "env", "", "Environment id (defaults to the suite's default environment)")
	cmd.Flags().BoolVar(&opts.nonInteractive, "non-interactive", false, "Resolve manual inputs from their defaults instead of prompting")
	cmd.Flags().StringVar(&opts.targetStepID, "step", "", "Run only this step and the dependencies it needs")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the final SuiteExecutionResult as JSON")

	return cmd
}

func runSuite(cmd *cobra.Command, flags *rootFlags, opts *runOptions, suiteID string) error {
	a, err := newApp(flags)
	if err != nil {
		return err
	}

	def, err := a.store.Suite(suiteID)
	if err != nil {
		return err
	}

	envID := opts.environmentID
	if envID == "" {
		envID = def.DefaultEnvID
	}
	env, err := a.store.Environment(envID)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	sink := events.SinkFunc(func(ev events.Event) {
		handleRunEvent(cmd, a, runID, ev)
	})

	runOpts := suiteexec.RunOptions{
		RunID:          runID,
		Trigger:        runrec.TriggerManual,
		Sink:           sink,
		NonInteractive: opts.nonInteractive,
		TargetStepID:   opts.targetStepID,
	}
	result, err := a.engine.Run(context.Background(), def, env, runOpts)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		return printJSON(cmd, result)
	}
	printTable(cmd, result)
	return nil
}

func handleRunEvent(cmd *cobra.Command, a *app, runID string, ev events.Event) {
	switch ev.Kind {
	case events.KindStepComplete:
		s := ev.Step
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s (%d) %s\n", s.Status, s.StepName, s.ResponseCode, s.Duration)
	case events.KindInputRequired:
		go promptAndSubmit(a, runID, ev)
	case events.KindRunError:
		fmt.Fprintf(cmd.ErrOrStderr(), "run error: %s\n", ev.Message)
	}
}

// promptAndSubmit shows the TUI prompt for one #{name} reference and
// feeds the answer back through the run registry. It runs on its own
// goroutine because the suite executor's RequestInput call (which
// registers the rendezvous waiter the submission resolves) happens just
// after the KindInputRequired event is published, so this retries the
// submit briefly until that waiter exists.
func promptAndSubmit(a *app, runID string, ev events.Event) {
	value, cancelled, err := tui.RunPrompt(ev.InputName, ev.InputDefault, ev.HasDefault, ev.InputCachedValue, ev.HasCachedValue)
	if err != nil || cancelled {
		for !a.registry.CancelRun(runID, "operator cancelled manual input prompt") {
			time.Sleep(10 * time.Millisecond)
		}
		return
	}
	for !a.registry.SubmitInput(runID, value) {
		time.Sleep(10 * time.Millisecond)
	}
}

func printJSON(cmd *cobra.Command, result *runrec.SuiteExecutionResult) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func printTable(cmd *cobra.Command, result *runrec.SuiteExecutionResult) {
	fmt.Fprintf(cmd.OutOrStdout(), "\nRun %s: %s (%d steps, %s)\n", result.RunID, result.Status, len(result.Steps), result.TotalDuration)
}
