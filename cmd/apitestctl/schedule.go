package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/santhoshkumr96/orchestapi/internal/scheduler"
)

func newScheduleCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage and run cron-triggered suite replays",
	}

	cmd.AddCommand(newScheduleListCmd(flags))
	cmd.AddCommand(newSchedulePreviewCmd())
	cmd.AddCommand(newScheduleServeCmd(flags))

	return cmd
}

func newScheduleListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every schedule known to the fixture store",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			for _, sched := range a.store.Schedules() {
				status := "inactive"
				if sched.Active {
					status = "active"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\tnext=%s\n",
					sched.ID, sched.SuiteID, sched.CronExpr, status, sched.NextRunAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newSchedulePreviewCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "preview <cronExpr>",
		Short: "Preview the next fire times for a cron expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			times, err := scheduler.PreviewNext(args[0], count, time.Now())
			if err != nil {
				return err
			}
			for _, t := range times {
				fmt.Fprintln(cmd.OutOrStdout(), t.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 5, "Number of upcoming fire times to print")
	return cmd
}

func newScheduleServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load every active schedule and replay suites as they fire until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}

			sched := newScheduler(a)
			if errs := sched.LoadAll(a.store.Schedules()); len(errs) > 0 {
				for _, e := range errs {
					a.log.Error("failed to register schedule", "error", e)
				}
			}
			sched.Start()
			defer sched.Stop(cmd.Context())

			a.log.Info("scheduler running", "fixtures", flags.fixturesDir)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop
			return nil
		},
	}
}
