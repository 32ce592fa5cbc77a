// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/autobrr/qremote/internal/notify"
	"github.com/autobrr/qremote/internal/scheduler"
	"github.com/autobrr/qremote/internal/services/notifier"
)

const sinkWaitTimeout = 45 * time.Second

func RunNotifyCommand(flags *globalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "notify",
		Short: "Check servers for finished downloads",
	}

	command.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Check every server once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			sink := app.sink()
			svc := app.notifier(sink, nil)
			svc.Run(cmd.Context())
			if err := printReport(cmd, svc.LastRun()); err != nil {
				return err
			}
			return waitForSink(sink)
		},
	})

	command.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Check servers periodically until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			sch := scheduler.New()
			sink := app.sink()
			svc := app.notifier(sink, nil)
			if err := svc.Register(sch); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info().Dur("interval", app.cfg.NotifierInterval()).Msg("Watching for finished torrents")
			sch.Start(ctx)
			<-ctx.Done()
			return waitForSink(sink)
		},
	})

	return command
}

// waitForSink lets background notify commands finish before the process
// exits.
func waitForSink(sink notify.Sink) error {
	ctx, cancel := context.WithTimeout(context.Background(), sinkWaitTimeout)
	defer cancel()

	if err := notify.Wait(ctx, sink); err != nil {
		return errors.Wrap(err, "waiting for notify commands")
	}
	return nil
}

func printReport(cmd *cobra.Command, report notifier.RunReport) error {
	out := cmd.OutOrStdout()
	if report.Unreachable {
		fmt.Fprintln(out, "Network unreachable, nothing checked")
		return nil
	}
	if len(report.Servers) == 0 {
		fmt.Fprintln(out, "No servers configured")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVER\tOUTCOME\tFINISHED\tERROR")
	for _, s := range report.Servers {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.Name, s.Outcome, s.Finished, s.Error)
	}
	return tw.Flush()
}

