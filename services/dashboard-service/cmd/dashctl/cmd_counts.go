package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newCountsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Show the number of checked histories and found bugs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var histories, bugs int64
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				var err error
				histories, err = a.client.GetHistoryCount(ctx)
				return err
			})
			g.Go(func() error {
				var err error
				bugs, err = a.client.GetBugCount(ctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), map[string]int64{
				"history_count": histories,
				"bug_count":     bugs,
			})
		},
	}
}

func newLogCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Print the output of the run in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := a.client.GetCurrentLog(cmd.Context())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write([]byte(log))
			return err
		},
	}
}
