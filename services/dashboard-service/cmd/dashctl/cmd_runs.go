package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/model"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/validator"
)

func newRunsCmd(a *app) *cobra.Command {
	runs := &cobra.Command{
		Use:   "runs",
		Short: "Start, stop and inspect checker runs",
	}

	runs.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List finished, running and queued runs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				list, err := a.client.ListRuns(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), list)
			},
		},
		&cobra.Command{
			Use:   "current",
			Short: "Show the run in progress",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx := cmd.Context()
				id, running, err := a.client.GetCurrentRunID(ctx)
				if err != nil {
					return err
				}
				out := map[string]any{"running": running}
				if running {
					runtime, err := a.client.GetCurrentRuntimeInfo(ctx)
					if err != nil {
						return err
					}
					profile, err := a.client.GetCurrentProfile(ctx)
					if err != nil {
						return err
					}
					out["run_id"] = id
					out["runtime"] = runtime
					out["profile"] = profile
				}
				return a.print(cmd.OutOrStdout(), out)
			},
		},
		newRunsStartCmd(a),
		newRunsDownloadCmd(a),
		&cobra.Command{
			Use:   "profile <run-id>",
			Short: "Show the checker profile of a run",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				profile, err := a.client.GetRunProfile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), profile)
			},
		},
		&cobra.Command{
			Use:   "runtime <run-id>",
			Short: "Show CPU and memory samples of a run",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				info, err := a.client.GetRuntimeInfo(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), info)
			},
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the run in progress",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.client.StopRun(cmd.Context())
			},
		},
	)
	return runs
}

func newRunsStartCmd(a *app) *cobra.Command {
	var (
		params   model.RunParams
		profiler bool
		set      []string

		histories, sessions, transactions, operations, keys, variable int
		readProportion                                                float64
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Queue a new run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("profiler") {
				params.ProfilerEnable = &profiler
			}
			setIfChanged(flags, "histories", &params.WorkloadHistory, histories)
			setIfChanged(flags, "sessions", &params.WorkloadSession, sessions)
			setIfChanged(flags, "transactions", &params.WorkloadTransaction, transactions)
			setIfChanged(flags, "operations", &params.WorkloadOperation, operations)
			setIfChanged(flags, "read-proportion", &params.WorkloadReadProportion, readProportion)
			setIfChanged(flags, "keys", &params.WorkloadKey, keys)
			setIfChanged(flags, "variable", &params.WorkloadVariable, variable)
			extra, err := parseSetFlags(set)
			if err != nil {
				return err
			}
			params.Extra = extra

			if err := validator.ValidateRunParams(&params); err != nil {
				return err
			}
			if err := a.client.StartRun(cmd.Context(), params); err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), params)
		},
	}

	f := cmd.Flags()
	f.StringVar(&params.DBURL, "db-url", "", "JDBC URL of the database under test")
	f.StringVar(&params.DBUsername, "db-username", "", "Database user")
	f.StringVar(&params.DBPassword, "db-password", "", "Database password")
	f.StringVar(&params.DBType, "db-type", "", "Database type: mysql, sqlite, postgresql, mariadb, h2")
	f.StringVar(&params.DBIsolation, "db-isolation", "", "Database isolation, e.g. TRANSACTION_SERIALIZATION")
	f.StringVar(&params.WorkloadType, "workload-type", "", "Workload generator")
	f.IntVar(&histories, "histories", 0, "Number of histories to generate")
	f.IntVar(&sessions, "sessions", 0, "Sessions per history")
	f.IntVar(&transactions, "transactions", 0, "Transactions per session")
	f.IntVar(&operations, "operations", 0, "Operations per transaction")
	f.Float64Var(&readProportion, "read-proportion", 0, "Share of read operations in [0,1]")
	f.IntVar(&keys, "keys", 0, "Number of distinct keys")
	f.StringVar(&params.WorkloadDistribution, "distribution", "", "Key distribution, e.g. uniform")
	f.IntVar(&variable, "variable", 0, "Variable workload dimension")
	f.StringVar(&params.CheckerType, "checker-type", "", "Checker implementation")
	f.StringVar(&params.CheckerIsolation, "checker-isolation", "", "Isolation level to check, e.g. SNAPSHOT_ISOLATION")
	f.BoolVar(&profiler, "profiler", false, "Enable the checker profiler")
	f.StringArrayVar(&set, "set", nil, "Extra option as key=value, repeatable")

	return cmd
}

func newRunsDownloadCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <run-id>",
		Short: "Download the archive of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			artifact, err := a.client.DownloadRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.saveArtifact(cmd.Context(), cmd.OutOrStdout(), artifact, output, "runs/"+args[0])
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path or object key")

	return cmd
}

// setIfChanged stores value in dst only when the flag was given, so an
// explicit zero still reaches the backend
func setIfChanged[T any](flags *pflag.FlagSet, name string, dst **T, value T) {
	if flags.Changed(name) {
		*dst = &value
	}
}
