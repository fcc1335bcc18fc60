package main

import (
	"github.com/spf13/cobra"

	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/validator"
)

func newBugsCmd(a *app) *cobra.Command {
	bugs := &cobra.Command{
		Use:   "bugs",
		Short: "Inspect and tag bugs",
	}

	var output, dotOutput string
	download := &cobra.Command{
		Use:   "download <bug-id>",
		Short: "Download the archive of a bug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			artifact, err := a.client.DownloadBug(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.saveArtifact(cmd.Context(), cmd.OutOrStdout(), artifact, output, "bugs/"+args[0])
		},
	}
	download.Flags().StringVarP(&output, "output", "o", "", "Output path or object key")

	dot := &cobra.Command{
		Use:   "dot <bug-id>",
		Short: "Download the conflict graph of a bug in DOT format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			artifact, err := a.client.DownloadBugDot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.saveArtifact(cmd.Context(), cmd.OutOrStdout(), artifact, dotOutput, "bugs/"+args[0])
		},
	}
	dot.Flags().StringVarP(&dotOutput, "output", "o", "", "Output path or object key")

	var tagName, tagType string
	tag := &cobra.Command{
		Use:   "tag <bug-id>",
		Short: "Replace the tag of a bug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validator.ValidateTag(args[0], tagName, tagType); err != nil {
				return err
			}
			return a.client.SetBugTag(cmd.Context(), args[0], tagName, tagType)
		},
	}
	tag.Flags().StringVar(&tagName, "name", "", "Tag name")
	tag.Flags().StringVar(&tagType, "type", "", "Tag type")
	_ = tag.MarkFlagRequired("name")
	_ = tag.MarkFlagRequired("type")

	bugs.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List every recorded bug",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				list, err := a.client.ListBugs(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), list)
			},
		},
		&cobra.Command{
			Use:   "graph <bug-id>",
			Short: "Show the conflict graph of a bug",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				graph, err := a.client.GetBugGraph(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), graph)
			},
		},
		download,
		dot,
		tag,
	)
	return bugs
}
