// Command storyhubctl runs maintenance tasks against the configured stores.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/alimgiray/storyhub/internal/app"
	"github.com/alimgiray/storyhub/internal/services"
	"github.com/alimgiray/storyhub/pkg/config"
	"github.com/alimgiray/storyhub/pkg/logger"
	"github.com/spf13/cobra"
)

var hub *app.App

var rootCmd = &cobra.Command{
	Use:   "storyhubctl",
	Short: "storyhubctl - maintenance commands for the storyhub registry",
	Long: `storyhubctl talks to the same document and blob stores as the server,
as selected by DB_DRIVER and BLOB_BACKEND (and a .env file, if present).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		cfg := config.AppConfig
		logger.Init(cfg.Log.Level, "text")
		logger.SetOutput(cmd.ErrOrStderr())

		var err error
		hub, err = app.Open(cmd.Context(), cfg)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if hub == nil {
			return nil
		}
		return hub.Close()
	},
}

var purgeProject string

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete builds older than each project's retention",
	Long: `Delete builds created before now minus the project's purgeRetentionDays.
Without --project every project is swept; failures are reported per build.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if purgeProject != "" {
			purge, err := hub.Services.Purge.PurgeProject(ctx, purgeProject)
			if err != nil {
				return err
			}
			printPurge(out, purge)
			return purge.Result.Err()
		}

		report, err := hub.Services.Purge.PurgeAll(ctx)
		if err != nil {
			return err
		}
		for _, purge := range report.Projects {
			printPurge(out, purge)
		}
		for _, f := range report.Failed {
			fmt.Fprintf(out, "%s: failed: %v\n", f.ID, f.Err)
		}
		fmt.Fprintf(out, "deleted %d builds, %d failures\n", report.Deleted(), report.Failures())
		return report.Err()
	},
}

func printPurge(w io.Writer, purge *services.ProjectPurge) {
	summary := purge.Summary()
	fmt.Fprintf(w, "%s: cutoff %s, %d expired, %d deleted\n",
		purge.ProjectID, purge.Cutoff.Format("2006-01-02 15:04:05"), purge.Expired, len(summary.Succeeded))

	failed := make([]string, 0, len(summary.Failed))
	for id := range summary.Failed {
		failed = append(failed, id)
	}
	sort.Strings(failed)
	for _, id := range failed {
		fmt.Fprintf(w, "  %s: %s\n", id, summary.Failed[id])
	}
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		projects, err := hub.Services.Projects.List(cmd.Context(), nil)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tREPOSITORY\tDEFAULT BRANCH\tLATEST BUILD\tRETENTION")
		for _, p := range projects {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%dd\n",
				p.ID, p.GitHubRepository, p.GitHubDefaultBranch, p.LatestBuildID, p.PurgeRetentionDays)
		}
		return tw.Flush()
	},
}

func init() {
	purgeCmd.Flags().StringVarP(&purgeProject, "project", "p", "", "purge only this project")
	rootCmd.AddCommand(purgeCmd, projectsCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
