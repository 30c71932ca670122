package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/briefbot/briefbot/internal/jobs"
)

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage recurring briefing jobs (requires a database)",
	}

	addCmd := &cobra.Command{
		Use:   "add <topic>",
		Short: "Register a recurring briefing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(cmd)
			if err != nil {
				return err
			}
			defer reg.Close()

			mode, _ := cmd.Flags().GetString("mode")
			sampling, _ := cmd.Flags().GetString("sampling")
			days, _ := cmd.Flags().GetInt("days")
			cadence, _ := cmd.Flags().GetString("cadence")

			topic := args[0]
			for _, a := range args[1:] {
				topic += " " + a
			}
			job, err := reg.Add(cmd.Context(), topic, mode, sampling, days, cadence)
			if err != nil {
				return err
			}
			fmt.Printf("scheduled %s (%s, every %s)\n", job.ID, job.Topic, job.Cadence)
			return nil
		},
	}
	addCmd.Flags().String("mode", "auto", "Channel mode")
	addCmd.Flags().String("sampling", "standard", "Sampling tier")
	addCmd.Flags().Int("days", 7, "Look-back window in days")
	addCmd.Flags().String("cadence", "daily", "daily|weekly")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List scheduled briefings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := openRegistry(cmd)
			if err != nil {
				return err
			}
			defer reg.Close()

			all, err := reg.List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTOPIC\tCADENCE\tLAST RUN")
			for _, job := range all {
				last := "never"
				if t := job.LastRunAt(); t != nil {
					last = t.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", job.ID, job.Topic, job.Cadence, last)
			}
			return w.Flush()
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a scheduled briefing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(cmd)
			if err != nil {
				return err
			}
			defer reg.Close()

			if err := reg.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("removed")
			return nil
		},
	}

	cmd.AddCommand(addCmd, listCmd, rmCmd)
	return cmd
}

func openRegistry(cmd *cobra.Command) (*jobs.Registry, error) {
	a, err := buildApp(cmd)
	if err != nil {
		return nil, err
	}
	if a.cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("BRIEFBOT_DATABASE_URL is not set")
	}
	return jobs.Open(cmd.Context(), a.cfg.DatabaseURL)
}
