package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/kiranshivaraju/hookqueue/internal/config"
	"github.com/kiranshivaraju/hookqueue/internal/hook"
	"github.com/kiranshivaraju/hookqueue/pkg/models"
	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and trigger jobs",
}

var jobsCreateCmd = &cobra.Command{
	Use:   "create <hook>",
	Short: "Queue a job for a hook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, cleanup, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		id, err := a.manager.Create(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show a job's status and results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseJobID(args[0])
		if err != nil {
			return err
		}

		ctx := context.Background()
		a, cleanup, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		job, err := a.manager.Find(ctx, id)
		if err != nil {
			return err
		}
		status, err := a.manager.Status(ctx, id)
		if err != nil {
			return err
		}
		return printJob(cmd.OutOrStdout(), job, status)
	},
}

var jobsRunCmd = &cobra.Command{
	Use:   "run <id>",
	Short: "Execute a pending job now",
	Long:  `Runs the job synchronously in this process, the same way the scheduler would.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseJobID(args[0])
		if err != nil {
			return err
		}

		ctx := context.Background()
		a, cleanup, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := a.manager.Execute(ctx, id)
		if err != nil {
			return err
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
	},
}

// hooksCmd only reads configuration; it works without Postgres or Redis.
var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "List hooks with registered handlers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		registry := hook.NewDefaultRegistry(config.LoadHooks().Queueable)
		return printHooks(cmd.OutOrStdout(), registry)
	},
}

func printHooks(out io.Writer, registry *hook.Registry) error {
	if outputJSON {
		type hookInfo struct {
			Name      string `json:"name"`
			Queueable bool   `json:"queueable"`
		}
		hooks := []hookInfo{}
		for _, h := range registry.Hooks() {
			hooks = append(hooks, hookInfo{Name: h, Queueable: registry.IsQueueable(h)})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(hooks)
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "HOOK\tQUEUEABLE")
	for _, h := range registry.Hooks() {
		fmt.Fprintf(w, "%s\t%t\n", h, registry.IsQueueable(h))
	}
	return w.Flush()
}

func parseJobID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", s)
	}
	return id, nil
}

func printJob(out io.Writer, job *models.Job, status string) error {
	if outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"id":         job.ID,
			"hook":       job.Hook,
			"status":     status,
			"results":    job.Results,
			"updated_at": job.UpdatedAt,
		})
	}

	var results string
	if jobErr := job.Err(); jobErr != nil {
		results = jobErr.Code + ": " + jobErr.Message
	} else {
		b, err := json.Marshal(job.Results)
		if err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
		results = string(b)
	}
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tHOOK\tSTATUS\tUPDATED\tRESULTS")
	fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
		job.ID, job.Hook, status, job.UpdatedAt.Format(time.RFC822), results)
	return w.Flush()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	jobsCmd.AddCommand(jobsCreateCmd, jobsStatusCmd, jobsRunCmd)
	rootCmd.AddCommand(jobsCmd, hooksCmd)
}
