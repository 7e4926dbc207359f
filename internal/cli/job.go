package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// jobRow собирает табличную строку для job.
func jobRow(j *JobResponse) []string {
	source := j.Topic
	if source == "" {
		source = j.SourceURL
	}
	return []string{
		j.ID,
		j.Type,
		j.Status,
		source,
		fmt.Sprintf("%d/%d", j.Attempts, j.MaxAttempts),
		j.LastError,
		j.CreatedAt,
	}
}

var jobHeaders = []string{"ID", "TYPE", "STATUS", "SOURCE", "ATTEMPTS", "ERROR", "CREATED"}

// NewJobCmd создаёт группу команд для управления jobs.
func NewJobCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage content production jobs",
	}

	cmd.AddCommand(
		newJobCreateCmd(clientFn, outputFn),
		newJobShowCmd(clientFn, outputFn),
		newJobListCmd(clientFn, outputFn),
	)

	return cmd
}

func newJobCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var topic string
	var sourceURL string
	var params []string
	var maxAttempts int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Queue a content production job",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := CreateJobRequest{
				Topic:       topic,
				SourceURL:   sourceURL,
				MaxAttempts: maxAttempts,
			}

			if len(params) > 0 {
				req.Params = make(map[string]any)
				for _, kv := range params {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid param format %q, expected KEY=VALUE", kv)
					}
					req.Params[parts[0]] = parts[1]
				}
			}

			job, err := client.CreateJob(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Job queued: %s", job.ID))
			out.Print(jobHeaders, [][]string{jobRow(job)}, job)
			return nil
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "Topic to produce content about")
	cmd.Flags().StringVar(&sourceURL, "url", "", "Source article URL (mutually exclusive with --topic)")
	cmd.Flags().StringSliceVar(&params, "param", nil, "Generation parameter as KEY=VALUE (repeatable)")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Retry attempt limit (server default if 0)")
	cmd.MarkFlagsMutuallyExclusive("topic", "url")
	cmd.MarkFlagsOneRequired("topic", "url")

	return cmd
}

func newJobShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show job details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			job, err := client.GetJob(args[0])
			if err != nil {
				return err
			}

			out.Print(jobHeaders, [][]string{jobRow(job)}, job)
			return nil
		},
	}
}

func newJobListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			jobs, err := client.ListJobs(ListJobsOpts{
				Status: strings.ToUpper(status),
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, len(jobs))
			for i := range jobs {
				rows[i] = jobRow(&jobs[i])
			}

			out.Print(jobHeaders, rows, jobs)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (QUEUED, ACTIVE, COMPLETED, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}
