package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewRunCmd создаёт команду синхронного запуска workflow.
func NewRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var inputs []string
	var noCache bool
	var errorPolicy string
	var async bool

	cmd := &cobra.Command{
		Use:   "run WORKFLOW_ID",
		Short: "Run a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := ExecuteRequest{ErrorPolicy: errorPolicy}
			if noCache {
				useCache := false
				req.UseCache = &useCache
			}

			inputData, err := parseInputs(inputs)
			if err != nil {
				return err
			}
			req.InputData = inputData

			if async {
				ex, err := client.Enqueue(args[0], req)
				if err != nil {
					return err
				}

				out.Success(fmt.Sprintf("Execution enqueued: %s", ex.ID))
				out.Print(
					[]string{"ID", "WORKFLOW_ID", "STATUS", "CREATED"},
					[][]string{{ex.ID, ex.WorkflowID, ex.Status, ex.CreatedAt}},
					ex,
				)
				return nil
			}

			result, err := client.Execute(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run %s: %s (%.2fs)", result.RunID, result.Status, result.ExecutionTime))
			out.Print(
				[]string{"RUN_ID", "STATUS", "NODES", "TIME_SEC", "ERROR"},
				[][]string{{
					result.RunID,
					result.Status,
					strconv.Itoa(len(result.ExecutionOrder)),
					fmt.Sprintf("%.3f", result.ExecutionTime),
					result.Error,
				}},
				result,
			)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&inputs, "input", nil, "Input values as KEY=VALUE (repeatable)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable node result caching for this run")
	cmd.Flags().StringVar(&errorPolicy, "error-policy", "", "Error policy: fail_fast or continue")
	cmd.Flags().BoolVar(&async, "async", false, "Enqueue execution for a worker instead of running synchronously")

	return cmd
}

// NewExecutionCmd создаёт группу команд для просмотра executions.
func NewExecutionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execution",
		Short: "Inspect workflow executions",
	}

	cmd.AddCommand(
		newExecutionListCmd(clientFn, outputFn),
		newExecutionShowCmd(clientFn, outputFn),
		newExecutionCancelCmd(clientFn, outputFn),
	)

	return cmd
}

func newExecutionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var workflowID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			executions, err := client.ListExecutions(ListExecutionsOpts{
				WorkflowID: workflowID,
				Status:     status,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "WORKFLOW_ID", "STATUS", "TIME_SEC", "CREATED"}
			rows := make([][]string, len(executions))
			for i, ex := range executions {
				rows[i] = []string{
					ex.ID,
					ex.WorkflowID,
					ex.Status,
					fmt.Sprintf("%.3f", ex.ExecutionTime),
					ex.CreatedAt,
				}
			}

			out.Print(headers, rows, executions)
			return nil
		},
	}

	cmd.Flags().StringVar(&workflowID, "workflow-id", "", "Filter by workflow ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, running, success, failed, cancelled)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newExecutionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show execution details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			ex, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "WORKFLOW_ID", "STATUS", "ORDER", "ERROR", "CREATED"},
				[][]string{{
					ex.ID,
					ex.WorkflowID,
					ex.Status,
					strings.Join(ex.ExecutionOrder, ","),
					ex.Error,
					ex.CreatedAt,
				}},
				ex,
			)
			return nil
		},
	}
}

func newExecutionCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a pending execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			ex, err := client.CancelExecution(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution cancelled: %s", ex.ID))
			return nil
		},
	}
}

// parseInputs разбирает флаги KEY=VALUE в map.
func parseInputs(inputs []string) (map[string]any, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	data := make(map[string]any, len(inputs))
	for _, kv := range inputs {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid input format %q, expected KEY=VALUE", kv)
		}
		data[parts[0]] = parts[1]
	}
	return data, nil
}
