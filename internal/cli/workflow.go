package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewWorkflowCmd создаёт группу команд для управления workflows.
func NewWorkflowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage workflows",
	}

	cmd.AddCommand(
		newWorkflowTriggerCmd(clientFn, outputFn),
	)

	return cmd
}

func newWorkflowTriggerCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var eventID string
	var data []string

	cmd := &cobra.Command{
		Use:   "trigger WORKFLOW_ID",
		Short: "Trigger a workflow execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := TriggerRequest{EventID: eventID}

			if len(data) > 0 {
				req.Data = make(map[string]any)
				for _, kv := range data {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid data format %q, expected KEY=VALUE", kv)
					}
					req.Data[parts[0]] = parts[1]
				}
			}

			result, err := client.TriggerWorkflow(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow triggered, event: %s", result.EventID))
			out.Print(
				[]string{"WORKFLOW_ID", "EVENT_ID", "ACCEPTED"},
				[][]string{{result.WorkflowID, result.EventID, fmt.Sprintf("%t", result.Accepted)}},
				result,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&eventID, "event-id", "", "Idempotency key (generated if not specified)")
	cmd.Flags().StringSliceVar(&data, "data", nil, "Initial context values as KEY=VALUE (repeatable)")

	return cmd
}
