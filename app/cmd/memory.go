package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect learned cleanup decisions",
	}
	cmd.AddCommand(newMemoryListCmd(), newMemoryStatsCmd())
	return cmd
}

func newMemoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored decision patterns",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openMemoryStore()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.All(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No decisions recorded yet.")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%-30s %-10s approvals=%d rejections=%d rate=%.2f\n",
					e.PathPattern, e.UserDecision, e.ApprovalCount, e.RejectionCount, e.ApprovalRate())
			}
			return nil
		},
	}
}

func newMemoryStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show decision and reflection accuracy statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openMemoryStore()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.All(cmd.Context())
			if err != nil {
				return err
			}
			approvals, rejections := 0, 0
			for _, e := range entries {
				approvals += e.ApprovalCount
				rejections += e.RejectionCount
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Patterns: %d\nApprovals: %d\nRejections: %d\n",
				len(entries), approvals, rejections)

			metrics, err := store.ReflectionAccuracy(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reflections: %.0f\nDowngrade rate: %.2f\nAgreement rate: %.2f\n",
				metrics["total_reflections"], metrics["downgrade_rate"], metrics["agreement_rate"])
			return nil
		},
	}
}
