package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewNodeCmd создаёт группу команд для реестра типов узлов.
func NewNodeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Inspect node types",
	}

	cmd.AddCommand(
		newNodeListCmd(clientFn, outputFn),
		newNodeShowCmd(clientFn, outputFn),
		newNodeCategoriesCmd(clientFn, outputFn),
	)

	return cmd
}

func newNodeListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered node types",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			types, err := client.ListNodeTypes(category)
			if err != nil {
				return err
			}

			headers := []string{"TYPE", "NAME", "CATEGORY", "DESCRIPTION"}
			rows := make([][]string, len(types))
			for i, t := range types {
				rows[i] = []string{t.Type, t.DisplayName, t.Category, t.Description}
			}

			out.Print(headers, rows, types)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Filter by category")

	return cmd
}

func newNodeShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show TYPE",
		Short: "Show node type details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			info, err := client.GetNodeType(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"TYPE", "NAME", "CATEGORY", "DESCRIPTION"},
				[][]string{{info.Type, info.DisplayName, info.Category, info.Description}},
				info,
			)
			return nil
		},
	}
}

func newNodeCategoriesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List node categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			categories, err := client.ListNodeCategories()
			if err != nil {
				return err
			}

			rows := make([][]string, len(categories))
			for i, c := range categories {
				rows[i] = []string{c}
			}

			out.Print([]string{"CATEGORY"}, rows, categories)
			return nil
		},
	}
}

// NewCacheCmd создаёт группу команд для кэша результатов.
func NewCacheCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the node result cache",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show cache statistics",
			RunE: func(cmd *cobra.Command, args []string) error {
				client := clientFn()
				out := outputFn()

				stats, err := client.GetCacheStats()
				if err != nil {
					return err
				}

				out.Print(
					[]string{"SIZE", "HITS", "MISSES", "HIT_RATE"},
					[][]string{{
						fmt.Sprintf("%d", stats.Size),
						fmt.Sprintf("%d", stats.Hits),
						fmt.Sprintf("%d", stats.Misses),
						fmt.Sprintf("%.2f", stats.HitRate),
					}},
					stats,
				)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Clear the cache",
			RunE: func(cmd *cobra.Command, args []string) error {
				client := clientFn()
				out := outputFn()

				if err := client.ClearCache(); err != nil {
					return err
				}

				out.Success("Cache cleared")
				return nil
			},
		},
	)

	return cmd
}
