package main

import (
	"fmt"

	"github.com/Veraticus/azure-flow/internal/cli"
	"github.com/spf13/cobra"
)

func subscriptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subscriptions",
		Short: "List the subscriptions your credential can reach",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			client, err := newAzureClient(ctx)
			if err != nil {
				return err
			}

			subs, err := newCachedLister(client).ListSubscriptions(ctx)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(subs))
			for _, sub := range subs {
				rows = append(rows, []string{sub.DisplayName, sub.ID})
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("%d subscriptions", len(subs))))
			fmt.Println(cli.RenderTable([]string{"Name", "Subscription ID"}, rows, []int{36, 38}))

			return nil
		},
	}
}
