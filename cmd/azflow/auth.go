package main

import (
	"fmt"

	"github.com/Veraticus/azure-flow/internal/cli"
	"github.com/spf13/cobra"
)

func authCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Verify Azure credentials",
		Long: `Exchanges the configured client credentials for a management-plane token
and performs a subscription enumeration to confirm the credential works.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			client, err := newAzureClient(ctx)
			if err != nil {
				fmt.Println(cli.FormatError("Authentication failed"))
				return err
			}

			subs, err := client.ListSubscriptions(ctx)
			if err != nil {
				fmt.Println(cli.FormatError("Credential rejected by the management API"))
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Authenticated; %d subscriptions reachable", len(subs))))
			return nil
		},
	}
}
