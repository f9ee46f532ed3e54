package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewWhoAmICommand creates the whoami command.
func NewWhoAmICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated caller",
		Long:  "Call the WhoAmI function and display the caller's user, business unit and organization IDs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			whoAmI, err := client.Metadata().WhoAmI(context.Background())
			if err != nil {
				return fmt.Errorf("failed to call WhoAmI: %w", err)
			}

			return renderOutput(whoAmI, func() error {
				return renderKeyValueTable([][]string{
					{"User ID", whoAmI.UserID},
					{"Business Unit ID", whoAmI.BusinessUnitID},
					{"Organization ID", whoAmI.OrganizationID},
				})
			})
		},
	}
}
