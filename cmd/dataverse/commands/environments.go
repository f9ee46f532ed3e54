package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/davwright/XB-DataverseTools/internal/pac"
	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

// environmentLister is the part of the pac client this command uses.
type environmentLister interface {
	ListEnvironments(ctx context.Context) ([]dataverse.Environment, error)
}

// NewEnvironmentsCommand creates the environments command.
func NewEnvironmentsCommand() *cobra.Command {
	return newEnvironmentsCommand(pac.NewClient())
}

func newEnvironmentsCommand(lister environmentLister) *cobra.Command {
	return &cobra.Command{
		Use:   "environments",
		Short: "List Power Platform environments",
		Long:  "List the environments reachable by the signed-in user, via the pac CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			environments, err := lister.ListEnvironments(context.Background())
			if err != nil {
				return err
			}

			return renderOutput(environments, func() error {
				return displayEnvironmentsTable(environments)
			})
		},
	}
}

func displayEnvironmentsTable(environments []dataverse.Environment) error {
	if len(environments) == 0 {
		fmt.Println("No environments found")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Display Name", "Environment ID", "URL", "Type")

	for _, env := range environments {
		_ = table.Append(env.DisplayName, env.EnvironmentID, env.EnvironmentURL, env.Type)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}
