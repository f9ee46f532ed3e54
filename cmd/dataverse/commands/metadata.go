package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

// NewMetadataCommand creates the metadata command group.
func NewMetadataCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Inspect environment metadata",
		Long:  "Read entity and attribute metadata from the environment",
	}

	cmd.AddCommand(newMetadataEntityCommand())
	cmd.AddCommand(newMetadataEntitiesCommand())

	return cmd
}

func newMetadataEntityCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "entity LOGICAL_NAME",
		Short: "Show an entity with its columns",
		Long:  "Retrieve one entity definition with its attributes expanded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			entity, err := client.Metadata().Entity(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get entity metadata: %w", err)
			}

			return renderOutput(entity, func() error {
				err := renderKeyValueTable([][]string{
					{"Logical Name", entity.LogicalName},
					{"Schema Name", entity.SchemaName},
					{"Collection", entity.EntitySetName},
					{"Display Name", labelText(entity.DisplayName)},
					{"Primary Name", entity.PrimaryNameAttribute},
				})
				if err != nil {
					return err
				}

				if len(entity.Attributes) > 0 {
					return displayAttributesTable(entity.Attributes)
				}

				return nil
			})
		},
	}
}

func newMetadataEntitiesCommand() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List entity definitions",
		Long:  "List the entity definitions visible in the environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			params := dataverse.NewQueryParams().
				WithSelect("LogicalName", "SchemaName", "EntitySetName", "PrimaryNameAttribute")
			if filter != "" {
				params.WithFilter(filter)
			}

			entities, err := client.Metadata().Entities(context.Background(), params)
			if err != nil {
				return fmt.Errorf("failed to list entities: %w", err)
			}

			return renderOutput(entities, func() error {
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Logical Name", "Schema Name", "Collection", "Primary Name")

				for _, entity := range entities {
					_ = table.Append(entity.LogicalName, entity.SchemaName, entity.EntitySetName, entity.PrimaryNameAttribute)
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "OData $filter expression")

	return cmd
}
