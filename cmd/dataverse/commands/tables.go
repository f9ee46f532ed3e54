package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

// NewTablesCommand creates the tables command group.
func NewTablesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tables",
		Aliases: []string{"entities"},
		Short:   "Manage tables",
		Long:    "Create, inspect and delete Dataverse tables (entity definitions)",
	}

	cmd.AddCommand(newTablesListCommand())
	cmd.AddCommand(newTablesGetCommand())
	cmd.AddCommand(newTablesCreateCommand())
	cmd.AddCommand(newTablesDeleteCommand())

	return cmd
}

func newTablesListCommand() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tables",
		Long:  "List entity definitions in the environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			params := dataverse.NewQueryParams().
				WithSelect("LogicalName", "SchemaName", "EntitySetName", "OwnershipType", "PrimaryNameAttribute")
			if filter != "" {
				params.WithFilter(filter)
			}

			tables, err := client.Tables().List(context.Background(), params)
			if err != nil {
				return fmt.Errorf("failed to list tables: %w", err)
			}

			return renderOutput(tables, func() error {
				return displayTablesTable(tables)
			})
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "OData $filter expression")

	return cmd
}

func displayTablesTable(tables []dataverse.EntityMetadata) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Logical Name", "Schema Name", "Collection", "Ownership")

	for _, entity := range tables {
		_ = table.Append(entity.LogicalName, entity.SchemaName, entity.EntitySetName, entity.OwnershipType)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func newTablesGetCommand() *cobra.Command {
	var expandAttributes bool

	cmd := &cobra.Command{
		Use:   "get LOGICAL_NAME",
		Short: "Get a table",
		Long:  "Retrieve a single entity definition, optionally with its columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			entity, err := client.Tables().Get(context.Background(), args[0], expandAttributes)
			if err != nil {
				return fmt.Errorf("failed to get table: %w", err)
			}

			return renderOutput(entity, func() error {
				err := renderKeyValueTable([][]string{
					{"Logical Name", entity.LogicalName},
					{"Schema Name", entity.SchemaName},
					{"Collection", entity.EntitySetName},
					{"Display Name", labelText(entity.DisplayName)},
					{"Ownership", entity.OwnershipType},
					{"Primary Name", entity.PrimaryNameAttribute},
				})
				if err != nil {
					return err
				}

				if expandAttributes && len(entity.Attributes) > 0 {
					return displayAttributesTable(entity.Attributes)
				}

				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&expandAttributes, "columns", false, "include the table's columns")

	return cmd
}

func displayAttributesTable(attributes []dataverse.AttributeMetadata) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Logical Name", "Type", "Required", "Display Name")

	for _, attr := range attributes {
		required := ""
		if attr.RequiredLevel != nil {
			required = attr.RequiredLevel.Value
		}

		_ = table.Append(attr.LogicalName, attr.AttributeType, required, labelText(attr.DisplayName))
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func newTablesCreateCommand() *cobra.Command {
	request := &dataverse.TableCreateRequest{}

	cmd := &cobra.Command{
		Use:   "create SCHEMA_NAME",
		Short: "Create a table",
		Long:  "Create a new custom table with a primary name column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request.SchemaName = args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			err = client.Tables().Create(context.Background(), request)
			if err != nil {
				return fmt.Errorf("failed to create table: %w", err)
			}

			fmt.Printf("Successfully created table '%s'\n", request.SchemaName)

			return nil
		},
	}

	cmd.Flags().StringVar(&request.DisplayName, "display-name", "", "display name (defaults to the schema name)")
	cmd.Flags().StringVar(&request.DisplayCollectionName, "collection-name", "", "plural display name")
	cmd.Flags().StringVar(&request.Description, "description", "", "table description")
	cmd.Flags().StringVar(&request.OwnershipType, "ownership", "", "ownership type (UserOwned or OrganizationOwned)")
	cmd.Flags().BoolVar(&request.HasNotes, "notes", false, "enable notes")
	cmd.Flags().BoolVar(&request.HasActivities, "activities", false, "enable activities")
	cmd.Flags().StringVar(&request.PrimaryNameDisplay, "primary-name", "", "primary name column display name")

	return cmd
}

func newTablesDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete LOGICAL_NAME",
		Short: "Delete a table",
		Long:  "Delete a table and all of its rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				fmt.Printf("Really delete table '%s'? (y/N): ", args[0])

				var response string

				_, _ = fmt.Scanln(&response)
				if response != "y" && response != "Y" {
					fmt.Println("Cancelled")

					return nil
				}
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			err = client.Tables().Delete(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to delete table: %w", err)
			}

			fmt.Printf("Successfully deleted table '%s'\n", args[0])

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")

	return cmd
}
