package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davwright/XB-DataverseTools/internal/constants"
	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

// NewColumnsCommand creates the columns command group.
func NewColumnsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "columns",
		Aliases: []string{"attributes"},
		Short:   "Manage table columns",
		Long:    "Create and delete Dataverse table columns (attribute definitions)",
	}

	cmd.AddCommand(newColumnsCreateCommand())
	cmd.AddCommand(newColumnsDeleteCommand())

	return cmd
}

//nolint:funlen
func newColumnsCreateCommand() *cobra.Command {
	var (
		kind          string
		displayName   string
		description   string
		required      bool
		maxLength     int
		precision     int
		minValue      float64
		maxValue      float64
		format        string
		options       []string
		globalOptions string
		targets       []string
	)

	cmd := &cobra.Command{
		Use:   "create TABLE_LOGICAL_NAME SCHEMA_NAME",
		Short: "Create a column",
		Long: `Create a column on a table.

The --kind flag selects the column type: text, memo, integer, decimal,
money, boolean, datetime, choice, lookup or polymorphic. Choice columns
take --option value=label pairs or --global-option-set; lookup and
polymorphic columns take one or more --target tables.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if kind == "" {
				return ErrColumnKindRequired
			}

			optionMetadata, err := parseOptions(options)
			if err != nil {
				return err
			}

			request := &dataverse.ColumnCreateRequest{
				Kind:                dataverse.ColumnKind(kind),
				SchemaName:          args[1],
				DisplayName:         displayName,
				Description:         description,
				Required:            required,
				MaxLength:           maxLength,
				Precision:           precision,
				MinValue:            minValue,
				MaxValue:            maxValue,
				Format:              format,
				Options:             optionMetadata,
				GlobalOptionSetName: globalOptions,
				Targets:             targets,
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			err = client.Columns().Create(context.Background(), args[0], request)
			if err != nil {
				return fmt.Errorf("failed to create column: %w", err)
			}

			fmt.Printf("Successfully created column '%s' on '%s'\n", args[1], args[0])

			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "", "column kind (required)")
	cmd.Flags().StringVar(&displayName, "display-name", "", "display name (defaults to the schema name)")
	cmd.Flags().StringVar(&description, "description", "", "column description")
	cmd.Flags().BoolVar(&required, "required", false, "make the column application required")
	cmd.Flags().IntVar(&maxLength, "max-length", 0, "maximum length for text and memo columns")
	cmd.Flags().IntVar(&precision, "precision", 0, "precision for decimal and money columns")
	cmd.Flags().Float64Var(&minValue, "min", 0, "minimum value for numeric columns")
	cmd.Flags().Float64Var(&maxValue, "max", 0, "maximum value for numeric columns")
	cmd.Flags().StringVar(&format, "format", "", "datetime format (DateOnly or DateAndTime)")
	cmd.Flags().StringSliceVar(&options, "option", nil, "choice option as value=label (repeatable)")
	cmd.Flags().StringVar(&globalOptions, "global-option-set", "", "name of an existing global option set")
	cmd.Flags().StringSliceVar(&targets, "target", nil, "target table for lookup columns (repeatable for polymorphic)")

	return cmd
}

// parseOptions converts value=label pairs into option metadata.
func parseOptions(pairs []string) ([]dataverse.OptionMetadata, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	options := make([]dataverse.OptionMetadata, 0, len(pairs))

	for _, pair := range pairs {
		value, label, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("'%s': %w", pair, ErrInvalidOptionFormat)
		}

		numeric, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("'%s': %w", pair, ErrInvalidOptionFormat)
		}

		optionLabel := dataverse.NewLabel(label, constants.DefaultLanguageCode)
		options = append(options, dataverse.OptionMetadata{
			Value: numeric,
			Label: &optionLabel,
		})
	}

	return options, nil
}

func newColumnsDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete TABLE_LOGICAL_NAME COLUMN_LOGICAL_NAME",
		Short: "Delete a column",
		Long:  "Delete a column from a table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				fmt.Printf("Really delete column '%s' from '%s'? (y/N): ", args[1], args[0])

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

			err = client.Columns().Delete(context.Background(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to delete column: %w", err)
			}

			fmt.Printf("Successfully deleted column '%s'\n", args[1])

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")

	return cmd
}
