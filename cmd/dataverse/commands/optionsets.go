package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

// NewOptionSetsCommand creates the optionsets command group.
func NewOptionSetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "optionsets",
		Aliases: []string{"choices"},
		Short:   "Manage global option sets",
		Long:    "Create, inspect and delete global option sets (choice lists)",
	}

	cmd.AddCommand(newOptionSetsCreateCommand())
	cmd.AddCommand(newOptionSetsGetCommand())
	cmd.AddCommand(newOptionSetsDeleteCommand())

	return cmd
}

func newOptionSetsCreateCommand() *cobra.Command {
	var (
		displayName string
		description string
		options     []string
	)

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a global option set",
		Long:  "Create a global option set from --option value=label pairs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(options) == 0 {
				return ErrOptionsRequired
			}

			optionMetadata, err := parseOptions(options)
			if err != nil {
				return err
			}

			request := &dataverse.OptionSetCreateRequest{
				Name:        args[0],
				DisplayName: displayName,
				Description: description,
				Options:     optionMetadata,
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			err = client.OptionSets().Create(context.Background(), request)
			if err != nil {
				return fmt.Errorf("failed to create option set: %w", err)
			}

			fmt.Printf("Successfully created option set '%s'\n", args[0])

			return nil
		},
	}

	cmd.Flags().StringVar(&displayName, "display-name", "", "display name (defaults to the name)")
	cmd.Flags().StringVar(&description, "description", "", "option set description")
	cmd.Flags().StringSliceVar(&options, "option", nil, "option as value=label (repeatable)")

	return cmd
}

func newOptionSetsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME",
		Short: "Get a global option set",
		Long:  "Retrieve a global option set and its options",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			optionSet, err := client.OptionSets().Get(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get option set: %w", err)
			}

			return renderOutput(optionSet, func() error {
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Value", "Label")

				for _, option := range optionSet.Options {
					_ = table.Append(fmt.Sprintf("%d", option.Value), labelText(option.Label))
				}

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}

				return nil
			})
		},
	}
}

func newOptionSetsDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a global option set",
		Long:  "Delete a global option set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				fmt.Printf("Really delete option set '%s'? (y/N): ", args[0])

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

			err = client.OptionSets().Delete(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to delete option set: %w", err)
			}

			fmt.Printf("Successfully deleted option set '%s'\n", args[0])

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")

	return cmd
}
