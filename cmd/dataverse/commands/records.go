package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

// NewRecordsCommand creates the records command group.
func NewRecordsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"rows"},
		Short:   "Manage table rows",
		Long:    "Create, read, update, delete and bulk-export Dataverse table rows",
	}

	cmd.AddCommand(newRecordsListCommand())
	cmd.AddCommand(newRecordsGetCommand())
	cmd.AddCommand(newRecordsCreateCommand())
	cmd.AddCommand(newRecordsUpdateCommand())
	cmd.AddCommand(newRecordsDeleteCommand())

	return cmd
}

func newRecordsListCommand() *cobra.Command {
	var (
		allPages   bool
		pageSize   int
		maxRetries int
		selectCols []string
		filter     string
		orderBy    []string
		top        int
	)

	cmd := &cobra.Command{
		Use:   "list COLLECTION",
		Short: "List rows in a collection",
		Long: `List rows in a collection (e.g. "accounts").

With --all, every page is fetched by following the server's continuation
links; transient failures (429 and 5xx) are retried per page with the
server's Retry-After honored. Without --all a single page is returned.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection := args[0]

			client, err := CreateClient()
			if err != nil {
				return err
			}

			params := dataverse.NewQueryParams()
			if len(selectCols) > 0 {
				params.WithSelect(selectCols...)
			}

			if filter != "" {
				params.WithFilter(filter)
			}

			if len(orderBy) > 0 {
				params.WithOrderBy(orderBy...)
			}

			ctx := context.Background()

			if allPages {
				return listAllRecords(ctx, client, collection, params, pageSize, maxRetries, selectCols)
			}

			if top > 0 {
				params.WithTop(top)
			}

			response, err := client.Records().List(ctx, collection, params)
			if err != nil {
				return fmt.Errorf("failed to list records: %w", err)
			}

			records, err := dataverse.UnmarshalRecords(response.Value)
			if err != nil {
				return fmt.Errorf("failed to decode records: %w", err)
			}

			return outputRecords(records, selectCols)
		},
	}

	cmd.Flags().BoolVar(&allPages, "all", false, "fetch all pages")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "rows per page for --all (1-5000, default 500)")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "per-page retry budget for --all (default 3)")
	cmd.Flags().StringSliceVar(&selectCols, "select", nil, "columns to select")
	cmd.Flags().StringVar(&filter, "filter", "", "OData $filter expression")
	cmd.Flags().StringSliceVar(&orderBy, "order-by", nil, "OData $orderby clauses")
	cmd.Flags().IntVar(&top, "top", 0, "limit a single-page listing")

	return cmd
}

func listAllRecords(ctx context.Context, client dataverse.Client, collection string, params *dataverse.QueryParams, pageSize, maxRetries int, selectCols []string) error {
	opts := &dataverse.FetchOptions{
		PageSize:   pageSize,
		MaxRetries: maxRetries,
	}

	result, err := client.Records().ListAll(ctx, collection, params, opts)
	if err != nil {
		return fmt.Errorf("failed to fetch records: %w", err)
	}

	records, err := dataverse.UnmarshalRecords(result.Records)
	if err != nil {
		return fmt.Errorf("failed to decode records: %w", err)
	}

	err = outputRecords(records, selectCols)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Fetched %d records in %d pages\n", len(records), result.Pages)

	return nil
}

func outputRecords(records []dataverse.Record, selectCols []string) error {
	return renderOutput(records, func() error {
		if len(selectCols) == 0 {
			// No column set to shape a table around.
			return renderJSON(records)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header(toAnySlice(selectCols)...)

		for _, record := range records {
			row := make([]string, 0, len(selectCols))
			for _, col := range selectCols {
				row = append(row, formatValue(record[col]))
			}

			_ = table.Append(toAnySlice(row)...)
		}

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	})
}

func toAnySlice(values []string) []interface{} {
	result := make([]interface{}, len(values))
	for i, v := range values {
		result[i] = v
	}

	return result
}

func formatValue(value interface{}) string {
	if value == nil {
		return ""
	}

	return fmt.Sprintf("%v", value)
}

func newRecordsGetCommand() *cobra.Command {
	var selectCols []string

	cmd := &cobra.Command{
		Use:   "get COLLECTION ID",
		Short: "Get a single row",
		Long:  "Retrieve a single row by its primary key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			params := dataverse.NewQueryParams()
			if len(selectCols) > 0 {
				params.WithSelect(selectCols...)
			}

			record, err := client.Records().Get(context.Background(), args[0], args[1], params)
			if err != nil {
				return fmt.Errorf("failed to get record: %w", err)
			}

			return renderOutput(record, func() error {
				return renderJSON(record)
			})
		},
	}

	cmd.Flags().StringSliceVar(&selectCols, "select", nil, "columns to select")

	return cmd
}

func newRecordsCreateCommand() *cobra.Command {
	var (
		data string
		file string
	)

	cmd := &cobra.Command{
		Use:   "create COLLECTION",
		Short: "Create a row",
		Long:  "Create a row from inline JSON or a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := readRecordInput(data, file)
			if err != nil {
				return err
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			created, err := client.Records().Create(context.Background(), args[0], record)
			if err != nil {
				return fmt.Errorf("failed to create record: %w", err)
			}

			return renderOutput(created, func() error {
				return renderJSON(created)
			})
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "row attributes as a JSON object")
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to a JSON file with the row attributes")

	return cmd
}

func newRecordsUpdateCommand() *cobra.Command {
	var (
		data string
		file string
	)

	cmd := &cobra.Command{
		Use:   "update COLLECTION ID",
		Short: "Update a row",
		Long:  "Apply a partial update to a row from inline JSON or a JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := readRecordInput(data, file)
			if err != nil {
				return err
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			updated, err := client.Records().Update(context.Background(), args[0], args[1], record)
			if err != nil {
				return fmt.Errorf("failed to update record: %w", err)
			}

			return renderOutput(updated, func() error {
				return renderJSON(updated)
			})
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "row attributes as a JSON object")
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to a JSON file with the row attributes")

	return cmd
}

func newRecordsDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete COLLECTION ID",
		Short: "Delete a row",
		Long:  "Delete a row by its primary key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				fmt.Printf("Really delete record '%s' from '%s'? (y/N): ", args[1], args[0])

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

			err = client.Records().Delete(context.Background(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to delete record: %w", err)
			}

			fmt.Printf("Successfully deleted record '%s'\n", args[1])

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")

	return cmd
}

func readRecordInput(data, file string) (dataverse.Record, error) {
	var payload []byte

	switch {
	case data != "":
		payload = []byte(data)
	case file != "":
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading input file: %w", err)
		}

		payload = content
	default:
		return nil, ErrRecordDataRequired
	}

	var record dataverse.Record

	err := json.Unmarshal(payload, &record)
	if err != nil {
		return nil, fmt.Errorf("parsing record JSON: %w", err)
	}

	return record, nil
}
