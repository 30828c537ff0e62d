package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markjakearzadon/paymentserver/internal/db"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import payments from a CSV file",
	Long: `Load payments from a CSV file whose header row uses the payment field names.
Nothing is imported when payments are already stored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		path := importFile
		if path == "" {
			path = cfg.ImportFile
		}

		client, paymentService, err := openService(ctx)
		if err != nil {
			return err
		}
		defer db.Disconnect(client)

		n, err := paymentService.ImportFile(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to import %s: %w", path, err)
		}

		if n == 0 {
			fmt.Println("No payments imported.")
			return nil
		}
		fmt.Printf("Imported %d payments from %s\n", n, path)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "CSV file to import (defaults to IMPORT_FILE)")
}
