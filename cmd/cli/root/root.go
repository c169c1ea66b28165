package root

import (
	"github.com/spf13/cobra"
)

// Exported RootCmd
var RootCmd = &cobra.Command{
	Use:           "bookcat",
	Short:         "Book catalog CLI",
	Long:          "Command line interface for the book catalog API. Set BOOK_CATALOG_API_URL to point at a server.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// GetRoot returns the RootCmd
func GetRoot() *cobra.Command {
	return RootCmd
}
