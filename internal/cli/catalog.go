package cli

import (
	"github.com/spf13/cobra"

	"github.com/home-designer/backend/internal/models"
	"github.com/home-designer/backend/internal/parser"
)

var (
	catalogFile   string
	catalogFormat string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the furniture catalog",
	Long:  `Prints the built-in furniture and palette catalog, or checks and prints a replacement catalog file.`,
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

func init() {
	catalogCmd.Flags().StringVarP(&catalogFile, "file", "f", "", "catalog YAML file to check instead of the built-in one")
	catalogCmd.Flags().StringVarP(&catalogFormat, "output", "o", formatYAML, "output format: json or yaml")
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	var (
		catalog *models.Catalog
		err     error
	)
	if catalogFile == "" {
		catalog = parser.DefaultCatalog()
	} else if catalog, err = parser.ParseCatalog(catalogFile); err != nil {
		return err
	}
	return writeOutput(cmd, catalog, catalogFormat)
}
