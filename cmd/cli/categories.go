package cli

import (
	"fmt"

	"github.com/flowbaker/csvclassifier/internal/initialization"
	"github.com/flowbaker/csvclassifier/pkg/categoryschema"
	"github.com/spf13/cobra"
)

func NewCategoriesCommand() *cobra.Command {
	var categoriesFile string

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Show the active category set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCommandConfig(cmd)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("categories") {
				cfg.CategoriesFile = categoriesFile
			}

			set, err := initialization.LoadCategories(cfg)
			if err != nil {
				return err
			}

			schema, err := categoryschema.Build(set)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, set.Len())
			for _, label := range schema.Labels() {
				rows = append(rows, []string{label.Identifier, label.Token, label.Description})
			}

			fmt.Fprintln(cmd.OutOrStdout(), styledTable([]string{"identifier", "token", "description"}, rows))

			return nil
		},
	}

	cmd.Flags().StringVar(&categoriesFile, "categories", "", "YAML file mapping IDENTIFIER: description")

	return cmd
}
