package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/smallbiznis/imobi360/internal/template"
	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Inspect the embedded tenant templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := template.NewRegistry()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tVERSION\tCATEGORY\tLOCALE\tNAME")
		for _, s := range registry.List() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Version, s.Category, s.Locale, s.Name)
		}
		return w.Flush()
	},
}

func init() {
	templatesCmd.AddCommand(templatesListCmd)
}
