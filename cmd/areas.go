package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var areasCounties bool

var areasCmd = &cobra.Command{
	Use:   "areas",
	Short: "Print equal-area sizes of the configured boundary layers",
	Long:  "Loads the shapefile layers and prints each unit's projected area in square kilometers, as the classifier will see them.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.Source.Driver != "shapefile" {
			return eris.Errorf("areas requires the shapefile driver, configured driver is %q", cfg.Source.Driver)
		}

		idx, err := buildIndex()
		if err != nil {
			return err
		}

		fmt.Printf("%-30s %-30s %15s\n", "STATE", "COUNTY", "AREA (km²)")
		for _, u := range idx.UnitAreas() {
			if u.County == "" {
				fmt.Printf("%-30s %-30s %15.1f\n", u.State, "-", u.AreaKM2)
				continue
			}
			if areasCounties {
				fmt.Printf("%-30s %-30s %15.1f\n", u.State, u.County, u.AreaKM2)
			}
		}
		return nil
	},
}

func init() {
	areasCmd.Flags().BoolVar(&areasCounties, "counties", true, "include county rows")
	rootCmd.AddCommand(areasCmd)
}
