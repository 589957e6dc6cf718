package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evrange/core/estimator"
)

func newDefaultsCmd() *cobra.Command {
	var capacity float64
	cmd := &cobra.Command{
		Use:   "defaults",
		Short: "Show the consumption and terrain factor assumed for a battery size",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := estimator.CheckCapacity(capacity); err != nil {
				return err
			}
			d := estimator.DeriveDefaults(capacity)
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %g kWh/100km\n%s %g\n",
				labelStyle.Render("consumption:"), d.Consumption,
				labelStyle.Render("terrain factor:"), d.TerrainFactor)
			return err
		},
	}
	cmd.Flags().Float64Var(&capacity, "capacity", 0, "battery capacity in kWh")
	_ = cmd.MarkFlagRequired("capacity")
	return cmd
}
