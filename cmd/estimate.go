package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kilianp07/evrange/core/model"
)

// outputFlags controls how an estimate is printed and whether it is kept.
type outputFlags struct {
	format  string
	vehicle string
	save    bool
}

func (o *outputFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.format, "format", "o", "text", "output format: text, json or csv (sensitivity table)")
	fs.StringVar(&o.vehicle, "vehicle", "", "vehicle id recorded with the estimate")
	fs.BoolVar(&o.save, "save", false, "append the estimate to the configured history")
}

// floatFlag maps a CLI flag onto a model parameter.
type floatFlag struct {
	flag, param, usage string
	value              float64
}

func newEstimateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the driving range of a vehicle",
	}
	cmd.AddCommand(newDegradationCmd(opts), newEpaCmd(opts))
	return cmd
}

func newDegradationCmd(opts *options) *cobra.Command {
	var out outputFlags
	floats := []*floatFlag{
		{flag: "soc", param: "state_of_charge", usage: "state of charge in percent (required)"},
		{flag: "capacity", param: "battery_capacity_kwh", usage: "battery capacity in kWh (required)"},
		{flag: "consumption", param: "driving_consumption_kwh_per_100km", usage: "consumption in kWh/100km"},
		{flag: "temperature", param: "temperature_c", usage: "ambient temperature in °C"},
		{flag: "base-efficiency", param: "base_efficiency", usage: "drivetrain efficiency"},
		{flag: "charging-degradation", param: "charging_degradation", usage: "charging loss factor"},
		{flag: "cycles", param: "battery_age_cycles", usage: "battery age in full cycles"},
		{flag: "years", param: "battery_age_years", usage: "battery age in years"},
		{flag: "terrain", param: "terrain_factor", usage: "terrain consumption multiplier"},
		{flag: "climate-factor", param: "climate_factor", usage: "capacity factor with climate control on"},
		{flag: "regen-factor", param: "regen_factor", usage: "capacity factor with regenerative braking"},
	}
	var climate, regen, advanced bool
	cmd := &cobra.Command{
		Use:   "degradation",
		Short: "Battery degradation model (kilometres)",
		Example: "  evrange estimate degradation --soc 80 --capacity 60\n" +
			"  evrange estimate degradation --advanced --soc 80 --capacity 60 --consumption 16 --terrain 1 \\\n" +
			"    --temperature 10 --cycles 300 --years 4 --climate --climate-factor 0.8",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := changedFloats(cmd.Flags(), floats)
			if cmd.Flags().Changed("climate") {
				params["climate_control_enabled"] = climate
			}
			if cmd.Flags().Changed("regen") {
				params["regen_braking_enabled"] = regen
			}
			if advanced {
				params["advanced"] = true
			}
			return runEstimate(cmd, opts, out, "degradation", params)
		},
	}
	bindFloats(cmd.Flags(), floats)
	cmd.Flags().BoolVar(&climate, "climate", false, "climate control enabled")
	cmd.Flags().BoolVar(&regen, "regen", true, "regenerative braking enabled")
	cmd.Flags().BoolVar(&advanced, "advanced", false, "require every driving and battery-age input")
	out.bind(cmd.Flags())
	return cmd
}

func newEpaCmd(opts *options) *cobra.Command {
	var out outputFlags
	floats := []*floatFlag{
		{flag: "capacity", param: "battery_capacity_kwh", usage: "battery capacity in kWh"},
		{flag: "epa-range", param: "epa_range_miles", usage: "EPA rated range in miles"},
		{flag: "charge", param: "current_charge_percent", usage: "current charge in percent"},
		{flag: "temperature", param: "temperature_f", usage: "ambient temperature in °F"},
		{flag: "speed", param: "avg_speed_mph", usage: "average speed in mph"},
	}
	var climate, terrain string
	cmd := &cobra.Command{
		Use:     "epa",
		Short:   "EPA-relative model (miles)",
		Example: "  evrange estimate epa --capacity 75 --epa-range 310 --charge 90 --temperature 40 --speed 55 --climate high --terrain hilly",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := changedFloats(cmd.Flags(), floats)
			if climate != "" {
				params["climate_usage"] = climate
			}
			if terrain != "" {
				params["terrain_type"] = terrain
			}
			return runEstimate(cmd, opts, out, "epa", params)
		},
	}
	bindFloats(cmd.Flags(), floats)
	cmd.Flags().StringVar(&climate, "climate", "", "climate control usage: low, medium or high")
	cmd.Flags().StringVar(&terrain, "terrain", "", "terrain: flat, hilly or mountain")
	out.bind(cmd.Flags())
	return cmd
}

func bindFloats(fs *pflag.FlagSet, floats []*floatFlag) {
	for _, f := range floats {
		fs.Float64Var(&f.value, f.flag, 0, f.usage)
	}
}

// changedFloats returns the parameters whose flags were set explicitly so
// that omitted inputs reach the model as missing rather than zero.
func changedFloats(fs *pflag.FlagSet, floats []*floatFlag) map[string]any {
	params := map[string]any{}
	for _, f := range floats {
		if fs.Changed(f.flag) {
			params[f.param] = f.value
		}
	}
	return params
}

func runEstimate(cmd *cobra.Command, opts *options, out outputFlags, name string, params map[string]any) error {
	svc, err := opts.localService(out.save)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()
	est, err := svc.Estimate(cmd.Context(), model.EstimateRequest{
		Model:     name,
		Params:    params,
		VehicleID: out.vehicle,
		Source:    model.SourceCLI,
	})
	if err != nil {
		return fmt.Errorf("%s estimate: %w", name, err)
	}
	return printEstimate(cmd.OutOrStdout(), out.format, est)
}
