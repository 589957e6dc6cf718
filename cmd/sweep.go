package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evrange/core/model"
	"github.com/kilianp07/evrange/pkg/export"
)

func newSweepCmd(opts *options) *cobra.Command {
	var (
		name   string
		raw    []string
		format string
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Print the sensitivity table of an estimate",
		Example: "  evrange sweep --model degradation -p state_of_charge=80 -p battery_capacity_kwh=60 --format csv\n" +
			"  evrange sweep --model epa -p battery_capacity_kwh=60 -p epa_range_miles=300 -p current_charge_percent=80 \\\n" +
			"    -p temperature_f=40 -p avg_speed_mph=55 -p climate_usage=high -p terrain_type=flat",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := parseParams(raw)
			if err != nil {
				return err
			}
			svc, err := opts.localService(false)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()
			est, err := svc.Estimate(cmd.Context(), model.EstimateRequest{Model: name, Params: params, Source: model.SourceCLI})
			if err != nil {
				return fmt.Errorf("%s sweep: %w", name, err)
			}
			if format == formatText {
				return renderEstimate(cmd.OutOrStdout(), model.Estimate{
					Model:            est.Model,
					Unit:             est.Unit,
					Range:            est.Range,
					Sensitivity:      est.Sensitivity,
					SensitivitySlope: est.SensitivitySlope,
				})
			}
			return export.WriteSensitivity(cmd.OutOrStdout(), format, est.Unit, est.Sensitivity)
		},
	}
	cmd.Flags().StringVarP(&name, "model", "m", "degradation", "estimator name")
	cmd.Flags().StringArrayVarP(&raw, "param", "p", nil, "model parameter as name=value, repeatable")
	cmd.Flags().StringVarP(&format, "format", "o", export.FormatCSV, "output format: csv, json or text")
	return cmd
}

// parseParams turns name=value pairs into a parameter map. Values that parse
// as numbers or booleans keep that type; anything else stays a string so
// the model reports it as invalid.
func parseParams(raw []string) (map[string]any, error) {
	params := make(map[string]any, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("parameter %q must be name=value", kv)
		}
		v = strings.TrimSpace(v)
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			params[k] = f
			continue
		}
		if b, err := strconv.ParseBool(v); err == nil {
			params[k] = b
			continue
		}
		params[k] = v
	}
	return params, nil
}
