package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/gamerank/internal/preset"
	"github.com/dshills/gamerank/internal/render"
)

func newPresetsCmd() *cobra.Command {
	var (
		long       bool
		configPath string
	)
	cmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "List built-in presets, or print one as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 || configPath != "" {
				return showPreset(cmd, args, configPath)
			}

			names, err := preset.List()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tMETHOD\tPRIOR\tTOP\tDETAILS")
			for _, name := range names {
				p, err := preset.LoadBuiltin(name)
				if err != nil {
					return exitError(exitConfig, "%v", err)
				}
				fmt.Fprintf(tw, "%s\t%s\t%g @ %g\t%d\t%t\n",
					p.Name, render.Method(p.PriorConfig()), p.Prior.Votes, p.Prior.Rating, p.Top, p.Details.Enabled)
				if d := strings.TrimSpace(p.Description); d != "" && long {
					fmt.Fprintf(tw, "\t%s\t\t\t\n", d)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Include preset descriptions")
	cmd.Flags().StringVar(&configPath, "config", "", "Print this preset file resolved over its base")
	return cmd
}

// showPreset prints the fully resolved preset, environment overrides included.
func showPreset(cmd *cobra.Command, args []string, configPath string) error {
	var (
		p   *preset.Preset
		err error
	)
	if configPath != "" {
		p, err = preset.LoadFile(configPath)
	} else {
		p, err = preset.LoadBuiltin(args[0])
	}
	if err != nil {
		return exitError(exitConfig, "failed to load preset: %v", err)
	}
	p.ApplyEnv()
	data, err := preset.Marshal(p)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
