package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/echotrace/internal/device"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List playback and capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := device.List()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tDEFAULT\tNAME")
			for _, info := range infos {
				def := ""
				if info.Default {
					def = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Kind, def, info.Name)
			}
			return tw.Flush()
		},
	}
}
