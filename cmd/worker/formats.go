package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zcyan2013/jupyterlab-extension/internal/convert/schema"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/service"
)

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported conversions and the decoder order",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			pairs := service.SupportedPairs()
			rows := make([][]string, 0, len(pairs))
			for _, p := range pairs {
				rows = append(rows, []string{string(p.Source), string(p.Target), p.Target.Label()})
			}
			fmt.Fprintln(out, renderTable([]string{"Source", "Target", "Reported as"}, rows, nil))

			chain := schema.Chain()
			rows = rows[:0]
			for i, v := range chain {
				rows = append(rows, []string{fmt.Sprintf("%d", i+1), v.Name, string(v.Descriptor().FullName())})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Schema", "Root message"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	}
}
