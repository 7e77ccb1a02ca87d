package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zcyan2013/jupyterlab-extension/internal/convert/domain"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var req domain.ConversionRequest

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a model file",
		Long: `Convert a model file.

Supported pairs (source -> target):
  onnx -> yaml, dot
  pb   -> yaml, dot
  yaml -> pb, dot

pb and yaml sources are matched against cimdev, cimprog and onnx in that order.
A dot target writes the DOT source at --target and the PNG at --target.png.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			res, err := svc.Handle(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Result)
			fmt.Fprintf(out, "schema: %s\n", res.Schema)
			for _, p := range res.Outputs {
				fmt.Fprintf(out, "wrote:  %s\n", p)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Source, "source", "s", "", "Source file")
	cmd.Flags().StringVarP(&req.Target, "target", "t", "", "Target file")
	cmd.Flags().StringVar(&req.SFormat, "sformat", "", "Source format (onnx, pb, yaml)")
	cmd.Flags().StringVar(&req.TFormat, "tformat", "", "Target format (yaml, pb, dot)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("sformat")
	_ = cmd.MarkFlagRequired("tformat")

	return cmd
}
