package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zcyan2013/jupyterlab-extension/internal/convert/codec"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/service"
)

func newSniffCommand(ctx *commandContext) *cobra.Command {
	var encoding string

	cmd := &cobra.Command{
		Use:   "sniff <file>",
		Short: "Report which schema family decodes a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := sniffEncoding(encoding, args[0])
			if err != nil {
				return err
			}
			svc, err := ctx.service()
			if err != nil {
				return err
			}

			d, err := svc.Sniff(cmd.Context(), args[0], enc)
			out := cmd.OutOrStdout()

			var unrec *service.UnrecognizedFormatError
			if errors.As(err, &unrec) {
				rows := make([][]string, 0, len(unrec.Attempts))
				for _, a := range unrec.Attempts {
					rows = append(rows, []string{a.Name, a.Err.Error()})
				}
				fmt.Fprintln(out, renderTable([]string{"Schema", "Error"}, rows, nil))
				return err
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(out, d.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&encoding, "encoding", "e", "", "Encoding of the file (pb or yaml, default from extension)")
	return cmd
}

func sniffEncoding(flag, path string) (codec.Encoding, error) {
	v := strings.ToLower(strings.TrimSpace(flag))
	if v == "" {
		v = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch v {
	case "yaml", "yml":
		return codec.YAML, nil
	case "pb", "onnx", "bin":
		return codec.Binary, nil
	}
	return "", fmt.Errorf("cannot infer encoding for %q, pass --encoding pb|yaml", path)
}
