package main

import (
	"github.com/spf13/cobra"

	"github.com/zcyan2013/jupyterlab-extension/config"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/service"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/utils"
	"github.com/zcyan2013/jupyterlab-extension/internal/logging"
)

// commandContext builds the conversion service lazily so that
// commands like formats never touch the environment.
type commandContext struct {
	dotBin     string
	serverRoot string
	svc        *service.Service
}

func (c *commandContext) service() (*service.Service, error) {
	if c.svc != nil {
		return c.svc, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.SetLevel(cfg.App.LogLevel)

	dotBin := cfg.Convert.DotBin
	if c.dotBin != "" {
		dotBin = c.dotBin
	}
	root := cfg.Convert.ServerRoot
	if c.serverRoot != "" {
		root = c.serverRoot
	}

	c.svc = service.NewService(service.Options{
		ServerRoot: root,
		Renderer:   utils.NewGraphviz(dotBin),
	})
	return c.svc, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "worker",
		Short:         "Convert model files between onnx, pb, yaml and dot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.dotBin, "dot", "", "Graphviz dot binary (overrides DOT_BIN)")
	rootCmd.PersistentFlags().StringVar(&ctx.serverRoot, "root", "", "Resolve paths against this directory (overrides SERVER_ROOT)")

	rootCmd.AddCommand(newConvertCommand(ctx))
	rootCmd.AddCommand(newSniffCommand(ctx))
	rootCmd.AddCommand(newFormatsCommand())

	return rootCmd
}
