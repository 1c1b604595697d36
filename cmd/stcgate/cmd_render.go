package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stcgate/internal/artifact"
	"stcgate/internal/format"
	"stcgate/internal/render"
)

var renderFormat string

var renderCmd = &cobra.Command{
	Use:   "render <bundle.json>",
	Short: "Render a saved /compilar response as tables and a tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderFormat, "format", "ascii", "output format: ascii or markdown")
}

func runRender(cmd *cobra.Command, args []string) error {
	mode, err := format.ParseMode(renderFormat)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}
	b, err := artifact.DecodeBundle(data)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), render.Text(b, mode))
	return nil
}
