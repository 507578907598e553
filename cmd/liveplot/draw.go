package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sliink/liveplot/internal/surface"
)

func newDrawCmd(opts *options) *cobra.Command {
	var (
		out    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "draw [flags] -- --list KEY [KEY] [--width N] [--height N] [--index natural|zip]",
		Short: "Draw a plot once and write the frame",
		Long: `Draw reads the lists once and writes a single frame.

The bitmap format is an 8-byte big-endian width, an 8-byte big-endian
height, then the RGB rows.`,
		Example: "  liveplot draw --format png --out plot.png -- --list la lb",
		RunE: func(cmd *cobra.Command, args []string) error {
			return draw(cmd, opts, args, out, format)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output file, - for stdout")
	cmd.Flags().StringVar(&format, "format", "bitmap", "Output format: bitmap or png")
	return cmd
}

func draw(cmd *cobra.Command, opts *options, args []string, out, format string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := opts.settings()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, settings)
	if err != nil {
		return err
	}
	defer st.Close()

	c, err := opts.newCore(st, surface.NewStandardFactory(surface.Options{}))
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case "bitmap":
		data, err = c.Draw(ctx, args)
	case "png":
		data, err = c.DrawPNG(ctx, args)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return err
	}

	if out == "-" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(out, data, 0o644)
}
