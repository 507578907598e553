package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newPushCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "push KEY VALUE...",
		Short:   "Append samples to the tail of a list",
		Example: "  liveplot push la 1 2 4 9",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			return st.Append(ctx, args[0], args[1:]...)
		},
	}
}
