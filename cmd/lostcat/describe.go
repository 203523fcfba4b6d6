package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/janisto/lostcat/internal/service/describe"
)

func (c *cli) describeCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Draft a poster description with Gemini",
		Long:  "Sends the cat's name, breed, color, features and last-seen place to Gemini and prints the drafted description. Owner contact details are never sent.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.opContext(cmd)
			defer cancel()

			state, err := replay(ctx, c.profilePath, c.loader(), c.now(), false)
			if err != nil {
				return err
			}
			req := describe.RequestFromProfile(state.Profile)
			if !req.Complete() {
				return fmt.Errorf("%w: missing %s", ErrIncomplete, joinFields(state.Profile.Missing()))
			}

			gen, err := c.newGenerator(ctx, c.cfg)
			if err != nil {
				return err
			}
			text, err := gen.Generate(ctx, req)
			if errors.Is(err, describe.ErrMissingCredential) {
				return fmt.Errorf("%w: set GEMINI_API_KEY", err)
			}
			if err != nil {
				return err
			}

			if write {
				if err := writeDescription(c.profilePath, text); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintln(c.stdout, text)
			return err
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "Store the description in the profile file")
	return cmd
}
