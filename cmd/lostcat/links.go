package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *cli) linksCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Print map, messaging and QR links for the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.opContext(cmd)
			defer cancel()

			state, err := replay(ctx, c.profilePath, c.loader(), c.now(), false)
			if err != nil {
				return err
			}
			links := c.shareBuilder().All(state.Profile)

			if asJSON {
				enc := json.NewEncoder(c.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(links)
			}

			tw := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
			rows := [][2]string{
				{"map", links.MapSearch},
				{"embed", links.MapEmbed},
				{"whatsapp", links.WhatsApp},
				{"facebook", links.Facebook},
				{"qr", links.QRCode},
			}
			for _, row := range rows {
				if row[1] == "" {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(c.stdout, "\nNext steps:")
			for i, step := range links.NextSteps {
				fmt.Fprintf(c.stdout, "%d. %s\n", i+1, step)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print links as JSON")
	return cmd
}
