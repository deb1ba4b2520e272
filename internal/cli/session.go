package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newLoginCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in to X in a browser window and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Login(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
			return nil
		},
	}
}

func newLogoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored X session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Logout()
		},
	}
}

func newWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [url]",
		Short: "Browse X in a managed window with promoted posts hidden",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := "https://x.com/home"
			if len(args) == 1 {
				start = args[0]
			}

			a, err := opts.openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			hidden, err := a.Scraper().Watch(cmd.Context(), start, func(url string, n int) {
				log.Info().Str("url", url).Int("ads", n).Msg("hid promoted posts")
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Hid %d promoted posts.\n", hidden)
			return err
		},
	}
}
