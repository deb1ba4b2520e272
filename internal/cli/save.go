package cli

import (
	"fmt"

	"github.com/ibeckermayer/x2notion/internal/app"
	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type saveFlags struct {
	title    string
	types    []string
	comments bool
	open     bool
}

func (f *saveFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "page title (default is the start of the post)")
	cmd.Flags().StringSliceVarP(&f.types, "type", "t", nil, "Type values for the page (repeatable)")
	cmd.Flags().BoolVar(&f.comments, "comments", false, "include the comment section")
	cmd.Flags().BoolVar(&f.open, "open", false, "open the created page in the browser")
}

func (f *saveFlags) options() app.SaveOptions {
	return app.SaveOptions{Title: f.title, Types: f.types, Comments: f.comments}
}

func newSaveCommand(opts *rootOptions) *cobra.Command {
	flags := &saveFlags{}
	var asThread bool

	cmd := &cobra.Command{
		Use:   "save <url>...",
		Short: "Save posts to Notion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd, opts, flags, args, asThread)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asThread, "thread", false, "save the author's whole thread as one page")
	return cmd
}

func newThreadCommand(opts *rootOptions) *cobra.Command {
	flags := &saveFlags{}

	cmd := &cobra.Command{
		Use:   "thread <url>",
		Short: "Save a thread to Notion as one page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd, opts, flags, args, true)
		},
	}
	flags.register(cmd)
	return cmd
}

func runSave(cmd *cobra.Command, opts *rootOptions, flags *saveFlags, urls []string, asThread bool) error {
	a, err := opts.openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.IsAuthenticated() {
		log.Warn().Msg("no X session stored, capturing logged out; run `x2notion login` if pages fail to load")
	}

	svc := a.Service()
	if len(urls) == 1 {
		save := svc.SavePost
		if asThread {
			save = svc.SaveThread
		}
		res, err := save(cmd.Context(), urls[0], flags.options())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.PageURL)
		if flags.open {
			return browser.OpenURL(res.PageURL)
		}
		return nil
	}

	outcomes, err := svc.SaveMany(cmd.Context(), urls, asThread, flags.options())
	for _, o := range outcomes {
		if o.Result != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", o.URL, o.Result.PageURL)
		}
	}
	return err
}
