package cli

import (
	"errors"

	"github.com/ibeckermayer/x2notion/internal/dom"
	"github.com/spf13/cobra"
)

func newContextCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "context <url>",
		Short: "Show whether a status page holds a thread and comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			tc, err := a.Service().ExtractContext(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tc)
		},
	}
}

func newExtractCommand(opts *rootOptions) *cobra.Command {
	var (
		pageURL  string
		thread   bool
		comments bool
	)

	cmd := &cobra.Command{
		Use:   "extract <file.html>",
		Short: "Extract a saved page offline and print it as JSON",
		Long: `Extract reads an HTML snapshot of an X status page (for example one written
to the capture cache) and prints the main post, the thread or the comments as JSON.
Nothing is sent to Notion.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if thread && comments {
				return errors.New("--thread and --comments are mutually exclusive")
			}
			src := dom.FileSource{Path: args[0], URL: pageURL}

			a, err := opts.openApp(src)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := a.Service()
			ctx := cmd.Context()
			switch {
			case thread:
				posts, err := svc.ExtractFullThread(ctx, pageURL)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), posts)
			case comments:
				items, err := svc.ExtractComments(ctx, pageURL)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), items)
			default:
				post, err := svc.ExtractPost(ctx, pageURL)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), post)
			}
		},
	}

	cmd.Flags().StringVar(&pageURL, "url", "", "URL the snapshot was taken from")
	cmd.Flags().BoolVar(&thread, "thread", false, "extract the author's thread")
	cmd.Flags().BoolVar(&comments, "comments", false, "extract the comment section")
	return cmd
}
