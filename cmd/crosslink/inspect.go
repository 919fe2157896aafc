// cmd/crosslink/inspect.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/crosslink/internal/browser"
	"github.com/valpere/crosslink/internal/document"
	"github.com/valpere/crosslink/internal/engine"
)

func createInspectCmd(a *app) *cobra.Command {
	var (
		pageURL  string
		htmlFile string
		render   bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Evaluate one page against the rule set",
		Long: `Inspect runs the engine on a single page and prints the matched profile,
the extracted identifiers and the built links as JSON.

The page comes from a saved HTML file, standard input ("-"), or a headless
browser rendering of the URL.

Examples:
  crosslink inspect --url https://javdb.com/v/abc --html page.html
  curl -s https://javdb.com/v/abc | crosslink inspect --url https://javdb.com/v/abc --html -
  crosslink inspect --url https://javdb.com/v/abc --render`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (htmlFile == "") == !render {
				return fmt.Errorf("exactly one of --html or --render is required")
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			location, content := pageURL, ""
			if render {
				renderer := browser.NewRenderer(cfg.Browser, nil)
				defer renderer.Close()
				if location, content, err = renderer.Snapshot(ctx, pageURL); err != nil {
					return err
				}
			} else {
				if content, err = readHTML(htmlFile, cmd.InOrStdin()); err != nil {
					return err
				}
			}

			doc, err := document.ParseString(content, location)
			if err != nil {
				return err
			}

			st, err := a.openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			eng, err := engine.NewEngine(st)
			if err != nil {
				return err
			}
			result, err := eng.Run(ctx, location, doc)
			if err != nil {
				return err
			}
			if result == nil {
				fmt.Fprintf(a.errOut, "No site profile matched %s\n", location)
				return nil
			}

			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVarP(&pageURL, "url", "u", "", "page URL (required)")
	cmd.Flags().StringVar(&htmlFile, "html", "", `saved page HTML, or "-" for stdin`)
	cmd.Flags().BoolVar(&render, "render", false, "render the URL in a headless browser")
	cmd.MarkFlagRequired("url")
	return cmd
}

func readHTML(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read page from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read page file: %w", err)
	}
	return string(data), nil
}
