// cmd/crosslink/rules.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valpere/crosslink/internal/rules"
)

func createValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a rule file, or the stored rule set",
		Long: `Validate checks every profile for duplicate keywords, invalid regular
expressions and missing fields, and reports every problem found.

Examples:
  # Validate a rule file before importing it
  crosslink validate rules.yaml

  # Validate the rules held by the configured backend
  crosslink validate --config crosslink.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			var profiles []rules.SiteProfile
			source := "stored rule set"
			if len(args) == 1 {
				source = args[0]
				data, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("failed to read rule file: %w", err)
				}
				if profiles, err = rules.Decode(data); err != nil {
					return err
				}
			} else {
				st, err := a.openStore(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				defer st.Close()
				if profiles, err = st.Load(cmd.Context()); err != nil {
					return err
				}
			}

			if verrs := rules.Validate(profiles); len(verrs) > 0 {
				return verrs
			}
			fmt.Fprintf(a.out, "✓ %s is valid (%d site profiles)\n", source, len(profiles))
			for _, o := range rules.ExtractorOverlaps(profiles) {
				fmt.Fprintf(a.errOut, "note: %s: extractors %s all fill %q; the first to produce a value wins\n",
					o.SiteID, strings.Join(o.ExtractorIDs, ", "), o.IdentifierType)
			}
			return nil
		},
	}
}

func createExportCmd(a *app) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored rule set as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			st, err := a.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			profiles, err := st.Load(cmd.Context())
			if err != nil {
				return err
			}
			return a.writeRules(profiles, rules.Format(format), output)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(rules.FormatJSON), "output format: json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func createImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the stored rule set with the contents of a file",
		Long: `Import reads a JSON or YAML rule set, validates it and saves it to the
configured backend. A rule set with any problem is rejected as a whole.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read rule file: %w", err)
			}

			st, err := a.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			profiles, err := st.Import(cmd.Context(), string(data))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✓ Imported %d site profiles into the %s backend\n", len(profiles), cfg.Rules.Backend)
			return nil
		},
	}
}

func createDefaultsCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "defaults",
		Short: "Print the built-in rule set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.writeRules(rules.DefaultProfiles(), rules.Format(format), "")
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(rules.FormatJSON), "output format: json or yaml")
	return cmd
}

func (a *app) writeRules(profiles []rules.SiteProfile, format rules.Format, output string) error {
	data, err := rules.Encode(profiles, format, true)
	if err != nil {
		return err
	}
	if format != rules.FormatYAML {
		data = append(data, '\n')
	}

	if output == "" {
		_, err = a.out.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	fmt.Fprintf(a.errOut, "✓ Wrote %d site profiles to %s\n", len(profiles), output)
	return nil
}
