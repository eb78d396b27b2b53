package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tordrt/p6schema"
	"github.com/tordrt/p6schema/internal/config"
	"github.com/tordrt/p6schema/internal/diff"
	"github.com/tordrt/p6schema/internal/formatter"
	"github.com/tordrt/p6schema/internal/schema"
)

func addFormatFlag(cmd *cobra.Command, format *string, formats string) {
	cmd.Flags().StringVarP(format, "format", "f", formatter.FormatText, "Output format: "+formats)
}

func (c *cli) listCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available schemas in the schema directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatter.New(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return f.Schemas(c.schemaDir, c.reg.Entries())
		},
	}
	addFormatFlag(cmd, &format, "text, json, yaml or csv")
	return cmd
}

func (c *cli) infoCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "info [schema]",
		Short: "Show schema information",
		Long:  "Show schema information.\n\n" + schemaHelp,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatter.New(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			m, err := c.load(cmd.Context(), optionalArg(args))
			if err != nil {
				return err
			}
			return f.Info(m)
		},
	}
	addFormatFlag(cmd, &format, "text, json or yaml")
	return cmd
}

func (c *cli) tablesCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "tables [schema]",
		Short: "List all tables",
		Long:  "List all tables, sorted by name.\n\n" + schemaHelp,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatter.New(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			m, err := c.load(cmd.Context(), optionalArg(args))
			if err != nil {
				return err
			}
			return f.Tables(formatter.SortTables(m.Tables()))
		},
	}
	addFormatFlag(cmd, &format, "text, json, yaml or csv")
	return cmd
}

func (c *cli) describeCmd() *cobra.Command {
	var format, spec string
	cmd := &cobra.Command{
		Use:   "describe <table>",
		Short: "Describe a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatter.New(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			m, err := c.load(cmd.Context(), spec)
			if err != nil {
				return err
			}
			t, err := m.Lookup(args[0])
			if err != nil {
				return err
			}
			return f.Describe(t)
		},
	}
	cmd.Flags().StringVarP(&spec, "schema", "s", "", schemaHelp)
	addFormatFlag(cmd, &format, "text, json, yaml or csv")
	return cmd
}

func (c *cli) relationshipsCmd() *cobra.Command {
	var format, spec string
	cmd := &cobra.Command{
		Use:     "relationships <table>",
		Aliases: []string{"rels"},
		Short:   "Show the foreign keys of a table and the foreign keys pointing at it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatter.New(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			m, err := c.load(cmd.Context(), spec)
			if err != nil {
				return err
			}
			t, err := m.Lookup(args[0])
			if err != nil {
				return err
			}
			warnIntegrity(cmd.ErrOrStderr(), m)
			return f.Relationships(formatter.NewRelationships(m, t.Name))
		},
	}
	cmd.Flags().StringVarP(&spec, "schema", "s", "", schemaHelp)
	addFormatFlag(cmd, &format, "text, json, yaml or csv")
	return cmd
}

func (c *cli) searchCmd() *cobra.Command {
	var format, spec, kindName string
	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "Search tables, fields, relationships, or all",
		Long:  "Case-insensitive substring search over table names and descriptions, TABLE.field names, and relationships with their constraint names.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := schema.ParseSearchKind(kindName)
			if err != nil {
				return err
			}
			f, err := formatter.New(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			m, err := c.load(cmd.Context(), spec)
			if err != nil {
				return err
			}
			if kind == schema.SearchAll || kind == schema.SearchRelationships {
				warnIntegrity(cmd.ErrOrStderr(), m)
			}
			return f.Search(args[0], kind, m.Index().Search(args[0], kind))
		},
	}
	cmd.Flags().StringVarP(&spec, "schema", "s", "", schemaHelp)
	cmd.Flags().StringVarP(&kindName, "type", "t", "all", "What to search: table, field, rel[ationship], or all")
	addFormatFlag(cmd, &format, "text, json, yaml or csv")
	return cmd
}

func (c *cli) compareCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "compare <schema1> <schema2>",
		Short: "Compare two schemas",
		Long:  "Compare two schemas: tables added and removed, and per-table field, index and constraint changes.\n\n" + schemaHelp,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatter.New(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			var left, right *schema.Model
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				var err error
				left, err = c.load(ctx, args[0])
				return err
			})
			g.Go(func() error {
				var err error
				right, err = c.load(ctx, args[1])
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			return f.Compare(diff.Compare(left, right))
		},
	}
	addFormatFlag(cmd, &format, "text, json or yaml")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var format, output, outputDir string
	cmd := &cobra.Command{
		Use:   "export [schema]",
		Short: "Export a whole schema as JSON, YAML or markdown",
		Long:  "Export a whole schema as JSON, YAML or markdown. With --output-dir, markdown is written as _overview.md plus one file per table.\n\n" + schemaHelp,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" && outputDir != "" {
				return fmt.Errorf("cannot use both --output-dir and --output flags")
			}
			format = strings.ToLower(format)
			if outputDir != "" && format != "markdown" && cmd.Flags().Changed("format") {
				return fmt.Errorf("--output-dir writes markdown only")
			}

			m, err := c.load(cmd.Context(), optionalArg(args))
			if err != nil {
				return err
			}
			warnIntegrity(cmd.ErrOrStderr(), m)

			if outputDir != "" {
				if err := p6schema.WriteMarkdown(m, &p6schema.OutputOptions{OutputDir: outputDir, Fs: appFs}); err != nil {
					return fmt.Errorf("failed to format output: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", outputDir)
				return nil
			}

			writer := cmd.OutOrStdout()
			if output != "" {
				file, err := appFs.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer func() {
					if err := file.Close(); err != nil {
						_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to close output file: %v\n", err)
					}
				}()
				writer = file
			}

			if err := writeExport(writer, m, format); err != nil {
				return err
			}
			if output != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Output directory for multi-file markdown")
	cmd.Flags().StringVarP(&format, "format", "f", formatter.FormatJSON, "Output format: json, yaml or markdown")
	return cmd
}

func writeExport(w io.Writer, m *schema.Model, format string) error {
	switch format {
	case formatter.FormatJSON:
		return formatter.NewJSONFormatter(w).Export(m)
	case formatter.FormatYAML, "yml":
		return formatter.NewYAMLFormatter(w).Export(m)
	case "markdown", "md":
		return p6schema.WriteMarkdown(m, &p6schema.OutputOptions{Writer: w})
	default:
		return fmt.Errorf("invalid format: %s (must be json, yaml or markdown)", format)
	}
}

func (c *cli) fieldsCmd() *cobra.Command {
	var format, tables string
	cmd := &cobra.Command{
		Use:   "fields [schema]",
		Short: "List fields",
		Long:  "List fields of every table, or of the tables given with --table.\n\n" + schemaHelp,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatter.New(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			m, err := c.load(cmd.Context(), optionalArg(args))
			if err != nil {
				return err
			}

			var names []string
			for _, name := range parseTableList(tables) {
				t, err := m.Lookup(name)
				if err != nil {
					return err
				}
				names = append(names, t.Name)
			}
			return f.Fields(m.Fields(names...))
		},
	}
	cmd.Flags().StringVarP(&tables, "table", "t", "", "Filter by table name (comma-separated)")
	addFormatFlag(cmd, &format, "text, json, yaml or csv")
	return cmd
}

func (c *cli) constraintsCmd() *cobra.Command {
	var format, kindName string
	cmd := &cobra.Command{
		Use:   "constraints [schema]",
		Short: "List constraints",
		Long:  "List constraints of every table.\n\n" + schemaHelp,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var kinds []schema.ConstraintKind
			switch strings.ToLower(kindName) {
			case "", "all":
			case "pk":
				kinds = append(kinds, schema.ConstraintPrimaryKey)
			case "fk":
				kinds = append(kinds, schema.ConstraintForeignKey)
			default:
				return fmt.Errorf("invalid constraint type: %s (must be all, pk or fk)", kindName)
			}

			f, err := formatter.New(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			m, err := c.load(cmd.Context(), optionalArg(args))
			if err != nil {
				return err
			}
			return f.Constraints(m.Constraints(kinds...))
		},
	}
	cmd.Flags().StringVarP(&kindName, "type", "t", "all", "Constraint type: all, pk or fk")
	addFormatFlag(cmd, &format, "text, json, yaml or csv")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stats [schema]",
		Short: "Show schema statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatter.New(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			m, err := c.load(cmd.Context(), optionalArg(args))
			if err != nil {
				return err
			}
			return f.Stats(m.Stats())
		},
	}
	addFormatFlag(cmd, &format, "text, json, yaml or csv")
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:       "config <show|set-default|clear> [schema]",
		Short:     "Manage configuration (set default schema)",
		Long:      "show: display config, set-default: set default schema, clear: remove default",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"show", "set-default", "clear"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "show":
				return c.showConfig(out, format)
			case "set-default":
				if len(args) < 2 {
					return fmt.Errorf("set-default requires a schema (e.g., eppm:24.12)")
				}
				return c.setDefault(out, args[1])
			case "clear":
				cleared, err := c.cfg.ClearDefault()
				if err != nil {
					return err
				}
				if cleared {
					_, _ = fmt.Fprintln(out, "Default schema cleared. Will use latest EPPM.")
				} else {
					_, _ = fmt.Fprintln(out, "No default schema was set.")
				}
				return nil
			default:
				return fmt.Errorf("invalid action: %s (must be show, set-default or clear)", args[0])
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatter.FormatText, "Output format: text or json")
	return cmd
}

func (c *cli) showConfig(out io.Writer, format string) error {
	settings, err := c.cfg.Settings()
	if err != nil {
		return err
	}
	if len(settings) == 0 {
		_, _ = fmt.Fprintln(out, "No configuration set.")
		_, _ = fmt.Fprintf(out, "Config file: %s\n", c.cfg.Path())
		return nil
	}

	_, _ = fmt.Fprintln(out, "Current configuration:")
	_, _ = fmt.Fprintf(out, "  Config file: %s\n", c.cfg.Path())
	if def, ok := settings[config.KeyDefaultSchema]; ok {
		_, _ = fmt.Fprintf(out, "  Default schema: %v\n", def)
	}
	if format == formatter.FormatJSON {
		data, err := json.MarshalIndent(settings, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(data))
	}
	return nil
}

// setDefault accepts a registered key or an existing schema file
func (c *cli) setDefault(out io.Writer, spec string) error {
	entry, err := c.reg.Get(spec)
	if err != nil {
		if !strings.HasSuffix(strings.ToLower(spec), ".xml") {
			return err
		}
		if ok, _ := afero.Exists(appFs, spec); !ok {
			return fmt.Errorf("schema file not found: %s", spec)
		}
		if err := c.cfg.SetDefault(spec); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Default schema set to: %s\n", spec)
		return nil
	}

	if err := c.cfg.SetDefault(entry.Key.String()); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Default schema set to: %s (%s)\n", entry.Key.DisplayName(), entry.Key.String())
	return nil
}
