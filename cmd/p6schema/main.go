package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tordrt/p6schema"
	"github.com/tordrt/p6schema/internal/config"
	"github.com/tordrt/p6schema/internal/debug"
	"github.com/tordrt/p6schema/internal/registry"
	"github.com/tordrt/p6schema/internal/schema"
)

var version = "dev"

var appFs = afero.NewOsFs()

const schemaHelp = "Schema: file path, database URL or registry key (default: configured default, then latest EPPM)"

// cli carries the global flags and the state shared by every command
type cli struct {
	schemaDir string
	dbSchema  string
	debug     bool

	cfg *config.Config
	reg *registry.Registry
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "p6schema",
		Short: "Parse and analyze Primavera P6 schema definitions",
		Long: `p6schema loads Primavera P6 EPPM/PPM schema files (or a live PostgreSQL, MySQL or SQLite
catalog) and answers questions about them: tables, fields, relationships, search, statistics
and version-to-version comparison. Use 'p6schema list' to see available schemas.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	rootCmd.PersistentFlags().StringVar(&c.schemaDir, "schema-dir", "", "Directory of <family>_<version>_schema.xml files (default: config schema_dir or ./schemas)")
	rootCmd.PersistentFlags().StringVar(&c.dbSchema, "db-schema", "", "Database schema name for database URLs (default: public for PostgreSQL)")
	rootCmd.PersistentFlags().BoolVar(&c.debug, "debug", false, "Log diagnostics to stderr")

	rootCmd.AddCommand(
		c.listCmd(),
		c.infoCmd(),
		c.tablesCmd(),
		c.describeCmd(),
		c.relationshipsCmd(),
		c.searchCmd(),
		c.compareCmd(),
		c.exportCmd(),
		c.fieldsCmd(),
		c.constraintsCmd(),
		c.statsCmd(),
		c.configCmd(),
	)
	return rootCmd
}

// setup loads the configuration and discovers the schema directory
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	debug.Init(c.debug)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.cfg = cfg

	if !cmd.Flags().Changed("schema-dir") {
		c.schemaDir = cfg.SchemaDir
	}

	c.reg = registry.New(registry.WithDefault(cfg.DefaultSchema))
	if _, err := c.reg.Discover(appFs, c.schemaDir); err != nil {
		return fmt.Errorf("failed to discover schemas: %w", err)
	}
	return nil
}

// load resolves one schema specifier to its model
func (c *cli) load(ctx context.Context, specifier string) (*schema.Model, error) {
	return p6schema.Open(ctx, c.reg, specifier, &p6schema.Options{
		SchemaName: c.dbSchema,
		Fs:         appFs,
	})
}

// warnIntegrity reports dangling foreign keys without failing the command
func warnIntegrity(w io.Writer, m *schema.Model) {
	for _, issue := range m.Graph().Issues() {
		_, _ = fmt.Fprintf(w, "warning: %v\n", issue)
	}
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func parseTableList(tablesStr string) []string {
	if tablesStr == "" {
		return nil
	}
	tables := strings.Split(tablesStr, ",")
	for i, t := range tables {
		tables[i] = strings.TrimSpace(t)
	}
	return tables
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
