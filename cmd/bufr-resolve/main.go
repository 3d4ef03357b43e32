// Package main is the entry point for bufr-resolve.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lemonberrylabs/bufr-resolve/pkg/config"
	"github.com/lemonberrylabs/bufr-resolve/pkg/format"
	"github.com/lemonberrylabs/bufr-resolve/pkg/resolver"
	"github.com/lemonberrylabs/bufr-resolve/pkg/store"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// options holds the flag values shared by the root command and serve.
type options struct {
	overrides config.Overrides
	logLevel  string
	logFormat string

	sequence   string
	descriptor string
	centre     string
	asJSON     bool
	asYAML     bool
	flat       bool
	showConfig bool
	color      string
}

func main() {
	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the CLI with args and writes results to out.
func run(out, errOut io.Writer, args []string) error {
	cmd := newRootCmd(out, errOut)
	// cobra falls back to os.Args for a nil slice.
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	return cmd.Execute()
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:   "bufr-resolve",
		Short: "Resolve BUFR sequences, descriptors and centres",
		Long: `bufr-resolve expands BUFR table D sequences into their member
descriptors using the eccodes definition tables, and looks up element
descriptors and originating centres.`,
		Example: `  bufr-resolve -s 307080
  bufr-resolve -s 307080 --json
  bufr-resolve -d 012101
  bufr-resolve -c 98
  bufr-resolve serve --port 8787`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.sequence == "" && o.descriptor == "" && o.centre == "" && !o.showConfig {
				return cmd.Help()
			}
			return lookup(out, errOut, o)
		},
	}
	cmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	cmd.SetVersionTemplate("bufr-resolve version {{.Version}}\n")
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	addTableFlags(cmd.PersistentFlags(), o)
	addLookupFlags(cmd.Flags(), o)

	cmd.AddCommand(newServeCmd(errOut, o))
	return cmd
}

// addTableFlags registers the flags that locate the tables and configure
// logging.
func addTableFlags(fs *pflag.FlagSet, o *options) {
	fs.StringVar(&o.overrides.ConfigFile, "config-file", "", "YAML config file (env "+config.EnvConfigFile+")")
	fs.StringVar(&o.overrides.DefinitionPath, "definition-path", "", "eccodes BUFR WMO tables root (env "+config.EnvDefinitionPath+")")
	fs.StringVar(&o.overrides.WMOTableNumber, "wmo-table", "", "WMO master table version (default "+config.DefaultWMOTableNumber+", env "+config.EnvWMOTableNumber+")")
	fs.StringVar(&o.overrides.CodesVersion, "codes-version", "", "eccodes version used for Homebrew discovery (default "+config.DefaultCodesVersion+", env "+config.EnvCodesVersion+")")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	fs.StringVar(&o.logFormat, "log-format", "text", "log format: text or json")
}

func addLookupFlags(fs *pflag.FlagSet, o *options) {
	fs.StringVarP(&o.sequence, "sequence", "s", "", "BUFR sequence to expand (e.g. 307080)")
	fs.StringVarP(&o.descriptor, "descriptor", "d", "", "BUFR descriptor to look up (e.g. 007001)")
	fs.StringVarP(&o.centre, "centre", "c", "", "BUFR originating centre to look up (e.g. 98)")
	fs.BoolVarP(&o.asJSON, "json", "j", false, "print results as JSON")
	fs.BoolVar(&o.asYAML, "yaml", false, "print results as YAML")
	fs.BoolVar(&o.flat, "flat", false, "print the expanded sequence as a flat descriptor list")
	fs.BoolVar(&o.showConfig, "show-config", false, "print the effective configuration and exit")
	fs.StringVar(&o.color, "color", string(format.ColorAuto), "colorize output: auto, always or never")
}

// newLogger builds a slog logger from the --log-level and --log-format flags.
func newLogger(levelStr, formatStr string, w io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler)
}

// loadService resolves the configuration and checks the tables exist.
func loadService(o *options, logger *slog.Logger) (*resolver.Service, error) {
	cfg, err := config.Load(o.overrides)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("tables resolved",
		"sequence_file", cfg.SequenceFile,
		"element_file", cfg.ElementFile,
		"centre_file", cfg.CentreFile)
	return resolver.New(cfg, store.New(), logger), nil
}

func lookup(out, errOut io.Writer, o *options) error {
	if o.asJSON && o.asYAML {
		return errors.New("--json and --yaml are mutually exclusive")
	}
	mode, err := format.ParseColorMode(o.color)
	if err != nil {
		return err
	}
	logger := newLogger(o.logLevel, o.logFormat, errOut)

	if o.showConfig {
		cfg, err := config.Load(o.overrides)
		if err != nil {
			return err
		}
		if o.asYAML {
			return format.YAML(out, cfg)
		}
		return format.JSON(out, cfg.ToMap())
	}

	svc, err := loadService(o, logger)
	if err != nil {
		return err
	}
	p := format.NewPrinter(out, mode, svc.Element)

	if o.sequence != "" {
		if err := printSequence(out, p, svc, o); err != nil {
			return err
		}
	}
	if o.descriptor != "" {
		if err := printDescriptor(out, p, svc, o); err != nil {
			return err
		}
	}
	if o.centre != "" {
		if err := printCentre(out, p, svc, o); err != nil {
			return err
		}
	}
	return nil
}

func printSequence(out io.Writer, p *format.Printer, svc *resolver.Service, o *options) error {
	tree, err := svc.Sequence(o.sequence)
	if err != nil {
		return err
	}

	var structured interface{} = tree
	if o.flat {
		structured = tree.Flatten()
	}
	switch {
	case o.asJSON:
		return format.JSON(out, structured)
	case o.asYAML:
		return format.YAML(out, structured)
	}

	cfg := svc.Config()
	fmt.Fprintf(out, "Using: %s with WMO tables %s.\n", cfg.DefinitionPath, cfg.WMOTableNumber)
	if !tree.Found {
		fmt.Fprintf(out, "Sequence %s not found.\n", o.sequence)
		return nil
	}
	fmt.Fprintln(out, "Sequence -->")
	if o.flat {
		return p.Flat(tree.Flatten())
	}
	return p.Tree(tree)
}

func printDescriptor(out io.Writer, p *format.Printer, svc *resolver.Service, o *options) error {
	e, ok, err := svc.Element(o.descriptor)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(out, "Descriptor: %s not found.\n", o.descriptor)
		return nil
	}
	switch {
	case o.asJSON:
		return format.JSON(out, e)
	case o.asYAML:
		return format.YAML(out, e)
	}
	return p.Element(e)
}

func printCentre(out io.Writer, p *format.Printer, svc *resolver.Service, o *options) error {
	c, ok, err := svc.Centre(o.centre)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(out, "Centre ID: %s not found.\n", o.centre)
		return nil
	}
	switch {
	case o.asJSON:
		return format.JSON(out, c)
	case o.asYAML:
		return format.YAML(out, c)
	}
	return p.Centre(c)
}
