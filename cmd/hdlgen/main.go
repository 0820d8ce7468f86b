// =============================================================================
// hdlgen - Main Entry Point
// =============================================================================
//
// hdlgen writes structural Verilog for a hierarchical design: one module per
// design document, with the instances, wires and tie-offs its connections
// imply. Everything below the marker line of a generated file belongs to the
// user and survives regeneration.
//
// THE PIPELINE:
//   1. Design documents are loaded (YAML, JSON or TOML)
//   2. CUE Validator enforces the design contract
//   3. Connection Synthesizer resolves bit ranges and allocates signals
//   4. Implementation Preserver reads the previous file
//   5. Module Writer emits the new file
//   6. OPA evaluates netlist rules against the combined fact tables
// =============================================================================

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/robert-at-pretension-io/hdlgen/internal/config"
	"github.com/robert-at-pretension-io/hdlgen/internal/design"
	"github.com/robert-at-pretension-io/hdlgen/internal/generator"
	"github.com/robert-at-pretension-io/hdlgen/internal/importer"
	"github.com/robert-at-pretension-io/hdlgen/internal/policy"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit()
	case "import":
		runImport(os.Args[2:])
	case "-h", "--help", "help":
		printUsage()
	default:
		runGenerate(os.Args[1:])
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: hdlgen [command] [options] <path> [design files...]

Commands:
  init              Create an hdlgen.json configuration file
  import <file.v>   Print the module headers of a Verilog file as components
  <path>            Generate every design document under the given path

Options:
  -v, --verbose     Enable debug logging
  -c, --config      Specify config file: hdlgen -c hdlgen.toml <path>
  --json            Print the result as JSON
  --timing          Write timing.jsonl (or --timing-out <file>)
  --policy <dir>    Load extra .rego rules from dir (repeatable)
  -h, --help        Show this help message

Configuration:
  hdlgen looks for configuration in:
    1. ./hdlgen.json, ./.hdlgen.json, ./hdlgen.toml
    2. the same names in <path>
    3. ~/.config/hdlgen/config.json

  Run 'hdlgen init' to create a default configuration file.`)
}

func runInit() {
	configPath := "hdlgen.json"

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file %s already exists. Overwrite? [y/N]: ", configPath)
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("\nEdit this file to configure:")
	fmt.Println("  - Design document patterns")
	fmt.Println("  - Output directory and header author")
	fmt.Println("  - Netlist rule severities")
}

type stringList []string

func (l *stringList) String() string     { return fmt.Sprint(*l) }
func (l *stringList) Set(v string) error { *l = append(*l, v); return nil }

func runGenerate(args []string) {
	fs := flag.NewFlagSet("hdlgen", flag.ExitOnError)
	fs.Usage = printUsage
	verbose := fs.Bool("verbose", false, "enable debug logging")
	fs.BoolVar(verbose, "v", false, "enable debug logging (shorthand)")
	configPath := fs.String("config", "", "config file")
	fs.StringVar(configPath, "c", "", "config file (shorthand)")
	jsonOut := fs.Bool("json", false, "print the result as JSON")
	timing := fs.Bool("timing", false, "write timing.jsonl")
	timingOut := fs.String("timing-out", "", "timing JSONL path")
	var policyDirs stringList
	fs.Var(&policyDirs, "policy", "directory of extra .rego rules")
	_ = fs.Parse(args)

	rest := fs.Args()
	if len(rest) < 1 {
		printUsage()
		os.Exit(1)
	}
	root, files := rest[0], rest[1:]

	logger := newLogger(*verbose)
	defer func() { _ = logger.Sync() }()
	generator.SetLogger(logger.Named("generator"))
	policy.SetLogger(logger.Named("policy"))

	cfg, err := loadConfig(*configPath, root, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	g := generator.NewWithConfig(cfg)
	g.PolicyDirs = policyDirs
	g.Timing = *timing || *timingOut != ""
	g.TimingPath = *timingOut

	result, runErr := g.Run(context.Background(), root, files...)
	if result != nil {
		if *jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				fmt.Fprintf(os.Stderr, "failed to encode JSON output: %v\n", err)
				os.Exit(1)
			}
		} else {
			styled := term.IsTerminal(int(os.Stdout.Fd()))
			printReport(os.Stdout, result, newStyles(styled))
		}
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
	if result.Summary.Errors > 0 {
		os.Exit(1)
	}
}

func loadConfig(path, root string, logger *zap.Logger) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	cfg, err := config.Load(root)
	if err != nil {
		logger.Warn("could not load config, using defaults", zap.Error(err))
		return config.DefaultConfig(), nil
	}
	return cfg, nil
}

func runImport(args []string) {
	fs := flag.NewFlagSet("hdlgen import", flag.ExitOnError)
	output := fs.String("output", "", "write YAML to file (default: stdout)")
	fs.StringVar(output, "o", "", "write YAML to file (shorthand)")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: hdlgen import [--output file] <file.v>...")
		os.Exit(1)
	}

	var comps []importedComponent
	for _, path := range fs.Args() {
		found, err := importer.ParseFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, c := range found {
			comps = append(comps, importedComponent{path: path, comp: c})
		}
	}

	doc, err := importer.Marshal(components(comps))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding components: %v\n", err)
		os.Exit(1)
	}
	if *output == "" {
		_, _ = os.Stdout.Write(doc)
		return
	}
	if err := os.WriteFile(*output, doc, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *output, err)
		os.Exit(1)
	}
	for _, c := range comps {
		fmt.Fprintf(os.Stderr, "%s: %s\n", c.path, importer.Summary(c.comp))
	}
}

type importedComponent struct {
	path string
	comp design.Component
}

func components(list []importedComponent) []design.Component {
	out := make([]design.Component, 0, len(list))
	for _, c := range list {
		out = append(out, c.comp)
	}
	return out
}

func newLogger(verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core)
}
