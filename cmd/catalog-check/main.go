// Command catalog-check loads a species catalog and reports dangling
// references. It exits non-zero when the catalog fails to load or has errors.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"tradecore/internal/catalog"
	"tradecore/internal/config"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("catalog-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		dir        string
		configPath string
		strict     bool
	)
	fs.StringVar(&dir, "dir", "", "catalog directory (defaults to the configured or embedded catalog)")
	fs.StringVar(&configPath, "config", "", "path to a YAML config file")
	fs.BoolVar(&strict, "strict", false, "treat warnings as failures")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if dir == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			logger.Error("load config", "error", err)
			return 1
		}
		dir = cfg.CatalogDir
	}
	lib, err := load(dir)
	if err != nil {
		logger.Error("load catalog", "dir", dir, "error", err)
		return 1
	}
	issues := lib.Validate()
	for _, issue := range issues {
		if _, err := fmt.Fprintln(stdout, issue.String()); err != nil {
			return 1
		}
	}
	source := dir
	if source == "" {
		source = "embedded"
	}
	logger.Info("catalog checked", "source", source, "species", len(lib.SpeciesNames()), "factories", len(lib.FactoryNames()), "issues", len(issues))
	if catalog.HasErrors(issues) || (strict && len(issues) > 0) {
		if _, err := fmt.Fprintln(stderr, "Catalog validation failed."); err != nil {
			return 1
		}
		return 1
	}
	if _, err := fmt.Fprintln(stdout, "Catalog validation passed."); err != nil {
		return 1
	}
	return 0
}

func load(dir string) (*catalog.Library, error) {
	if dir == "" {
		return catalog.Default()
	}
	return catalog.LoadDir(dir)
}
