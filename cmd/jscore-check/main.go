package main

import (
	"flag"
	"fmt"
	"os"

	"jscore/pkg/config"
	"jscore/pkg/conformance"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML configuration file")
		pattern    = flag.String("run", "", "Run only scenarios whose names match this regular expression")
		verbose    = flag.Bool("v", false, "Print passing scenarios too")
		list       = flag.Bool("list", false, "List scenarios and exit")
	)
	flag.Parse()

	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Usage: jscore-check [-config file.yaml] [-run regexp] [-v] [-list]\n")
		os.Exit(64) // Exit code 64: command line usage error
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(78) // Exit code 78: configuration error
		}
	}

	scenarios, err := conformance.Select(conformance.Scenarios(), *pattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(64)
	}

	if *list {
		for _, sc := range scenarios {
			fmt.Printf("%-36s %s\n", sc.Name, sc.Description)
		}
		return
	}

	if len(scenarios) == 0 {
		fmt.Fprintf(os.Stderr, "No scenarios match %q\n", *pattern)
		os.Exit(1)
	}

	fmt.Printf("Running %d scenarios\n", len(scenarios))
	results, stats := conformance.Run(cfg, scenarios)
	conformance.PrintResults(os.Stdout, results, *verbose)
	conformance.PrintSummary(os.Stdout, stats)
	if stats.Failed > 0 {
		os.Exit(1)
	}
}
