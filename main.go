package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/chazu/brushwork/pkg/config"
	"github.com/docopt/docopt-go"
	"github.com/golang/glog"
)

const BrushworkVersion = "0.1.0"

const usage = `Brushwork linked group tool.

Evaluates level scripts and propagates edits between linked groups.

Usage:
    brushwork eval <script> [--config=<file>] [--json]
    brushwork update <script> <group> [--config=<file>] [--json]
    brushwork -h | --help
    brushwork --version

Options:
    -h --help        Show this screen.
    --version        Show version.
    --config=<file>  TOML settings file.
    --json           Print the result as JSON instead of a tree.`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], BrushworkVersion)
	if err != nil {
		panic(err)
	}

	configPath, _ := opts.String("--config")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "brushwork: %v\n", err)
		os.Exit(2)
	}
	initLogging(cfg.Log.Verbosity)
	defer glog.Flush()

	scriptPath, _ := opts.String("<script>")
	source, err := os.ReadFile(scriptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "brushwork: %v\n", err)
		os.Exit(2)
	}

	app := NewApp(cfg)
	var result EvalResult
	if update, _ := opts.Bool("update"); update {
		groupName, _ := opts.String("<group>")
		result = app.Update(string(source), groupName)
	} else {
		result = app.Evaluate(string(source))
	}

	if asJSON, _ := opts.Bool("--json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(result)
	} else {
		err = result.WriteTree(os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "brushwork: %v\n", err)
		os.Exit(2)
	}
	if len(result.Errors) > 0 {
		glog.Flush()
		os.Exit(1)
	}
}

// initLogging routes glog to stderr at the configured verbosity. glog reads
// its settings from the standard flag set, which docopt leaves untouched.
func initLogging(verbosity int) {
	flag.Set("logtostderr", "true")
	flag.Set("v", strconv.Itoa(verbosity))
	flag.CommandLine.Parse(nil)
}
