package main

import (
	"fmt"
	"github.com/spf13/pflag"
	"os"
	"viewguard/internal/di"
	"viewguard/internal/structures"
)

func main() {
	flags := &structures.CliFlags{}
	pflag.StringVarP(&flags.ConfigPath, "config", "c", "configs/viewguard.yaml", "path to the YAML config file")
	pflag.BoolVarP(&flags.DebugMode, "debug", "d", false, "mirror logs to stdout and log SQL")
	pflag.Parse()

	app, cleanup, err := di.InitApp(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "viewguard: %v\n", err)
		os.Exit(1)
	}

	runErr := app.Run()
	cleanup()
	app.Close()

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "viewguard: %v\n", runErr)
		os.Exit(1)
	}
}
