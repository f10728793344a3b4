package main

import (
	"fmt"
	"os"

	"github.com/caldera-store/caldera/cmd/server"
	"github.com/caldera-store/caldera/config"
	"github.com/spf13/cobra"
)

func init() {
	cobra.OnInitialize(config.LoadConfig)
}

func main() {
	if err := server.Server.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
