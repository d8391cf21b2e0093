package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orris-inc/gamepanel/internal/interfaces/cli/migrate"
	"github.com/orris-inc/gamepanel/internal/interfaces/cli/node"
	"github.com/orris-inc/gamepanel/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gamepanel",
		Short: "Game server panel",
		Long:  `Gamepanel manages game servers on remote nodes through the agents connected to it.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		node.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
