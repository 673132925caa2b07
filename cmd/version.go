package cmd

import (
	"fmt"

	"github.com/Layr-Labs/operator-state/internal/version"
	"github.com/spf13/cobra"
)

var runVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the version of operator-state",
	Run: func(cmd *cobra.Command, args []string) {
		bindCommandFlags(cmd)

		fmt.Printf("Version: %s\nCommit: %s\n", version.GetVersion(), version.GetCommit())
	},
}
