// Command sagactl starts checkouts, inspects sagas and runs a saga end to
// end in memory.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "sagactl",
		Short:         "Drive and inspect checkout sagas",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(checkoutCmd(), simulateCmd(), statusCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
