package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func check(e error) {
	if e != nil {
		fmt.Printf("%v\n", e.Error())
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "keyctl",
	Short:   "Keyctl manages the Mintbay encryption key set",
	Long:    `Keyctl manages the Mintbay encryption key set. It generates master key material and rotates the versioned keys stored in CouchDB. The server itself never writes keys.`,
	Version: "0.1.0",
	Run: func(cmd *cobra.Command, args []string) {
		// empty
	},
}

func main() {
	Execute()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
