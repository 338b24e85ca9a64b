package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mintbay/go-mintbay-server/util"
	"github.com/spf13/cobra"
)

var outputFile string

func init() {
	keysCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default is stdout)")
	rootCmd.AddCommand(keysCmd)
}

// keysCmd generates fresh master key material for the MINTBAY_MASTER_KEY
// environment variable or for seeding a rotation
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate master key material",
	Long:  "Generate 32 bytes of master key material, base64 encoded",
	Run: func(cmd *cobra.Command, args []string) {
		material, err := util.GenerateKeyMaterial(32)
		check(err)

		if outputFile != "" {
			// fail if file already exists
			if _, err := os.Stat(outputFile); !errors.Is(err, os.ErrNotExist) {
				fmt.Printf("File already exists: %s\n", outputFile)
				os.Exit(1)
			}
			wErr := os.WriteFile(outputFile, []byte(material+"\n"), 0600)
			check(wErr)
			fmt.Printf("Output file: %s\n", outputFile)
		} else {
			fmt.Printf("\n%s\n", material)
		}
	},
}
