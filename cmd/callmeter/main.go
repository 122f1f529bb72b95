package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "callmeter",
	Short: "Callmeter — CDR processing pipeline",
	Long:  "Callmeter ingests call detail records from telephony switches, rates them against carrier rate tables, and serves analytics over the stored record set.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/callmeter.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
