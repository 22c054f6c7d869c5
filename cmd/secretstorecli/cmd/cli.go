package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"

	"massnet.org/mass-secretstore/logging"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   filepath.Base(os.Args[0]),
	Short: "Command line tool for the wallet secret store",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		jww.ERROR.Println(err)
		logging.VPrint(logging.ERROR, "Command failed", logging.LogFormat{"err": err})
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile, "config file")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(checkPasswordCmd)
	rootCmd.AddCommand(changePasswordCmd)

	rootCmd.AddCommand(listAddressesCmd)
	rootCmd.AddCommand(listHDSeedsCmd)
	rootCmd.AddCommand(hdmStatusCmd)
}
