package cmd

import (
	"fmt"
	"os"

	"github.com/cuongbtq/mediajobs/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "genctl",
	Short: "genctl submits media generation jobs and reads their notifications",
	Long: `genctl is the command-line client for the mediajobs API.

Common workflows:

  Submit a job and wait for the artifact:
    genctl submit --subject nft-42 --prompt "a cat in space" --wait

  Poll a job:
    genctl status <job-id>

  List your failed jobs:
    genctl jobs --state FAILED

  Read notifications:
    genctl notifications list
    genctl notifications read-all

Configuration:
  Flags, environment variables or $HOME/.genctl.yaml:
    GENCTL_URL          API endpoint (default: http://localhost:8080)
    GENCTL_REQUESTER    Requester and consumer id used when --requester is omitted`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			// Search config in home directory with name ".genctl"
			viper.AddConfigPath(home)
			viper.SetConfigName(".genctl")
			viper.SetConfigType("yaml")
		}
	}

	// Read environment variables that match "GENCTL_VARNAME"
	viper.SetEnvPrefix("GENCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.genctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:8080", "mediajobs API URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("requester", "r", "", "requester id, also used as the notification consumer id")
	viper.BindPFlag("requester", rootCmd.PersistentFlags().Lookup("requester"))
}

func newClient() *client.Client {
	return client.New(viper.GetString("url"))
}

func requesterID() (string, error) {
	id := viper.GetString("requester")
	if id == "" {
		return "", fmt.Errorf("requester not set: use --requester or GENCTL_REQUESTER")
	}
	return id, nil
}
