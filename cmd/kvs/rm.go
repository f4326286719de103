package main

import "github.com/spf13/cobra"

var rmCmd = &cobra.Command{
	Use:   "rm KEY",
	Short: "Remove a given string key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		return s.Remove(args[0])
	},
}
