package main

import "github.com/spf13/cobra"

var setCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set the value of a string key to a string",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		return s.Set(args[0], args[1])
	},
}
