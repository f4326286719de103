package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pouriaamini/kvs/internal/engine"
)

var getCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get the string value of a given string key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		value, ok, err := s.Get(args[0])
		if err != nil {
			return err
		}
		if !ok {
			return engine.ErrKeyNotFound
		}

		fmt.Println(value)
		return nil
	},
}
