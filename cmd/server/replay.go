package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Henry-E/auction-house/infra/sealbox"
	"github.com/Henry-E/auction-house/infra/store"
	"github.com/Henry-E/auction-house/service"
)

var replayCmd = &cobra.Command{
	Use:   "replay <journal-dir> <state-dir>",
	Short: "Rebuild a state store from a journal",
	Long: `replay applies every journal record the state store in <state-dir> has not
seen yet. Pointed at an empty directory it rebuilds the whole state from
genesis, byte for byte what the live service committed.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, err := setup()
		if err != nil {
			return err
		}

		st, err := store.Open(args[1], store.Options{})
		if err != nil {
			return err
		}
		defer st.Close()

		svc, err := service.New(service.Options{Store: st, Opener: sealbox.Opener{}, Logger: log})
		if err != nil {
			return err
		}
		n, err := svc.Recover(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d records\n", n)
		return nil
	},
}
