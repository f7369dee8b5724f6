package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Henry-E/auction-house/infra/sealbox"
	"github.com/Henry-E/auction-house/infra/store"
	"github.com/Henry-E/auction-house/service"
	"github.com/Henry-E/auction-house/snapshot"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <auction-id>",
	Short: "Write one snapshot of an auction from the state store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.Store.Dir, store.Options{})
		if err != nil {
			return err
		}
		defer st.Close()

		svc, err := service.New(service.Options{Store: st, Opener: sealbox.Opener{}, Logger: log})
		if err != nil {
			return err
		}
		snap, err := svc.Snapshot(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		path, err := (&snapshot.Writer{Dir: cfg.Snapshot.Dir}).Write(snap)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}
