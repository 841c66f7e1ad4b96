package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"
)

func newIndexCommand(baseLogger pslog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the instrument index",
	}

	var force bool
	create := &cobra.Command{
		Use:   "create",
		Short: "Create the instrument index with its mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cl, err := newBackendClient(rootLogger(baseLogger))
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			exists, err := cl.IndexExists(ctx)
			if err != nil {
				return err
			}
			if exists {
				if !force {
					return fmt.Errorf("index %s already exists (use --force to recreate)", cl.Index())
				}
				if err := cl.DeleteIndex(ctx); err != nil {
					return err
				}
			}
			if err := cl.CreateIndex(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created index %s\n", cl.Index())
			return nil
		},
	}
	create.Flags().BoolVar(&force, "force", false, "delete and recreate when the index already exists")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete the instrument index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cl, err := newBackendClient(rootLogger(baseLogger))
			if err != nil {
				return err
			}
			if err := cl.DeleteIndex(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted index %s\n", cl.Index())
			return nil
		},
	}

	cmd.AddCommand(create, del)
	return cmd
}
