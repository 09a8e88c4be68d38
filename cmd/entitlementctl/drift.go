package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yigit/musicschool/internal/bootstrap"
)

var (
	driftCmd = &cobra.Command{
		Use:   "drift",
		Short: "List students whose profile copy disagrees with the entitlement store",
		Args:  cobra.NoArgs,
		RunE:  cmdDrift,
	}

	repairCmd = &cobra.Command{
		Use:   "repair",
		Short: "Rewrite drifted profile copies from the entitlement store",
		Args:  cobra.NoArgs,
		RunE:  cmdRepair,
	}

	showCmd = &cobra.Command{
		Use:   "show <student-id>",
		Short: "Print one student's unlocked videos",
		Args:  cobra.ExactArgs(1),
		RunE:  cmdShow,
	}
)

func cmdDrift(cmd *cobra.Command, args []string) error {
	return withDependencies(cmd, func(ctx context.Context, deps *bootstrap.Dependencies) error {
		drifts, err := deps.Entitlements.FindDrift(ctx)
		if err != nil {
			return err
		}
		if len(drifts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no drift found")
			return nil
		}
		return printJSON(cmd.OutOrStdout(), drifts)
	})
}

func cmdRepair(cmd *cobra.Command, args []string) error {
	return withDependencies(cmd, func(ctx context.Context, deps *bootstrap.Dependencies) error {
		repaired, err := deps.Entitlements.RepairDrift(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "repaired %d student(s)\n", len(repaired))
		for _, id := range repaired {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	})
}

func cmdShow(cmd *cobra.Command, args []string) error {
	return withDependencies(cmd, func(ctx context.Context, deps *bootstrap.Dependencies) error {
		videos, err := deps.Entitlements.GetForStudent(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), videos.Ints())
	})
}
