package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/crewhq/crew/internal/graph"
	"github.com/crewhq/crew/internal/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan <plan-file>",
	Short: "Validate a plan and show its execution stages",
	Long: `Validate a YAML or JSON task plan without executing it.

Checks that every dependency refers to an existing task and that the
dependency graph has no cycles, then prints the stages the plan would
execute in, with the tasks of each stage in dispatch order.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showPlan(args[0])
	},
}

func showPlan(path string) error {
	p, err := plan.Load(path)
	if err != nil {
		return err
	}

	g := graph.New()
	if err := g.Build(p.Tasks); err != nil {
		return err
	}
	stages, err := g.Stages()
	if err != nil {
		return err
	}

	fmt.Printf("Plan: %d tasks, strategy %s\n", len(p.Tasks), p.Strategy)
	for i, stage := range stages {
		fmt.Printf("\n%s\n", color.CyanString("Stage %d", i+1))
		for _, t := range stage {
			deps := ""
			if len(t.DependsOn) > 0 {
				deps = fmt.Sprintf("  (after %v)", t.DependsOn)
			}
			fmt.Printf("  %-12s [%s, priority %d]%s\n", t.ID, t.Category, t.Priority, deps)
		}
	}
	color.Green("\n✓ Plan is valid")
	return nil
}
