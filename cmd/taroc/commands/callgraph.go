package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taro-lang/taro/internal/loader"
	"github.com/taro-lang/taro/pkg/callgraph"
)

// callgraphCmd represents the callgraph command
var callgraphCmd = &cobra.Command{
	Use:   "callgraph <program.yaml>",
	Short: "Print the call graph with recursion and inlining annotations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		program, err := loader.LoadProgram(args[0])
		if err != nil {
			return fmt.Errorf("loading program: %w", err)
		}

		graph := callgraph.BuildWithThresholds(program, callgraph.Thresholds{
			MaxInlineStatements: cfg.MaxInlineStatements,
			MaxInlineCallSites:  cfg.MaxInlineCallSites,
		})

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, err := json.MarshalIndent(graph, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		printCallGraph(graph)
		return nil
	},
}

// printCallGraph prints the graph in human-readable form.
func printCallGraph(g *callgraph.Graph) {
	fmt.Printf("=== Call graph (entry: %s) ===\n", g.EntryPoint)
	for _, name := range g.Functions() {
		node := g.Nodes[name]

		var notes []string
		if node.IsRecursive {
			if node.RecursionDepth > 1 {
				notes = append(notes, fmt.Sprintf("mutually recursive (cycle of %d)", node.RecursionDepth))
			} else {
				notes = append(notes, "recursive")
			}
		}
		if g.IsInlineCandidate(name) {
			notes = append(notes, "inline candidate")
		}
		if node.HasIndirectCalls {
			notes = append(notes, "indirect calls")
		}

		fmt.Printf("%s (%d call sites, %d statements)", name, node.CallCount, node.Size)
		if len(notes) > 0 {
			fmt.Printf(" [%s]", strings.Join(notes, ", "))
		}
		fmt.Println()
		for _, callee := range node.Callees {
			fmt.Printf("  -> %s\n", callee)
		}
	}

	if dead := g.DeadFunctions(); len(dead) > 0 {
		fmt.Printf("\nNever called: %s\n", strings.Join(dead, ", "))
	}
}

func init() {
	callgraphCmd.Flags().BoolP("json", "j", false, "Output as JSON")
}
