package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/dagedit"
)

func newCheckCmd() *cobra.Command {
	var format bool

	cmd := &cobra.Command{
		Use:   "check <file|->",
		Short: "Validate an adjacency-list file",
		Long: `Parses an adjacency-list file ("label: target, target" per line), runs the
same validation as the API, and prints every problem found. Use - to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return runCheck(cmd.OutOrStdout(), text, format)
		},
	}
	cmd.Flags().BoolVar(&format, "fmt", false, "print the canonical form when the file is valid")
	return cmd
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

// runCheck writes every diagnostic for text to w and fails if there were any.
func runCheck(w io.Writer, text string, format bool) error {
	g, res := dagedit.CheckAdjacencyList(text, nil)
	if !res.IsValid {
		for _, e := range res.Errors {
			fmt.Fprintln(w, e.Message)
		}
		return fmt.Errorf("%d problem(s) found", len(res.Errors))
	}

	if format {
		out, err := dagedit.SerializeAdjacencyList(g)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}
	fmt.Fprintf(w, "ok: %d nodes, %d edges\n", len(g.Nodes), len(g.Edges))
	return nil
}
