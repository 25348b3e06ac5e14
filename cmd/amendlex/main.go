package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/fsnotify.v1"

	"github.com/coolbeans/amendlex/internal/apply"
	"github.com/coolbeans/amendlex/internal/config"
	"github.com/coolbeans/amendlex/internal/cst"
	"github.com/coolbeans/amendlex/internal/extract"
	"github.com/coolbeans/amendlex/internal/grammar"
	"github.com/coolbeans/amendlex/internal/semantics"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "amendlex",
		Short: "Amendatory instruction engine",
		Long: `Amendlex turns U.S. legislative amendatory instructions into
deterministic edits on statutory section text.

It parses instruction sentences against a BNF-like grammar, normalizes
them into an edit tree, and applies the edits to a section body supplied
as Markdown, reporting the post-amendment text with change provenance.`,
		Version: version,
	}

	rootCmd.PersistentFlags().String("profile", "", "YAML profile with grammarDir/defaultGrammar")
	rootCmd.PersistentFlags().String("grammar-dir", "", "directory of .bnf grammar sources")
	rootCmd.PersistentFlags().String("grammar", "", "named grammar to use (default: instruction)")

	rootCmd.AddCommand(grammarCmd())
	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(translateCmd())
	rootCmd.AddCommand(amendCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadTable resolves the active grammar from, in order: --grammar-dir (or
// the profile's grammarDir) plus --grammar (or the profile's
// defaultGrammar), falling back to the embedded instruction grammar.
func loadTable(cmd *cobra.Command) (*grammar.RuleTable, error) {
	profilePath, _ := cmd.Flags().GetString("profile")
	dir, _ := cmd.Flags().GetString("grammar-dir")
	name, _ := cmd.Flags().GetString("grammar")

	if profilePath != "" {
		p, err := config.LoadProfile(profilePath)
		if err != nil {
			return nil, err
		}
		if dir == "" {
			dir = p.GrammarDir
		}
		if name == "" {
			name = p.DefaultGrammar
		}
	}
	if name == "" {
		name = "instruction"
	}

	if dir == "" {
		return grammar.Default()
	}

	registry, err := config.NewGrammarRegistryWithDirectory(dir)
	if err != nil {
		return nil, err
	}
	table, ok := registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("grammar %q not found in %s (have: %s)", name, dir, strings.Join(registry.List(), ", "))
	}
	return table, nil
}

func readInstruction(cmd *cobra.Command) (string, error) {
	text, _ := cmd.Flags().GetString("text")
	file, _ := cmd.Flags().GetString("file")
	switch {
	case text != "":
		return text, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading instruction: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	default:
		return "", fmt.Errorf("provide an instruction via --text or --file")
	}
}

func grammarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grammar",
		Short: "Validate the active grammar and list its rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(cmd)
			if err != nil {
				return err
			}
			names := table.Names()
			fmt.Printf("Grammar OK: %d rules\n", len(names))
			for _, n := range names {
				fmt.Printf("  %s\n", n)
			}
			return nil
		},
	}
}

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse an amendatory instruction into its concrete syntax tree",
		Long: `Parse an instruction sentence against the active grammar and print
the matched range plus the concrete syntax tree.

Example:
  amendlex parse --text 'This section is amended by striking "old" and inserting "new".'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(cmd)
			if err != nil {
				return err
			}
			instruction, err := readInstruction(cmd)
			if err != nil {
				return err
			}
			parsed := cst.ParseInstructionFromLines(table, strings.Split(instruction, "\n"), 0, nil)
			if parsed == nil {
				return fmt.Errorf("instruction did not parse")
			}
			fmt.Printf("Matched [%d..+%d), lines %d-%d, end column %d\n",
				parsed.ParseOffset, len(parsed.MatchedText), parsed.StartLineIndex, parsed.EndLineIndex, parsed.EndColumn)
			printNode(parsed.AST, 0)
			return nil
		},
	}
	cmd.Flags().String("text", "", "instruction text")
	cmd.Flags().String("file", "", "file containing the instruction")
	return cmd
}

func printNode(n *cst.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.Kind == cst.NodeToken {
		fmt.Printf("%s%q [%d,%d)\n", indent, n.Text, n.Start, n.End)
		return
	}
	fmt.Printf("%s%s [%d,%d)\n", indent, n.Name, n.Start, n.End)
	for _, c := range n.Children {
		printNode(c, depth+1)
	}
}

func translateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate an instruction into its semantic edit tree (JSON)",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(cmd)
			if err != nil {
				return err
			}
			instruction, err := readInstruction(cmd)
			if err != nil {
				return err
			}
			parsed := cst.ParseInstructionFromLines(table, strings.Split(instruction, "\n"), 0, nil)
			if parsed == nil {
				return fmt.Errorf("instruction did not parse")
			}
			tree, issues := semantics.Translate(parsed.AST)
			if tree == nil {
				return fmt.Errorf("translation failed: %s", strings.Join(issues, "; "))
			}
			for _, iss := range issues {
				fmt.Fprintf(os.Stderr, "issue: %s\n", iss)
			}
			data, err := json.MarshalIndent(tree, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
	cmd.Flags().String("text", "", "instruction text")
	cmd.Flags().String("file", "", "file containing the instruction")
	return cmd
}

func runAmend(cmd *cobra.Command, instruction, sectionPath string, asJSON bool) error {
	table, err := loadTable(cmd)
	if err != nil {
		return err
	}
	section, err := os.ReadFile(sectionPath)
	if err != nil {
		return fmt.Errorf("reading section: %w", err)
	}

	parsed := cst.ParseInstructionFromLines(table, strings.Split(instruction, "\n"), 0, nil)
	if parsed == nil {
		return fmt.Errorf("instruction did not parse")
	}
	tree, issues := semantics.Translate(parsed.AST)
	if tree == nil {
		return fmt.Errorf("translation failed: %s", strings.Join(issues, "; "))
	}

	eff := apply.Amend(tree, issues, instruction, string(section))

	if asJSON {
		data, err := json.MarshalIndent(eff, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if eff.Status != apply.StatusOK {
		fmt.Fprintf(os.Stderr, "unsupported: %s\n", eff.Debug.FailureReason)
		for _, item := range eff.ApplySummary.FailedItems {
			fmt.Fprintf(os.Stderr, "  operation %d: %s (%s)\n", item.OperationIndex, item.Kind, item.Reason)
		}
		fmt.Print(eff.Segments[0].Text)
		if !strings.HasSuffix(eff.Segments[0].Text, "\n") {
			fmt.Println()
		}
		return fmt.Errorf("no edits applied")
	}

	for _, item := range eff.ApplySummary.FailedItems {
		fmt.Fprintf(os.Stderr, "operation %d failed: %s (%s)\n", item.OperationIndex, item.Kind, item.Reason)
	}
	for _, ch := range eff.Changes {
		fmt.Fprintf(os.Stderr, "%s [%d,%d): -%q +%q\n", ch.EditKind, ch.Start, ch.End, ch.Deleted, ch.Inserted)
	}
	fmt.Print(eff.Segments[0].Text)
	if !strings.HasSuffix(eff.Segments[0].Text, "\n") {
		fmt.Println()
	}
	return nil
}

func amendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amend",
		Short: "Apply an amendatory instruction to a section body",
		Long: `Apply an instruction to a section body supplied as Markdown and print
the post-amendment text. Changes are reported on stderr; --json prints
the full amendment effect instead.

Example:
  amendlex amend --text 'This section is amended by striking "old".' --section sec5.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			instruction, err := readInstruction(cmd)
			if err != nil {
				return err
			}
			sectionPath, _ := cmd.Flags().GetString("section")
			if sectionPath == "" {
				return fmt.Errorf("provide the section body via --section")
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			return runAmend(cmd, instruction, sectionPath, asJSON)
		},
	}
	cmd.Flags().String("text", "", "instruction text")
	cmd.Flags().String("file", "", "file containing the instruction")
	cmd.Flags().String("section", "", "file containing the section body (Markdown)")
	cmd.Flags().Bool("json", false, "print the full AmendmentEffect as JSON")
	return cmd
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [bill.txt]",
		Short: "Extract candidate amendatory instructions from a bill text",
		Long: `Scan a raw bill text for SECTION/SEC. boundaries, split each section
into paragraphs, and print every paragraph the recognizer classifies as
amendatory, with its section and line range.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening bill text: %w", err)
			}
			defer f.Close()

			candidates, err := extract.Stream(f)
			if err != nil {
				return err
			}
			verbose, _ := cmd.Flags().GetBool("verbose")
			for _, c := range candidates {
				fmt.Printf("%s lines %d-%d [%s]\n", c.SectionPath, c.StartLine, c.EndLine, c.Kind)
				if verbose {
					for _, line := range strings.Split(c.Text, "\n") {
						fmt.Printf("    %s\n", line)
					}
				}
			}
			fmt.Fprintf(os.Stderr, "%d candidate(s)\n", len(candidates))
			return nil
		},
	}
	cmd.Flags().Bool("verbose", false, "print each candidate's text")
	return cmd
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-apply an instruction whenever its inputs change on disk",
		Long: `Watch the instruction file and section file and re-run amend on every
write, printing the refreshed result. Useful while drafting instruction
language against a live section body.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			instructionPath, _ := cmd.Flags().GetString("file")
			sectionPath, _ := cmd.Flags().GetString("section")
			if instructionPath == "" || sectionPath == "" {
				return fmt.Errorf("provide --file and --section")
			}

			run := func() {
				data, err := os.ReadFile(instructionPath)
				if err != nil {
					fmt.Fprintf(os.Stderr, "reading instruction: %v\n", err)
					return
				}
				instruction := strings.TrimRight(string(data), "\n")
				if err := runAmend(cmd, instruction, sectionPath, false); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("creating watcher: %w", err)
			}
			defer watcher.Close()
			watched := map[string]bool{
				filepath.Clean(instructionPath): true,
				filepath.Clean(sectionPath):     true,
			}
			for dir := range map[string]bool{
				filepath.Dir(instructionPath): true,
				filepath.Dir(sectionPath):     true,
			} {
				if err := watcher.Add(dir); err != nil {
					return fmt.Errorf("watching %s: %w", dir, err)
				}
			}

			run()
			fmt.Fprintln(os.Stderr, "watching for changes (interrupt to stop)")

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			for {
				select {
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if !watched[filepath.Clean(event.Name)] {
						continue
					}
					if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
						fmt.Fprintf(os.Stderr, "--- %s changed\n", event.Name)
						run()
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
				case <-stop:
					return nil
				}
			}
		},
	}
	cmd.Flags().String("file", "", "file containing the instruction")
	cmd.Flags().String("section", "", "file containing the section body (Markdown)")
	return cmd
}
