package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fedledger/fedledger/src/ident"
	"github.com/spf13/cobra"
)

var (
	identKind string
	identSeed int64
)

//NewIdentCmd returns the command grouping the identifier helpers
func NewIdentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ident",
		Short: "Generate and parse entity identifiers",
	}

	cmd.PersistentFlags().Int64Var(&identSeed, "seed", 0, "Seed of the identifier generator (0 seeds from the clock)")

	generate := &cobra.Command{
		Use:   "generate FEDERATION [ORGANIZATION [USER]]",
		Short: "Create identifiers for a chain of handles",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateIdents(cmd.OutOrStdout(), ident.NewSeededGenerator(identSeed), args)
		},
	}

	parse := &cobra.Command{
		Use:   "parse IDENTIFIER",
		Short: "Parse an identifier written in any scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(identKind)
			if err != nil {
				return err
			}
			return parseIdent(cmd.OutOrStdout(), ident.NewSeededGenerator(identSeed), k, args[0])
		},
	}
	parse.Flags().StringVarP(&identKind, "kind", "k", "user", "federation, organization or user")

	cmd.AddCommand(generate, parse)

	return cmd
}

func parseKind(s string) (ident.Kind, error) {
	switch strings.ToLower(s) {
	case "federation", "f":
		return ident.Federation, nil
	case "organization", "org", "o":
		return ident.Organization, nil
	case "user", "organizationuser", "ou":
		return ident.OrganizationUser, nil
	default:
		return 0, fmt.Errorf("unknown kind %q", s)
	}
}

func generateIdents(w io.Writer, gen *ident.Generator, handles []string) error {
	var parent *ident.Identifier
	for i, h := range handles {
		id, err := gen.New(ident.Kind(i), h, parent)
		if err != nil {
			return err
		}
		printIdent(w, id)
		parent = id
	}
	return nil
}

func parseIdent(w io.Writer, gen *ident.Generator, k ident.Kind, s string) error {
	id, err := ident.Parse(k, s, gen)
	if err != nil {
		return err
	}
	printIdent(w, id)
	return nil
}

func printIdent(w io.Writer, id *ident.Identifier) {
	fmt.Fprintf(w, "%s %s (id %s)\n", id.Kind, id.Handle, id.ID)
	for s := ident.Local; s <= ident.Global; s++ {
		fmt.Fprintf(w, "  %-16s %q\n", s.String()+":", id.Format(s))
	}
	for p := id.Parent; p != nil; p = p.Parent {
		note := ""
		if p.Placeholder {
			note = " placeholder"
		}
		fmt.Fprintf(w, "  parent %s %s (id %s)%s\n", p.Kind, p.Handle, p.ID, note)
	}
}
