package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/grainlyyy/pds-api/internal/infrastructure/chain"
	"github.com/spf13/cobra"
)

var abiCmd = &cobra.Command{
	Use:   "abi",
	Short: "Work with facet ABI documents",
}

var abiMergeCmd = &cobra.Command{
	Use:   "merge [file]",
	Short: "Print the merged ABI array for a facet document",
	Long:  `Accepts a flat ABI, a {"contracts": ...} artifact or an {"abiMap": ...} document and prints the merged, de-duplicated array.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		merged, err := chain.MergeDocument(data)
		if err != nil {
			return fmt.Errorf("merge %s: %w", args[0], err)
		}
		_, err = cmd.OutOrStdout().Write(append(merged, '\n'))
		return err
	},
}

var abiCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Parse a facet document and summarise what it exposes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		doc, err := chain.ParseDocument(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		parsed, merged, err := chain.ParseMerged(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		var entries []json.RawMessage
		if err := json.Unmarshal(merged, &entries); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "shape:   %s\n", doc.Shape)
		fmt.Fprintf(out, "facets:  %d\n", len(doc.Facets))
		fmt.Fprintf(out, "entries: %d\n", len(entries))
		fmt.Fprintf(out, "methods: %d\n", len(parsed.Methods))
		fmt.Fprintf(out, "events:  %d\n", len(parsed.Events))
		return nil
	},
}

var loginMessageCmd = &cobra.Command{
	Use:   "login-message [address] [issued-at-unix]",
	Short: "Print the message a wallet signs to log in",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var issuedAt int64
		if _, err := fmt.Sscan(args[1], &issuedAt); err != nil {
			return fmt.Errorf("invalid issued-at %q: %w", args[1], err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), chain.LoginMessage(args[0], issuedAt))
		return nil
	},
}

func init() {
	abiCmd.AddCommand(abiMergeCmd, abiCheckCmd)
	rootCmd.AddCommand(abiCmd, loginMessageCmd)
}
