package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evtelemetry/bmsbridge/bms"
	"github.com/evtelemetry/bmsbridge/canbus"
)

var decodeLive bool

var decodeCmd = &cobra.Command{
	Use:   "decode <id> <hex>",
	Short: "Decode one response frame and print its line-protocol records",
	Long: `Decode a single BMS response frame given its 29-bit identifier and payload
bytes, e.g.

  bmsbridge decode 0x14FF21D0 "00 00 C0 0D 83 FF 00 00"

Payload bytes may be separated by spaces, colons or dots.`,
	Args: cobra.ExactArgs(2),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().BoolVar(&decodeLive, "live", false, "Also print the live topic values")
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", args[0], err)
	}
	data, err := hex.DecodeString(strings.NewReplacer(" ", "", ":", "", ".", "").Replace(args[1]))
	if err != nil {
		return fmt.Errorf("invalid payload %q: %w", args[1], err)
	}
	f, err := canbus.NewFrame(uint32(id), data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	pgn, kinds, ok := bms.Lookup(f.ID)
	if !ok {
		if p, isResponse := bms.PGNOf(f.ID); isResponse {
			fmt.Fprintf(out, "%s: %s response, no decoder\n", f, p)
			return nil
		}
		fmt.Fprintf(out, "%s: no decoder\n", f)
		return nil
	}
	recs, err := bms.Decode(f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "# %s %s %v\n", f, pgn, kinds)
	for _, r := range recs {
		fmt.Fprintln(out, bms.Line(r))
		if !decodeLive {
			continue
		}
		for _, field := range r.Live() {
			fmt.Fprintf(out, "  %s = %s\n", field.Name, bms.LiveValue(field))
		}
	}
	return nil
}
