/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/pcapbend/pkg/edit"
	"github.com/ssargent/pcapbend/pkg/store"
)

// editCmd represents the edit command
var editCmd = &cobra.Command{
	Use:   "edit <file>",
	Short: "Apply edit operations to a capture and write the result",
	Long: `Apply edit operations to a pcapng capture in memory and write the edited
capture to a new file. Operations run in the order given:

  remove:I          delete packet I
  swap:I:J          exchange packets I and J
  move:FROM:TO      move packet FROM to position TO
  dup:I             insert a copy of packet I after it
  truncate:I:N      keep the first N captured bytes of packet I
  comment:I:TEXT    set the comment of packet I (empty TEXT clears it)

Examples:
  pcapbend edit in.pcapng -o out.pcapng --op remove:0 --op swap:1:4
  pcapbend edit in.pcapng -o out.pcapng --op "comment:2:retransmission"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		specs, _ := cmd.Flags().GetStringArray("op")
		logger := loggerFrom(cmd)

		if output == "" {
			return fmt.Errorf("--output is required")
		}
		ops, err := edit.ParseAll(specs)
		if err != nil {
			return err
		}

		capture, err := store.OpenCapture(args[0])
		if err != nil {
			return fmt.Errorf("failed to open capture: %w", err)
		}
		result, err := edit.Apply(capture.Packets(), ops)
		if err != nil {
			return err
		}
		logger.Debug("edits applied",
			slog.Int("applied", result.Applied),
			slog.Int("packets", result.Count),
			slog.Int("fragments", capture.Packets().Fragments()))

		written, err := writeCapture(capture, output)
		if err != nil {
			return err
		}
		cmd.Printf("Applied %d edits, %d packets, %d bytes written to %s\n",
			result.Applied, result.Count, written, output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringP("output", "o", "", "Path to write the edited capture (required)")
	editCmd.Flags().StringArray("op", nil, "Edit operation, repeatable (e.g. remove:3)")
}

// writeCapture writes c next to path and renames it into place
func writeCapture(c *store.Capture, path string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := c.WriteTo(tmp)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to write capture: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to write capture: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("failed to write capture: %w", err)
	}
	return written, nil
}
