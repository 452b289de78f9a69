/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ssargent/pcapbend/pkg/codec"
	"github.com/ssargent/pcapbend/pkg/store"
)

// captureReport is the JSON form of the info command
type captureReport struct {
	File       string          `json:"file"`
	ByteOrder  string          `json:"byte_order"`
	Version    string          `json:"version"`
	Bytes      int64           `json:"bytes"`
	Interfaces []ifaceReport   `json:"interfaces"`
	Packets    []codec.Summary `json:"packets"`
}

type ifaceReport struct {
	ID       int    `json:"id"`
	Name     string `json:"name,omitempty"`
	LinkType uint16 `json:"link_type"`
	SnapLen  uint32 `json:"snap_len"`
}

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Describe a pcapng capture",
	Long: `Print the section header, interfaces and packets of a pcapng capture.

Examples:
  pcapbend info capture.pcapng
  pcapbend info capture.pcapng --format json --limit 10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		limit, _ := cmd.Flags().GetInt("limit")

		capture, err := store.OpenCapture(args[0])
		if err != nil {
			return fmt.Errorf("failed to open capture: %w", err)
		}
		report, err := buildReport(args[0], capture, limit)
		if err != nil {
			return err
		}

		switch format {
		case "json":
			return outputReportJSON(cmd.OutOrStdout(), report)
		case "table":
			return outputReportTable(cmd.OutOrStdout(), report)
		default:
			return fmt.Errorf("unknown format %q (want table or json)", format)
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().StringP("format", "f", "table", "Output format: table or json")
	infoCmd.Flags().IntP("limit", "n", 0, "Show at most this many packets (0 = all)")
}

func buildReport(file string, capture *store.Capture, limit int) (*captureReport, error) {
	section := capture.Section()
	report := &captureReport{
		File:      file,
		ByteOrder: capture.ByteOrder().String(),
		Version:   fmt.Sprintf("%d.%d", section.MajorVersion, section.MinorVersion),
		Bytes:     capture.Len(),
		Packets:   []codec.Summary{},
	}

	interfaces, err := capture.Interfaces()
	if err != nil {
		return nil, err
	}
	for id, idb := range interfaces {
		report.Interfaces = append(report.Interfaces, ifaceReport{
			ID:       id,
			Name:     idb.Name(),
			LinkType: idb.LinkType,
			SnapLen:  idb.SnapLen,
		})
	}

	it := capture.Packets().Iterator()
	defer it.Close()
	for it.Next() {
		if limit > 0 && len(report.Packets) >= limit {
			break
		}
		report.Packets = append(report.Packets, codec.Summarize(it.Index(), it.Packet()))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("failed to read packets: %w", err)
	}
	return report, nil
}

// outputReportJSON displays the report as indented JSON
func outputReportJSON(out io.Writer, report *captureReport) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// outputReportTable displays the report in table format
func outputReportTable(out io.Writer, report *captureReport) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "File:\t%s\n", report.File)
	fmt.Fprintf(w, "Format:\tpcapng %s, %s\n", report.Version, report.ByteOrder)
	fmt.Fprintf(w, "Size:\t%d bytes\n", report.Bytes)
	fmt.Fprintf(w, "Interfaces:\t%d\n", len(report.Interfaces))
	fmt.Fprintf(w, "Packets:\t%d\n", len(report.Packets))
	if err := w.Flush(); err != nil {
		return err
	}

	if len(report.Interfaces) > 0 {
		fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "IFACE\tNAME\tLINKTYPE\tSNAPLEN")
		for _, iface := range report.Interfaces {
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", iface.ID, iface.Name, iface.LinkType, iface.SnapLen)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if len(report.Packets) == 0 {
		fmt.Fprintln(out, "\nNo packets found")
		return nil
	}

	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tTIME\tIFACE\tCAPLEN\tORIGLEN\tETHERTYPE\tCOMMENT")
	for _, p := range report.Packets {
		comment := p.Comment
		if len(comment) > 40 {
			comment = comment[:37] + "..."
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%s\t%s\n",
			p.Index, p.Time, p.InterfaceID, p.CapturedLen, p.OriginalLen, p.EtherType, comment)
	}
	return w.Flush()
}
