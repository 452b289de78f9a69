/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/pcapbend/pkg/edit"
	"github.com/ssargent/pcapbend/pkg/store"
	"github.com/ssargent/pcapbend/pkg/transport"
)

// listener is implemented by senders that bind a socket before the first consumer
type listener interface {
	Listen() error
	Addr() net.Addr
}

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <file>",
	Short: "Send a capture to Wireshark over a named pipe or TCP",
	Long: `Load a capture, optionally apply edit operations, and write it to a
downstream consumer. With --pipe the capture is written to a named pipe
(created if missing) once a reader opens it; with --tcp pcapbend listens and
writes the capture to each client that connects. Without either flag the
transport from the config file is used.

Examples:
  pcapbend send capture.pcapng --pipe /tmp/pcapbend.fifo
  wireshark -k -i /tmp/pcapbend.fifo

  pcapbend send capture.pcapng --tcp 127.0.0.1:19000 --op remove:0 --count 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipePath, _ := cmd.Flags().GetString("pipe")
		tcpAddr, _ := cmd.Flags().GetString("tcp")
		specs, _ := cmd.Flags().GetStringArray("op")
		count, _ := cmd.Flags().GetInt("count")
		logger := loggerFrom(cmd)

		kind, target, err := resolveTransport(cmd, pipePath, tcpAddr)
		if err != nil {
			return err
		}
		if count < 1 {
			return fmt.Errorf("--count must be at least 1, got %d", count)
		}
		ops, err := edit.ParseAll(specs)
		if err != nil {
			return err
		}

		capture, err := store.OpenCapture(args[0])
		if err != nil {
			return fmt.Errorf("failed to open capture: %w", err)
		}
		if len(ops) > 0 {
			result, err := edit.Apply(capture.Packets(), ops)
			if err != nil {
				return err
			}
			logger.Info("edits applied", slog.Int("applied", result.Applied), slog.Int("packets", result.Count))
		}

		newSender := transport.New
		if container != nil {
			newSender = container.GetSenderFactory()
		}
		sender, err := newSender(kind, target)
		if err != nil {
			return err
		}
		if closer, ok := sender.(io.Closer); ok {
			defer closer.Close()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return sendCapture(ctx, cmd, sender, capture, kind, target, count)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().String("pipe", "", "Named pipe to write to")
	sendCmd.Flags().String("tcp", "", "Address to listen on for TCP consumers")
	sendCmd.Flags().StringArray("op", nil, "Edit operation applied before sending, repeatable")
	sendCmd.Flags().Int("count", 1, "Number of consumers to serve before exiting")
	sendCmd.MarkFlagsMutuallyExclusive("pipe", "tcp")
}

// resolveTransport picks the transport from the flags, falling back to config
func resolveTransport(cmd *cobra.Command, pipePath, tcpAddr string) (string, string, error) {
	switch {
	case pipePath != "":
		return transport.KindPipe, pipePath, nil
	case tcpAddr != "":
		return transport.KindTCP, tcpAddr, nil
	}
	cfg := configFrom(cmd)
	target := cfg.Transport.Target()
	if target == "" {
		return "", "", fmt.Errorf("no transport configured: use --pipe or --tcp")
	}
	return cfg.Transport.Kind, target, nil
}

// sendCapture serves count consumers one after another
func sendCapture(ctx context.Context, cmd *cobra.Command, sender transport.Sender,
	capture *store.Capture, kind, target string, count int) error {
	logger := loggerFrom(cmd)

	if l, ok := sender.(listener); ok {
		if err := l.Listen(); err != nil {
			return err
		}
		target = l.Addr().String()
	}
	switch kind {
	case transport.KindPipe:
		cmd.Printf("Waiting for a reader on %s (wireshark -k -i %s)\n", target, target)
	default:
		cmd.Printf("Waiting for a consumer on %s\n", target)
	}

	for i := 0; i < count; i++ {
		if err := sender.Send(ctx, capture); err != nil {
			return fmt.Errorf("send to %s %s: %w", kind, target, err)
		}
		logger.Info("capture sent",
			slog.String("kind", kind),
			slog.String("target", target),
			slog.Int64("bytes", capture.Len()),
			slog.Int("consumer", i+1))
	}
	cmd.Printf("Sent %d bytes to %d consumer(s)\n", capture.Len(), count)
	return nil
}
