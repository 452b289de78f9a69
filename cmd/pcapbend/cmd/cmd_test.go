package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/pcapbend/pkg/codec"
	"github.com/ssargent/pcapbend/pkg/config"
	"github.com/ssargent/pcapbend/pkg/di"
	"github.com/ssargent/pcapbend/pkg/store"
	"github.com/ssargent/pcapbend/pkg/transport"
)

var (
	testTime = time.Date(2024, 6, 22, 8, 0, 0, 0, time.UTC)

	payloadA = []byte{0x01, 0x02, 0x03, 0x04}
	payloadB = []byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55,
		0x86, 0xdd,
	}
	payloadC = []byte{0xc0, 0xc1, 0xc2}
)

// writeTestCapture writes a capture with one packet per payload and returns its path
func writeTestCapture(t *testing.T, dir string, payloads ...[]byte) string {
	t.Helper()
	c := store.NewCapture()
	for _, p := range payloads {
		require.NoError(t, c.Packets().Append(codec.NewEnhancedPacket(0, testTime, p)))
	}
	path := filepath.Join(dir, "in.pcapng")
	_, err := writeCapture(c, path)
	require.NoError(t, err)
	return path
}

func captureBytes(t *testing.T, c *store.Capture) []byte {
	t.Helper()
	var buf bytes.Buffer
	_, err := c.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

// writeTestConfig saves a default config so commands never read the user's
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "error"
	require.NoError(t, config.SaveConfig(cfg, path))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInfoCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeTestCapture(t, dir, payloadA, payloadB, payloadC)
	configPath := writeTestConfig(t, dir)

	out, err := execute(t, "info", path, "--format", "json", "--config", configPath)
	require.NoError(t, err)

	var report captureReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "LittleEndian", report.ByteOrder)
	assert.Equal(t, "1.0", report.Version)
	require.Len(t, report.Interfaces, 1)
	assert.Equal(t, "pcapbend0", report.Interfaces[0].Name)
	require.Len(t, report.Packets, 3)
	assert.Equal(t, "0x86dd", report.Packets[1].EtherType)
	assert.Equal(t, uint32(3), report.Packets[2].CapturedLen)
}

func TestOutputReportTable(t *testing.T) {
	dir := t.TempDir()
	capture, err := store.OpenCapture(writeTestCapture(t, dir, payloadA, payloadB))
	require.NoError(t, err)

	report, err := buildReport("in.pcapng", capture, 1)
	require.NoError(t, err)
	require.Len(t, report.Packets, 1)

	var out bytes.Buffer
	require.NoError(t, outputReportTable(&out, report))
	text := out.String()
	assert.Contains(t, text, "pcapng 1.0, LittleEndian")
	assert.Contains(t, text, "IFACE")
	assert.Contains(t, text, "pcapbend0")
	assert.Contains(t, text, "CAPLEN")

	empty, err := buildReport("empty.pcapng", store.NewCapture(), 0)
	require.NoError(t, err)
	out.Reset()
	require.NoError(t, outputReportTable(&out, empty))
	assert.Contains(t, out.String(), "No packets found")
}

func TestEditCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeTestCapture(t, dir, payloadA, payloadB, payloadC)
	out := filepath.Join(dir, "out.pcapng")
	configPath := writeTestConfig(t, dir)

	stdout, err := execute(t, "edit", in, "-o", out, "--op", "remove:0", "--op", "swap:0:1", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Applied 2 edits, 2 packets")

	edited, err := store.OpenCapture(out)
	require.NoError(t, err)
	packets := edited.Packets()
	n, err := packets.Count()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	first, err := packets.Packet(0)
	require.NoError(t, err)
	assert.Equal(t, payloadC, first.Data)
	second, err := packets.Packet(1)
	require.NoError(t, err)
	assert.Equal(t, payloadB, second.Data)

	// The input is left alone.
	original, err := store.OpenCapture(in)
	require.NoError(t, err)
	n, err = original.Packets().Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestWriteCapture(t *testing.T) {
	dir := t.TempDir()
	c := store.NewCapture()
	require.NoError(t, c.Packets().Append(codec.NewEnhancedPacket(0, testTime, payloadA)))

	path := filepath.Join(dir, "capture.pcapng")
	written, err := writeCapture(c, path)
	require.NoError(t, err)
	assert.Equal(t, c.Len(), written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, captureBytes(t, c), data)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")

	_, err = writeCapture(c, filepath.Join(dir, "missing", "capture.pcapng"))
	assert.Error(t, err)
}

// recordingSender keeps every capture it is asked to send
type recordingSender struct {
	mutex sync.Mutex
	sent  [][]byte
}

func (s *recordingSender) Send(ctx context.Context, src io.WriterTo) error {
	var buf bytes.Buffer
	if _, err := src.WriteTo(&buf); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.sent = append(s.sent, buf.Bytes())
	return nil
}

func TestSendCapture(t *testing.T) {
	c := store.NewCapture()
	require.NoError(t, c.Packets().Append(codec.NewEnhancedPacket(0, testTime, payloadB)))

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	sender := &recordingSender{}
	require.NoError(t, sendCapture(context.Background(), cmd, sender, c, transport.KindPipe, "/tmp/test.fifo", 2))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, captureBytes(t, c), sender.sent[0])
	assert.Equal(t, sender.sent[0], sender.sent[1])
	assert.Contains(t, out.String(), "wireshark -k -i /tmp/test.fifo")
	assert.Contains(t, out.String(), "to 2 consumer(s)")
}

func TestSendCapture_TCP(t *testing.T) {
	c := store.NewCapture()
	require.NoError(t, c.Packets().Append(codec.NewEnhancedPacket(0, testTime, payloadA)))
	want := captureBytes(t, c)

	sender := transport.NewTCPSender("127.0.0.1:0")
	require.NoError(t, sender.Listen())
	defer sender.Close()

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- sendCapture(ctx, cmd, sender, c, transport.KindTCP, "127.0.0.1:0", 1)
	}()

	conn, err := net.Dial("tcp", sender.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	got, err := io.ReadAll(conn)
	require.NoError(t, err)

	require.NoError(t, <-done)
	assert.Equal(t, want, got)
	assert.Contains(t, out.String(), sender.Addr().String())
}

func TestSendCommand_UsesContainerSender(t *testing.T) {
	dir := t.TempDir()
	path := writeTestCapture(t, dir, payloadA, payloadC)
	configPath := writeTestConfig(t, dir)

	sender := &recordingSender{}
	var gotKind, gotTarget string
	container := di.NewContainer()
	container.SetSenderFactory(func(kind, target string) (transport.Sender, error) {
		gotKind, gotTarget = kind, target
		return sender, nil
	})
	SetContainer(container)
	defer SetContainer(nil)

	_, err := execute(t, "send", path, "--tcp", "127.0.0.1:19999", "--config", configPath)
	require.NoError(t, err)

	assert.Equal(t, transport.KindTCP, gotKind)
	assert.Equal(t, "127.0.0.1:19999", gotTarget)
	require.Len(t, sender.sent, 1)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, raw, sender.sent[0])
}

func TestResolveTransport(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Transport.Kind = transport.KindTCP
	cfg.Transport.TCPAddr = "127.0.0.1:4000"

	cmd := &cobra.Command{}
	cmd.SetContext(context.WithValue(context.Background(), configKey, cfg))

	kind, target, err := resolveTransport(cmd, "/tmp/p.fifo", "")
	require.NoError(t, err)
	assert.Equal(t, transport.KindPipe, kind)
	assert.Equal(t, "/tmp/p.fifo", target)

	kind, target, err = resolveTransport(cmd, "", "0.0.0.0:5000")
	require.NoError(t, err)
	assert.Equal(t, transport.KindTCP, kind)
	assert.Equal(t, "0.0.0.0:5000", target)

	kind, target, err = resolveTransport(cmd, "", "")
	require.NoError(t, err)
	assert.Equal(t, transport.KindTCP, kind)
	assert.Equal(t, "127.0.0.1:4000", target)

	cfg.Transport.TCPAddr = ""
	_, _, err = resolveTransport(cmd, "", "")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	newCmd := func(args ...string) *cobra.Command {
		cmd := &cobra.Command{}
		registerRootFlags(cmd)
		require.NoError(t, cmd.ParseFlags(args))
		return cmd
	}

	cfg, err := loadConfig(newCmd("--config", configPath, "--log-format", "json"))
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	_, err = loadConfig(newCmd("--config", filepath.Join(dir, "missing.yaml")))
	assert.Error(t, err)
}

func TestApplyServeFlags(t *testing.T) {
	cmd := &cobra.Command{}
	registerServeFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--port", "9100", "--api-key", "k", "--max-sessions", "3"}))

	cfg := config.DefaultConfig()
	applyServeFlags(cmd, cfg)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "k", cfg.Server.APIKey)
	assert.Equal(t, 3, cfg.Limits.MaxSessions)
	assert.Equal(t, "127.0.0.1", cfg.Server.Bind, "unset flags keep config values")

	sc := serverConfig(cfg)
	assert.Equal(t, cfg.Limits.MaxCaptureBytes, sc.MaxCaptureBytes)
	assert.Equal(t, cfg.Transport.PipePath, sc.TransportTarget)
	assert.Equal(t, transport.KindPipe, sc.TransportKind)
}

func TestInitializeConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "nested", "config.yaml")

	cfg, created, err := initializeConfig(configPath, "/tmp/custom.fifo", false)
	require.NoError(t, err)
	require.True(t, created)
	assert.Len(t, cfg.Server.APIKey, 64)
	assert.Equal(t, "/tmp/custom.fifo", cfg.Transport.PipePath)

	loaded, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Server.APIKey, loaded.Server.APIKey)

	_, created, err = initializeConfig(configPath, "", false)
	require.NoError(t, err)
	assert.False(t, created)

	again, created, err := initializeConfig(configPath, "", true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, cfg.Server.APIKey, again.Server.APIKey)
}

func TestServeCommand_RequiresContainer(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)
	SetContainer(nil)

	_, err := execute(t, "serve", "--config", configPath)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "dependency container not initialized"))
}
