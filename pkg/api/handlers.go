package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/SierraSoftworks/connor"
	"github.com/go-chi/chi/v5"

	"github.com/ssargent/pcapbend/pkg/codec"
	"github.com/ssargent/pcapbend/pkg/edit"
	"github.com/ssargent/pcapbend/pkg/storage"
	"github.com/ssargent/pcapbend/pkg/store"
	"github.com/ssargent/pcapbend/pkg/transport"
)

const (
	contentTypeOctetStream = "application/octet-stream"
	contentTypePcapng      = "application/x-pcapng"

	defaultPageSize = 100
)

// Server holds the API server state
type Server struct {
	sessions SessionStore
	config   ServerConfig
	metrics  *Metrics
	logger   *slog.Logger
}

// NewServer creates a new API server
func NewServer(sessions SessionStore, config ServerConfig, metrics *Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		sessions: sessions,
		config:   config,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *Server) updateSessionStats() {
	if s.metrics != nil {
		s.metrics.UpdateSessionStats(s.sessions.Len(), s.sessions.TotalBytes())
	}
}

// session resolves the {id} URL parameter, replying 404 when it is unknown
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*storage.Session, bool) {
	session, err := s.sessions.Read(chi.URLParam(r, "id"))
	if err != nil {
		sendFailure(w, err)
		return nil, false
	}
	return session, true
}

// edit runs one packet edit under the session lock and records it
func (s *Server) edit(session *storage.Session, operation string, fn func(c *store.Capture) error) error {
	start := time.Now()
	var rebuilds int
	err := session.Edit(func(c *store.Capture) error {
		before := c.Packets().Stats().Rebuilds
		err := fn(c)
		rebuilds = c.Packets().Stats().Rebuilds - before
		return err
	})
	if s.metrics != nil {
		s.metrics.RecordEditOperation(operation, err == nil, time.Since(start))
		s.metrics.RecordIndexRebuilds(rebuilds)
	}
	if err == nil {
		s.updateSessionStats()
	}
	return err
}

// view runs fn under the session lock without counting it as an edit
func (s *Server) view(session *storage.Session, fn func(c *store.Capture) error) error {
	var rebuilds int
	err := session.View(func(c *store.Capture) error {
		before := c.Packets().Stats().Rebuilds
		err := fn(c)
		rebuilds = c.Packets().Stats().Rebuilds - before
		return err
	})
	if s.metrics != nil {
		s.metrics.RecordIndexRebuilds(rebuilds)
	}
	return err
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", store.ErrInvalidArgument, err)
	}
	return nil
}

func isOctetStream(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == contentTypeOctetStream
}

func packetIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: packet index %q", store.ErrInvalidArgument, raw)
	}
	return i, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s=%q", store.ErrInvalidArgument, name, raw)
	}
	return v, nil
}

// readBody reads the request body up to the configured capture limit
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body := r.Body
	if s.config.MaxCaptureBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.config.MaxCaptureBytes)
	}
	return io.ReadAll(body)
}

// buildPacket turns a JSON packet request into an enhanced packet for c
func buildPacket(c *store.Capture, req PacketRequest) (*codec.EnhancedPacket, error) {
	if int(req.InterfaceID) >= c.InterfaceCount() {
		return nil, fmt.Errorf("%w: interface %d of %d", store.ErrInvalidArgument, req.InterfaceID, c.InterfaceCount())
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	p := codec.NewEnhancedPacket(req.InterfaceID, ts, req.Data)
	if req.OriginalLen != 0 {
		if req.OriginalLen < p.CapturedLen {
			return nil, fmt.Errorf("%w: original length %d below captured length %d",
				store.ErrInvalidArgument, req.OriginalLen, p.CapturedLen)
		}
		p.OriginalLen = req.OriginalLen
	}
	p.SetComment(req.Comment)
	return p, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.metrics != nil {
		s.metrics.RecordHealthCheck(true)
	}
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleCreateCapture opens a session from a pcapng body. An empty body
// starts an empty capture with one Ethernet interface.
func (s *Server) handleCreateCapture(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		sendFailure(w, err)
		return
	}

	capture := store.NewCapture()
	if len(body) > 0 {
		capture, err = store.ParseCapture(bytes.NewReader(body))
		if err != nil {
			sendFailure(w, err)
			return
		}
	}

	session, err := s.sessions.Create(r.URL.Query().Get("name"), capture)
	if err != nil {
		sendFailure(w, err)
		return
	}
	s.updateSessionStats()
	s.logger.Info("capture session created",
		slog.String("id", session.ID.String()),
		slog.String("name", session.Name),
		slog.Int64("bytes", session.Bytes()))

	sendSuccess(w, session.Info())
}

func (s *Server) handleListCaptures(w http.ResponseWriter, r *http.Request) {
	sessions := s.sessions.List()
	infos := make([]storage.SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, session.Info())
	}
	sendSuccess(w, infos)
}

func (s *Server) handleGetCapture(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	info := CaptureInfo{SessionInfo: session.Info()}
	err := s.view(session, func(c *store.Capture) error {
		interfaces, err := c.Interfaces()
		if err != nil {
			return err
		}
		for id, idb := range interfaces {
			info.Interfaces = append(info.Interfaces, InterfaceInfo{
				ID:       id,
				LinkType: idb.LinkType,
				SnapLen:  idb.SnapLen,
				Name:     idb.Name(),
			})
		}
		return nil
	})
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, info)
}

func (s *Server) handleDeleteCapture(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Delete(id); err != nil {
		sendFailure(w, err)
		return
	}
	s.updateSessionStats()
	s.logger.Info("capture session deleted", slog.String("id", id))
	sendSuccess(w, map[string]string{"status": "deleted"})
}

// handleDownloadCapture streams the edited capture as a pcapng file
func (s *Server) handleDownloadCapture(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	// Serialize first so a framing error can still be reported as JSON.
	var buf bytes.Buffer
	err := s.view(session, func(c *store.Capture) error {
		if _, err := c.Packets().Count(); err != nil {
			return err
		}
		_, err := c.WriteTo(&buf)
		return err
	})
	if err != nil {
		sendFailure(w, err)
		return
	}

	w.Header().Set("Content-Type", contentTypePcapng)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", session.ID.String()+".pcapng"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleCompact(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var before, after int
	err := s.view(session, func(c *store.Capture) error {
		before = c.Packets().Fragments()
		c.Packets().Compact()
		after = c.Packets().Fragments()
		return nil
	})
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, map[string]int{"fragments_before": before, "fragments_after": after})
}

func (s *Server) handleListPackets(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		sendFailure(w, err)
		return
	}
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil {
		sendFailure(w, err)
		return
	}

	summaries := []codec.Summary{}
	err = s.view(session, func(c *store.Capture) error {
		packets := c.Packets()
		n, err := packets.Count()
		if err != nil {
			return err
		}
		for i := skip; i < n && len(summaries) < limit; i++ {
			p, err := packets.Packet(i)
			if err != nil {
				return err
			}
			summaries = append(summaries, codec.Summarize(i, p))
		}
		return nil
	})
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, summaries)
}

// handleAddPacket appends a packet, or inserts it at ?index=. The body is
// either a JSON PacketRequest or a raw enhanced packet block.
func (s *Server) handleAddPacket(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	index := -1
	if raw := r.URL.Query().Get("index"); raw != "" {
		i, err := strconv.Atoi(raw)
		if err != nil {
			sendFailure(w, fmt.Errorf("%w: index=%q", store.ErrInvalidArgument, raw))
			return
		}
		index = i
	}

	var add func(c *store.Capture) error
	if isOctetStream(r) {
		block, err := s.readBody(w, r)
		if err != nil {
			sendFailure(w, err)
			return
		}
		add = func(c *store.Capture) error {
			if index < 0 {
				return c.Packets().AppendRaw(block)
			}
			return c.Packets().InsertRaw(index, block)
		}
	} else {
		var req PacketRequest
		if err := decodeJSON(r, &req); err != nil {
			sendFailure(w, err)
			return
		}
		add = func(c *store.Capture) error {
			p, err := buildPacket(c, req)
			if err != nil {
				return err
			}
			if index < 0 {
				return c.Packets().Append(p)
			}
			return c.Packets().Insert(index, p)
		}
	}

	operation := "append"
	if index >= 0 {
		operation = "insert"
	}
	var count int
	err := s.edit(session, operation, func(c *store.Capture) error {
		if err := add(c); err != nil {
			return err
		}
		var err error
		count, err = c.Packets().Count()
		return err
	})
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, map[string]int{"count": count})
}

// handleFindPackets returns the summaries matching a connor filter
func (s *Server) handleFindPackets(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var req FindRequest
	if err := decodeJSON(r, &req); err != nil {
		sendFailure(w, err)
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultPageSize
	}

	matches := []codec.Summary{}
	err := s.view(session, func(c *store.Capture) error {
		it := c.Packets().Iterator()
		defer it.Close()

		skipped := 0
		for it.Next() && len(matches) < req.Limit {
			summary := codec.Summarize(it.Index(), it.Packet())
			ok, err := matchSummary(req.Filter, summary)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if skipped < req.Skip {
				skipped++
				continue
			}
			matches = append(matches, summary)
		}
		return it.Err()
	})
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, matches)
}

// matchSummary evaluates filter against the JSON form of a summary
func matchSummary(filter map[string]interface{}, summary codec.Summary) (bool, error) {
	if len(filter) == 0 {
		return true, nil
	}
	encoded, err := json.Marshal(summary)
	if err != nil {
		return false, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return false, err
	}
	ok, err := connor.Match(filter, doc)
	if err != nil {
		return false, fmt.Errorf("%w: filter: %w", store.ErrInvalidArgument, err)
	}
	return ok, nil
}

func (s *Server) handleGetPacket(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	i, err := packetIndex(r)
	if err != nil {
		sendFailure(w, err)
		return
	}

	var detail PacketDetail
	err = s.view(session, func(c *store.Capture) error {
		p, err := c.Packets().Packet(i)
		if err != nil {
			return err
		}
		detail = PacketDetail{Summary: codec.Summarize(i, p), Data: p.Data}
		return nil
	})
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, detail)
}

func (s *Server) handleGetPacketRaw(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	i, err := packetIndex(r)
	if err != nil {
		sendFailure(w, err)
		return
	}

	var block []byte
	err = s.view(session, func(c *store.Capture) error {
		var err error
		block, err = c.Packets().Raw(i)
		return err
	})
	if err != nil {
		sendFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", contentTypeOctetStream)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(block)
}

// handleUpdatePacket replaces a packet with a JSON PacketRequest or a raw block
func (s *Server) handleUpdatePacket(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	i, err := packetIndex(r)
	if err != nil {
		sendFailure(w, err)
		return
	}

	var update func(c *store.Capture) error
	if isOctetStream(r) {
		block, err := s.readBody(w, r)
		if err != nil {
			sendFailure(w, err)
			return
		}
		update = func(c *store.Capture) error {
			return c.Packets().UpdateRaw(i, block)
		}
	} else {
		var req PacketRequest
		if err := decodeJSON(r, &req); err != nil {
			sendFailure(w, err)
			return
		}
		update = func(c *store.Capture) error {
			p, err := buildPacket(c, req)
			if err != nil {
				return err
			}
			return c.Packets().Update(i, p)
		}
	}

	if err := s.edit(session, "update", update); err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, map[string]int{"index": i})
}

func (s *Server) handleDeletePacket(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	i, err := packetIndex(r)
	if err != nil {
		sendFailure(w, err)
		return
	}

	var count int
	err = s.edit(session, string(edit.KindRemove), func(c *store.Capture) error {
		if err := c.Packets().Remove(i); err != nil {
			return err
		}
		var err error
		count, err = c.Packets().Count()
		return err
	})
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, map[string]int{"count": count})
}

func (s *Server) handleSwapPackets(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var req SwapRequest
	if err := decodeJSON(r, &req); err != nil {
		sendFailure(w, err)
		return
	}

	err := s.edit(session, string(edit.KindSwap), func(c *store.Capture) error {
		return c.Packets().Swap(req.I, req.J)
	})
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, req)
}

func (s *Server) handleMovePacket(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var req MoveRequest
	if err := decodeJSON(r, &req); err != nil {
		sendFailure(w, err)
		return
	}

	err := s.edit(session, string(edit.KindMove), func(c *store.Capture) error {
		return c.Packets().Move(req.From, req.To)
	})
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, req)
}

// handleApplyEdits runs an edit script. The whole script is parsed before
// anything is applied; application stops at the first failing operation
// and keeps the edits before it.
func (s *Server) handleApplyEdits(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var req EditRequest
	if err := decodeJSON(r, &req); err != nil {
		sendFailure(w, err)
		return
	}
	ops, err := edit.ParseAll(req.Ops)
	if err != nil {
		sendFailure(w, err)
		return
	}

	var result edit.Result
	var failure error
	_ = session.View(func(c *store.Capture) error {
		packets := c.Packets()
		before := packets.Stats().Rebuilds
		for i, op := range ops {
			start := time.Now()
			err := edit.ApplyOne(packets, op)
			if s.metrics != nil {
				s.metrics.RecordEditOperation(string(op.Kind), err == nil, time.Since(start))
			}
			if err != nil {
				failure = &edit.ApplyError{Position: i, Op: op, Err: err}
				break
			}
			result.Applied++
		}
		result.Count, _ = packets.Count()
		result.Version = packets.Version()
		if s.metrics != nil {
			s.metrics.RecordIndexRebuilds(packets.Stats().Rebuilds - before)
		}
		return nil
	})
	if result.Applied > 0 {
		session.Touch(result.Applied)
		s.updateSessionStats()
	}

	if failure != nil {
		s.logger.Warn("edit script stopped",
			slog.String("id", session.ID.String()),
			slog.Int("applied", result.Applied),
			slog.Any("error", failure))
		sendFailure(w, failure)
		return
	}
	sendSuccess(w, result)
}

// handleSend writes the capture to a pipe or TCP consumer. It blocks until
// a consumer has read the whole capture or the request is cancelled.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	req := SendRequest{Kind: s.config.TransportKind, Target: s.config.TransportTarget}
	if r.ContentLength != 0 {
		var body SendRequest
		if err := decodeJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
			sendFailure(w, err)
			return
		}
		if body.Kind != "" {
			req.Kind = body.Kind
		}
		if body.Target != "" {
			req.Target = body.Target
		}
	}

	sender, err := transport.New(req.Kind, req.Target)
	if err != nil {
		sendFailure(w, err)
		return
	}
	if closer, ok := sender.(io.Closer); ok {
		defer closer.Close()
	}

	var written int64
	err = s.view(session, func(c *store.Capture) error {
		written = c.Len()
		return sender.Send(r.Context(), c)
	})
	if s.metrics != nil {
		s.metrics.RecordSend(req.Kind, err == nil)
	}
	if err != nil {
		s.logger.Error("send failed",
			slog.String("id", session.ID.String()),
			slog.String("kind", req.Kind),
			slog.String("target", req.Target),
			slog.Any("error", err))
		sendFailure(w, err)
		return
	}
	s.logger.Info("capture sent",
		slog.String("id", session.ID.String()),
		slog.String("kind", req.Kind),
		slog.String("target", req.Target),
		slog.Int64("bytes", written))
	sendSuccess(w, SendResult{Kind: req.Kind, Target: req.Target, Bytes: written})
}
