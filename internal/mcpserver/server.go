package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/BaeCheolHan/sari-sub000/internal/tools"
)

// Options configures the transport loop's framing and worker pool, sourced
// from internal/config at startup.
type Options struct {
	Workers             int
	QueueSize           int
	DefaultMode         string // "content-length" or "jsonl"
	ForceContentLength  bool
	StrictProtocol      bool
	ExposeInternalTools bool
}

func (o Options) normalized() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 1000
	}
	if o.DefaultMode != modeJSONL {
		o.DefaultMode = modeContentLength
	}
	return o
}

// Server drives the JSON-RPC read loop over a Transport, fanning requests
// out to a bounded worker pool ahead of internal/tools.Server's tool
// handlers, grounded on the original implementation's
// LocalSearchMCPServer.run/_worker_loop (queue.Queue + ThreadPoolExecutor)
// adapted to a Go buffered channel + goroutine pool.
type Server struct {
	opts   Options
	disp   *dispatcher
	logger *slog.Logger
}

// New builds a Server around toolsSrv, the workspace roots it reports for
// roots/list, and the env-sourced Options.
func New(toolsSrv *tools.Server, roots []string, opts Options, logger *slog.Logger) *Server {
	return newServer(&dispatcher{
		tools:          toolsSrv,
		roots:          roots,
		strictProtocol: opts.StrictProtocol,
		exposeInternal: opts.ExposeInternalTools,
	}, opts, logger)
}

// newServer is the shared constructor behind New; tests drive it directly
// with a dispatcher wrapping a fake toolSet instead of a real
// tools.Server.
func newServer(disp *dispatcher, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{opts: opts.normalized(), disp: disp, logger: logger}
}

type queuedRequest struct {
	req  rpcRequest
	mode string
}

// Run reads JSON-RPC messages from r until EOF or ctx is cancelled,
// dispatching each to the worker pool and writing responses to w framed
// per the transport's negotiated mode. It returns once every in-flight and
// already-queued request has been drained, mirroring the original
// implementation's shutdown-drains-pending-requests behavior.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	transport := NewTransport(r, w, s.opts.DefaultMode)
	queue := make(chan queuedRequest, s.opts.QueueSize)

	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for qr := range queue {
				s.respond(ctx, transport, qr)
			}
		}()
	}

	s.logger.Info("mcpserver.run.start", "mode", s.opts.DefaultMode, "workers", s.opts.Workers, "queue_size", s.opts.QueueSize)

	for {
		if ctx.Err() != nil {
			break
		}
		raw, mode, err := transport.ReadMessage()
		if err != nil {
			s.logger.Info("mcpserver.run.eof")
			break
		}
		if s.opts.ForceContentLength && mode != modeJSONL {
			mode = modeContentLength
		}

		var req rpcRequest
		if jerr := json.Unmarshal(raw, &req); jerr != nil {
			s.logger.Warn("mcpserver.run.malformed", "err", jerr)
			continue
		}

		select {
		case queue <- queuedRequest{req: req, mode: mode}:
		default:
			if !req.isNotification() {
				resp := errorResponse(req.ID, errCodeQueueFull, "Server overloaded: request queue is full. Please try again later.", nil)
				if werr := transport.WriteMessage(resp, mode); werr != nil {
					s.logger.Warn("mcpserver.run.write_overload_err", "err", werr)
				}
			}
			s.logger.Warn("mcpserver.run.queue_full")
		}
	}

	close(queue)
	wg.Wait()
	s.logger.Info("mcpserver.run.stop")
	return nil
}

func (s *Server) respond(ctx context.Context, transport *Transport, qr queuedRequest) {
	resp := s.disp.handleRequest(ctx, qr.req)
	if resp == nil {
		return
	}
	if err := transport.WriteMessage(resp, qr.mode); err != nil {
		s.logger.Warn("mcpserver.respond.write_err", "err", err, "method", qr.req.Method)
	}
}
