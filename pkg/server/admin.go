package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/dd0wney/cluso-pgpool/pkg/admin"
	"github.com/dd0wney/cluso-pgpool/pkg/ban"
	"github.com/dd0wney/cluso-pgpool/pkg/config"
	"github.com/dd0wney/cluso-pgpool/pkg/logging"
	"github.com/dd0wney/cluso-pgpool/pkg/metrics"
	"github.com/dd0wney/cluso-pgpool/pkg/stats"
)

// PostgreSQL error codes used on the admin wire
const (
	codeSyntaxError   = "42601"
	codeInternalError = "XX000"
)

// AdminServer speaks the PostgreSQL wire protocol on a TCP listener
// and answers admin commands. Any client that can issue simple-protocol
// queries (psql included) can drive it.
type AdminServer struct {
	registry *ban.Registry
	configs  *config.Manager
	stats    *stats.Collector
	metrics  *metrics.Registry
	logger   logging.Logger

	listener net.Listener
	mu       sync.Mutex
	conns    map[string]net.Conn
	closed   bool
}

// NewAdminServer creates an admin server. metrics may be nil.
func NewAdminServer(
	registry *ban.Registry,
	configs *config.Manager,
	collector *stats.Collector,
	m *metrics.Registry,
	logger logging.Logger,
) *AdminServer {
	return &AdminServer{
		registry: registry,
		configs:  configs,
		stats:    collector,
		metrics:  m,
		logger:   logger,
		conns:    make(map[string]net.Conn),
	}
}

// Listen binds the admin listener. Split from Serve so callers can
// bind on :0 and read the assigned address before serving.
func (s *AdminServer) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("admin listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.logger.Info("admin server listening", logging.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound listener address
func (s *AdminServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts admin connections until the listener is closed
func (s *AdminServer) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return fmt.Errorf("admin accept: %w", err)
		}

		go s.handleConn(conn)
	}
}

// Shutdown closes the listener and every open admin connection
func (s *AdminServer) Shutdown() {
	s.mu.Lock()
	s.closed = true
	for _, conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.logger.Info("admin server stopped")
}

func (s *AdminServer) track(id string, conn net.Conn) {
	s.mu.Lock()
	s.conns[id] = conn
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.AdminConnectionsOpen.Inc()
	}
}

func (s *AdminServer) untrack(id string) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.AdminConnectionsOpen.Dec()
	}
}

// handleConn runs the startup handshake and then the query loop
func (s *AdminServer) handleConn(conn net.Conn) {
	defer conn.Close()

	connID := uuid.NewString()
	logger := s.logger.With(logging.Conn(connID))

	backend := pgproto3.NewBackend(conn, conn)

	startup, err := s.receiveStartup(backend, conn)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			logger.Warn("admin startup failed", logging.Error(err))
		}
		return
	}

	poolName := s.resolvePool(startup.Parameters["database"])
	if poolName == "" {
		sendError(backend, codeInternalError, "no pools configured")
		return
	}

	logger = logger.With(logging.Pool(poolName))
	logger.Info("admin connection established",
		logging.String("user", startup.Parameters["user"]))

	s.track(connID, conn)
	defer s.untrack(connID)
	s.stats.ConnOpened(poolName)
	defer s.stats.ConnClosed(poolName)

	backend.Send(&pgproto3.AuthenticationOk{})
	backend.Send(&pgproto3.ParameterStatus{Name: "server_version", Value: "15.0 (cluso-pgpool)"})
	backend.Send(&pgproto3.ParameterStatus{Name: "client_encoding", Value: "UTF8"})
	backend.Send(&pgproto3.ReadyForQuery{TxStatus: 'I'})
	if err := backend.Flush(); err != nil {
		logger.Warn("admin handshake write failed", logging.Error(err))
		return
	}

	executor := admin.NewExecutor(s.registry, s.configs, s.stats, s.metrics, logger, poolName)

	for {
		msg, err := backend.Receive()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Debug("admin connection closed", logging.Error(err))
			}
			return
		}

		switch m := msg.(type) {
		case *pgproto3.Query:
			s.handleQuery(backend, executor, logger, poolName, m.String)
			if err := backend.Flush(); err != nil {
				logger.Warn("admin response write failed", logging.Error(err))
				return
			}
		case *pgproto3.Terminate:
			logger.Info("admin connection terminated")
			return
		case *pgproto3.Sync:
			backend.Send(&pgproto3.ReadyForQuery{TxStatus: 'I'})
			if err := backend.Flush(); err != nil {
				return
			}
		default:
			// Extended-protocol messages are not part of the admin surface
		}
	}
}

// receiveStartup drains SSL/GSS negotiation requests and returns the
// real startup message. Encryption is refused with the protocol's 'N'
// byte; admin traffic is expected on a trusted network.
func (s *AdminServer) receiveStartup(backend *pgproto3.Backend, conn net.Conn) (*pgproto3.StartupMessage, error) {
	for {
		msg, err := backend.ReceiveStartupMessage()
		if err != nil {
			return nil, err
		}

		switch m := msg.(type) {
		case *pgproto3.StartupMessage:
			return m, nil
		case *pgproto3.SSLRequest, *pgproto3.GSSEncRequest:
			if _, err := conn.Write([]byte{'N'}); err != nil {
				return nil, err
			}
		case *pgproto3.CancelRequest:
			return nil, fmt.Errorf("cancel request on admin connection")
		default:
			return nil, fmt.Errorf("unexpected startup message %T", m)
		}
	}
}

// resolvePool maps the startup database parameter onto a configured
// pool, falling back to the default pool for unknown names
func (s *AdminServer) resolvePool(database string) string {
	cfg := s.configs.Current()
	if _, ok := cfg.Pools[database]; ok {
		return database
	}
	return cfg.DefaultPool()
}

// handleQuery parses and executes one simple-protocol query
func (s *AdminServer) handleQuery(backend *pgproto3.Backend, executor *admin.Executor, logger logging.Logger, poolName, query string) {
	start := time.Now()
	s.stats.RecordReceived(poolName, int64(len(query)))

	if strings.TrimSpace(query) == "" {
		backend.Send(&pgproto3.EmptyQueryResponse{})
		backend.Send(&pgproto3.ReadyForQuery{TxStatus: 'I'})
		return
	}

	cmd, err := admin.Parse(query)
	if err != nil {
		logger.Warn("admin parse error",
			logging.String("query", query),
			logging.Error(err))
		s.recordCommand("PARSE", "error", start)
		sendError(backend, codeSyntaxError, err.Error())
		return
	}

	rs, err := executor.Execute(cmd)
	if err != nil {
		logger.Error("admin command failed",
			logging.String("command", cmd.Name()),
			logging.Error(err))
		s.recordCommand(cmd.Name(), "error", start)
		sendError(backend, codeInternalError, err.Error())
		return
	}

	sent := sendResultSet(backend, rs)
	s.stats.RecordSent(poolName, sent)
	s.stats.RecordQuery(poolName, time.Since(start))
	s.recordCommand(cmd.Name(), "ok", start)
	logger.Debug("admin command served",
		logging.String("command", cmd.Name()),
		logging.Int("rows", len(rs.Rows)))
}

func (s *AdminServer) recordCommand(name, status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordAdminCommand(name, status, time.Since(start))
	}
}

// sendResultSet writes a result set as RowDescription, DataRows and
// CommandComplete, then ReadyForQuery. Returns an estimate of bytes
// sent for the stats counters.
func sendResultSet(backend *pgproto3.Backend, rs *admin.ResultSet) int64 {
	var sent int64

	if len(rs.Columns) > 0 {
		fields := make([]pgproto3.FieldDescription, len(rs.Columns))
		for i, col := range rs.Columns {
			fields[i] = fieldDescription(col)
			sent += int64(len(col.Name))
		}
		backend.Send(&pgproto3.RowDescription{Fields: fields})

		for _, row := range rs.Rows {
			values := make([][]byte, len(row))
			for i, v := range row {
				values[i] = []byte(v)
				sent += int64(len(v))
			}
			backend.Send(&pgproto3.DataRow{Values: values})
		}
	}

	backend.Send(&pgproto3.CommandComplete{CommandTag: []byte(rs.Tag)})
	backend.Send(&pgproto3.ReadyForQuery{TxStatus: 'I'})
	return sent + int64(len(rs.Tag))
}

// fieldDescription maps a result column onto a wire field descriptor
func fieldDescription(col admin.Column) pgproto3.FieldDescription {
	fd := pgproto3.FieldDescription{
		Name:         []byte(col.Name),
		DataTypeOID:  25, // text
		DataTypeSize: -1,
		TypeModifier: -1,
	}
	if col.Type == admin.ColumnInt4 {
		fd.DataTypeOID = 23 // int4
		fd.DataTypeSize = 4
	}
	return fd
}

// sendError writes an ErrorResponse followed by ReadyForQuery
func sendError(backend *pgproto3.Backend, code, message string) {
	backend.Send(&pgproto3.ErrorResponse{
		Severity: "ERROR",
		Code:     code,
		Message:  message,
	})
	backend.Send(&pgproto3.ReadyForQuery{TxStatus: 'I'})
	backend.Flush()
}

// ServeUntil runs Serve and shuts down when the context is cancelled
func (s *AdminServer) ServeUntil(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.Serve() }()

	select {
	case <-ctx.Done():
		s.Shutdown()
		<-done
		return nil
	case err := <-done:
		return err
	}
}
