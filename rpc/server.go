package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"certchain/core"
	coreerrors "certchain/core/errors"
	"certchain/integrations/eventlog"
	"certchain/observability"
	"certchain/observability/logging"
)

const (
	jsonRPCVersion         = "2.0"
	defaultMaxRequestBytes = 1 << 20
	headerRequestID        = "X-Request-Id"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeRateLimited    = -32020

	codeValidation    = -32030
	codeAuthorization = -32031
	codeEconomic      = -32032
	codeState         = -32033
)

// EventStore lists committed events.
type EventStore interface {
	List(ctx context.Context, filter eventlog.Filter) ([]eventlog.Record, error)
}

// Config controls the server.
type Config struct {
	Auth         AuthConfig
	RateLimit    RateLimit
	MaxBodyBytes int64
	// EnableFaucet registers bank_faucet, which credits native currency to
	// the caller.
	EnableFaucet bool
	// TrustForwardedFor keys rate limits on X-Forwarded-For instead of the
	// peer address.
	TrustForwardedFor bool
}

type call struct {
	caller common.Address
	params []json.RawMessage
}

type handlerFunc func(ctx context.Context, c *call) (interface{}, error)

type method struct {
	module string
	auth   bool
	fn     handlerFunc
}

// Server exposes the ledger over JSON-RPC 2.0.
type Server struct {
	host    *core.Host
	events  EventStore
	cfg     Config
	auth    *Authenticator
	limiter *RateLimiter
	logger  *slog.Logger
	methods map[string]method
	router  chi.Router
}

// NewServer registers every method against host. events may be nil, in
// which case events_list is not served.
func NewServer(host *core.Host, events EventStore, cfg Config, logger *slog.Logger) (*Server, error) {
	if host == nil {
		return nil, errors.New("rpc: host required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxRequestBytes
	}
	s := &Server{
		host:    host,
		events:  events,
		cfg:     cfg,
		auth:    NewAuthenticator(cfg.Auth),
		limiter: NewRateLimiter(cfg.RateLimit),
		logger:  logger.With("component", "rpc"),
		methods: make(map[string]method),
	}
	s.registerCertificateMethods()
	if host.SaleEnabled() {
		s.registerSaleMethods()
	}
	s.registerBankMethods()
	if events != nil {
		s.register("events_list", "events", false, s.eventsList)
	}

	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.With(s.rateLimit).Post("/", s.handle)
	s.router = r
	return s, nil
}

func (s *Server) register(name, module string, auth bool, fn handlerFunc) {
	s.methods[name] = method{module: module, auth: auth, fn: fn}
}

// Handler returns the traced HTTP handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "certchain.rpc")
}

// Methods lists the registered method names.
func (s *Server) Methods() []string {
	out := make([]string, 0, len(s.methods))
	for name := range s.methods {
		out = append(out, name)
	}
	return out
}

type requestIDKey struct{}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(headerRequestID))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(s.clientSource(r)) {
			observability.ModuleMetrics().RecordThrottle("rpc", "rate_limit")
			w.Header().Set("Content-Type", "application/json")
			writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) clientSource(r *http.Request) string {
	if s.cfg.TrustForwardedFor {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			candidate := strings.TrimSpace(strings.Split(forwarded, ",")[0])
			if candidate != "" {
				return candidate
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var lastID uint64
	err := s.host.Query(r.Context(), func(l core.Ledger) error {
		var err error
		lastID, err = l.Certificates.LastID()
		return err
	})
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     "ok",
		"collection": s.host.Collection().Hex(),
		"lastId":     lastID,
	})
}

func writeError(w http.ResponseWriter, status int, id json.RawMessage, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", s.cfg.MaxBodyBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	m, ok := s.methods[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
		return
	}

	start := time.Now()
	code := 0
	defer func() {
		observability.ModuleMetrics().Observe(m.module, req.Method, code, time.Since(start))
	}()

	c := &call{params: req.Params}
	if m.auth {
		caller, authErr := s.auth.Caller(r)
		if authErr != nil {
			code = codeUnauthorized
			s.logger.Warn("rpc authentication failed",
				"method", req.Method,
				"request_id", requestIDFrom(r.Context()),
				"error", authErr.Error(),
				logging.MaskField("authorization", r.Header.Get("Authorization")))
			writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "unauthorized", authErr.Error())
			return
		}
		c.caller = caller
	}

	result, err := m.fn(r.Context(), c)
	if err != nil {
		status, rpcErr := s.classify(r.Context(), req.Method, err)
		code = rpcErr.Code
		writeError(w, status, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) classify(ctx context.Context, methodName string, err error) (int, *RPCError) {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return http.StatusBadRequest, rpcErr
	}
	data := ErrorData{Kind: coreerrors.KindOf(err).String(), Code: coreerrors.CodeOf(err), Reason: coreerrors.ReasonOf(err)}
	switch coreerrors.KindOf(err) {
	case coreerrors.KindValidation:
		return http.StatusBadRequest, &RPCError{Code: codeValidation, Message: data.Reason, Data: data}
	case coreerrors.KindAuthorization:
		return http.StatusForbidden, &RPCError{Code: codeAuthorization, Message: data.Reason, Data: data}
	case coreerrors.KindEconomic:
		return http.StatusPaymentRequired, &RPCError{Code: codeEconomic, Message: data.Reason, Data: data}
	case coreerrors.KindState:
		return http.StatusConflict, &RPCError{Code: codeState, Message: data.Reason, Data: data}
	}
	s.logger.Error("rpc method failed",
		"method", methodName,
		"request_id", requestIDFrom(ctx),
		"error", err.Error())
	return http.StatusInternalServerError, &RPCError{Code: codeServerError, Message: "internal error", Data: data}
}
