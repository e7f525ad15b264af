package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gregtusar/squeeth/pkg/models"
	"github.com/gregtusar/squeeth/pkg/payoff"
	"github.com/gregtusar/squeeth/pkg/subgraph"
	"github.com/gregtusar/squeeth/pkg/tracker"
	"github.com/sirupsen/logrus"
)

// Tracker is the part of the position tracker the API reads from.
type Tracker interface {
	Prices() (models.Prices, bool)
	Quotes() []models.Quote
	Result(account string) (*tracker.Entry, bool)
	Refresh(ctx context.Context, account string) (*tracker.Entry, error)
	Results() []tracker.Entry
	AddAccount(account string) error
	RemoveAccount(account string) error
	Accounts() []string
}

type SnapshotLister interface {
	List(ctx context.Context, account string, limit int) ([]models.Snapshot, error)
}

type Options struct {
	Port          int
	JWTSecret     string
	PayoffPoints  int
	PayoffStep    float64
	DefaultCollat float64
}

type Server struct {
	tracker   Tracker
	snapshots SnapshotLister
	logger    *logrus.Logger
	opts      Options
	http      *http.Server
}

// NewServer wires the API; snapshots may be nil when no store is configured.
func NewServer(tracker Tracker, snapshots SnapshotLister, logger *logrus.Logger, opts Options) *Server {
	if opts.DefaultCollat == 0 {
		opts.DefaultCollat = 1.5
	}
	s := &Server{
		tracker:   tracker,
		snapshots: snapshots,
		logger:    logger,
		opts:      opts,
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	authed := r.PathPrefix("/api").Subrouter()
	authed.Use(jwtMiddleware(s.opts.JWTSecret))
	authed.HandleFunc("/prices", s.handlePrices).Methods(http.MethodGet)
	authed.HandleFunc("/accounts", s.handleListAccounts).Methods(http.MethodGet)
	authed.HandleFunc("/accounts", s.handleAddAccount).Methods(http.MethodPost)
	authed.HandleFunc("/accounts/{account}", s.handleRemoveAccount).Methods(http.MethodDelete)
	authed.HandleFunc("/positions", s.handleListPositions).Methods(http.MethodGet)
	authed.HandleFunc("/positions/{account}/pnl", s.handlePnL).Methods(http.MethodGet)
	authed.HandleFunc("/positions/{account}/snapshots", s.handleSnapshots).Methods(http.MethodGet)
	authed.HandleFunc("/payoff/short", s.handleShortPayoff).Methods(http.MethodGet)
	authed.HandleFunc("/payoff/long", s.handleLongPayoff).Methods(http.MethodGet)

	return corsMiddleware(r)
}

func (s *Server) Start() error {
	s.logger.Infof("Starting API server on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, quotesReady := s.tracker.Prices()
	response := map[string]interface{}{
		"status":       "healthy",
		"quotes_ready": quotesReady,
		"timestamp":    time.Now().UTC(),
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.tracker.Quotes())
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.tracker.Accounts())
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Account string `json:"account"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.tracker.AddAccount(body.Account)
	switch {
	case errors.Is(err, tracker.ErrAlreadyTracked):
		s.writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, body)
}

func (s *Server) handleRemoveAccount(w http.ResponseWriter, r *http.Request) {
	err := s.tracker.RemoveAccount(mux.Vars(r)["account"])
	if errors.Is(err, tracker.ErrNotTracked) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.tracker.Results())
}

func (s *Server) handlePnL(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]

	if entry, ok := s.tracker.Result(account); ok && r.URL.Query().Get("refresh") != "true" {
		s.writeJSON(w, http.StatusOK, entry)
		return
	}

	entry, err := s.tracker.Refresh(r.Context(), account)
	switch {
	case errors.Is(err, subgraph.ErrPositionNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.logger.WithError(err).WithField("account", account).Error("Failed to compute PnL")
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		s.writeError(w, http.StatusNotImplemented, "snapshot store not configured")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	snapshots, err := s.snapshots.List(r.Context(), normalizeAccount(mux.Vars(r)["account"]), limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list snapshots")
		s.writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	if snapshots == nil {
		snapshots = []models.Snapshot{}
	}

	s.writeJSON(w, http.StatusOK, snapshots)
}

func (s *Server) handleShortPayoff(w http.ResponseWriter, r *http.Request) {
	params, err := s.payoffParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	curve, err := payoff.Short(params)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// JSON has no representation for Inf or NaN.
	if !curve.Finite() {
		msg := "payoff is not finite for these parameters"
		if curve.DepositValue == 0 {
			msg = "deposit value is zero for these parameters"
		}
		s.writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	s.writeJSON(w, http.StatusOK, curve)
}

func (s *Server) handleLongPayoff(w http.ResponseWriter, r *http.Request) {
	params, err := s.payoffParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	curve, err := payoff.Long(params)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !curve.Finite() {
		s.writeError(w, http.StatusUnprocessableEntity, "payoff is not finite for these parameters")
		return
	}

	s.writeJSON(w, http.StatusOK, curve)
}

// payoffParams reads curve parameters from the query string. The ETH price defaults to
// the latest tracked quote.
func (s *Server) payoffParams(r *http.Request) (payoff.Params, error) {
	q := r.URL.Query()
	p := payoff.Params{
		CollatRatio: s.opts.DefaultCollat,
		Points:      s.opts.PayoffPoints,
		Step:        s.opts.PayoffStep,
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"eth_price", &p.EthPrice},
		{"collat_ratio", &p.CollatRatio},
		{"mark", &p.Mark},
		{"index", &p.Index},
		{"mark_ratio", &p.MarkIndexRatio},
		{"squeeth_mark", &p.SqueethMark},
		{"step", &p.Step},
	}
	for _, f := range floats {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, fmt.Errorf("invalid %s: %q", f.name, v)
		}
		*f.dst = parsed
	}

	if v := q.Get("points"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("invalid points: %q", v)
		}
		p.Points = n
	}

	if p.EthPrice == 0 {
		prices, _ := s.tracker.Prices()
		if !prices.ETH.IsPositive() {
			return p, fmt.Errorf("eth_price is required until a quote is available")
		}
		p.EthPrice = prices.ETH.InexactFloat64()
	}

	return p, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
