package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/appraiser/internal/domain"
)

// valuationRequest is the optional POST body. Every field falls back to the
// server defaults; an empty body runs the built-in scenario.
type valuationRequest struct {
	Segments         []domain.Segment   `json:"segments,omitempty"`
	PeerSymbols      []string           `json:"peer_symbols,omitempty"`
	ForecastWeights  map[string]float64 `json:"forecast_weights,omitempty"`
	PEOverride       *float64           `json:"pe_override,omitempty"`
	EVEBITDAOverride *float64           `json:"ev_ebitda_override,omitempty"`
	MonteCarloTrials int                `json:"monte_carlo_trials,omitempty"`
	RandomSeed       *int64             `json:"random_seed,omitempty"`
}

// handleRunValuation runs the engine for a symbol and returns the report.
// POST /api/valuations/{symbol} (GET runs the default scenario)
func (s *Server) handleRunValuation(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	var req valuationRequest
	if r.Method == http.MethodPost && r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	segments := req.Segments
	if len(segments) == 0 {
		segments = s.segments.SegmentsFor(symbol)
	}

	opts := s.defaultOptions
	if len(req.PeerSymbols) > 0 {
		opts.PeerSymbols = req.PeerSymbols
	} else if len(opts.PeerSymbols) == 0 {
		opts.PeerSymbols = s.segments.PeersFor(symbol)
	}
	if req.ForecastWeights != nil {
		opts.ForecastWeights = req.ForecastWeights
	}
	if req.PEOverride != nil {
		opts.PEOverride = req.PEOverride
	}
	if req.EVEBITDAOverride != nil {
		opts.EVEBITDAOverride = req.EVEBITDAOverride
	}
	if req.MonteCarloTrials > 0 {
		opts.MonteCarloTrials = req.MonteCarloTrials
	}
	if req.RandomSeed != nil {
		opts.RandomSeed = *req.RandomSeed
	}

	report, err := s.engine.Valuate(r.Context(), symbol, segments, opts)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	if s.reports != nil {
		if err := s.reports.Save(r.Context(), report); err != nil {
			s.log.Warn().Str("symbol", symbol).Err(err).Msg("Failed to store report")
		}
	}

	s.writeJSON(w, http.StatusOK, report)
}

// handleLatestReport serves the most recent stored report for a symbol.
// GET /api/valuations/{symbol}/latest
func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	report, err := s.reports.Latest(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, domain.ErrDataUnavailable) {
			s.writeError(w, http.StatusNotFound, "no stored report for "+symbol)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, report)
}

// writeEngineError maps the error taxonomy to HTTP statuses: configuration
// and assumption violations are the caller's fault, everything else is ours.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrConfiguration), errors.Is(err, domain.ErrInvalidAssumption):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
