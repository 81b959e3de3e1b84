package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/model"
	"storybook-platform/internal/infra/logging"
	"storybook-platform/internal/infra/redis"
)

const (
	defaultLedgerLimit = 20
	maxLedgerLimit     = 100
	maxBodyBytes       = 64 << 10
)

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	if errors.Is(err, domain.ErrContentRejected) {
		msg = s.localize(r, "error.content_rejected", msg)
	}
	writeError(w, code, msg)
}

// localize returns the translation of key for the caller's language, or
// fallback when there is none.
func (s *Server) localize(r *http.Request, key, fallback string, args ...any) string {
	if s.opts.Messages == nil {
		return fallback
	}
	tr := s.opts.Messages.For(r.Header.Get("Accept-Language"))
	if !tr.Has(key) {
		return fallback
	}
	return tr.T(key, args...)
}

type gateBody struct {
	Gate model.GateResult `json:"gate"`
}

func (s *Server) deny(w http.ResponseWriter, r *http.Request, g model.GateResult) {
	key := "gate." + string(g.Reason)
	if g.Reason == model.ReasonInsufficientCredits {
		g.Message = s.localize(r, key, g.Message, g.EstimatedCost)
	} else {
		g.Message = s.localize(r, key, g.Message)
	}
	writeJSON(w, http.StatusForbidden, gateBody{Gate: g})
}

func (s *Server) handleCreateStory(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	if s.limiter != nil && s.opts.CreatePerMinute > 0 {
		ok, err := s.limiter.Allow(r.Context(), redis.UserActionKey(p.UserID, "create_story"), s.opts.CreatePerMinute, time.Minute)
		if err != nil {
			logging.With(r.Context(), s.log).Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		} else if !ok {
			writeError(w, http.StatusTooManyRequests, s.localize(r, "error.rate_limited", "too many stories created, try again in a minute"))
			return
		}
	}

	var in model.StoryInput
	if !decode(w, r, &in) {
		return
	}
	story, gate, err := s.stories.Create(r.Context(), p.UserID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if story == nil {
		s.deny(w, r, *gate)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"storyId":    story.ID,
		"status":     story.Status,
		"creditCost": story.CreditCost,
	})
}

func (s *Server) handleStartStory(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	id := chi.URLParam(r, "id")
	if err := s.stories.Start(r.Context(), p.UserID, id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"jobId": id, "storyId": id})
}

func (s *Server) handleStoryStatus(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	view, err := s.stories.Status(r.Context(), p.UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetStory(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	story, err := s.stories.Get(r.Context(), p.UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

func (s *Server) handleNarrate(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	var req model.NarrationRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	res, gate, err := s.narration.Narrate(r.Context(), p.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if res == nil {
		s.deny(w, r, *gate)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type estimateRequest struct {
	Length string `json:"length"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	var req estimateRequest
	if !decode(w, r, &req) {
		return
	}
	est, err := s.gate.Estimate(r.Context(), p.UserID, req.Length)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	wallet, err := s.wallets.GetOrCreate(r.Context(), p.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entries, err := s.wallets.Ledger(r.Context(), p.UserID, defaultLedgerLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"wallet":       wallet,
		"totalCredits": wallet.TotalCredits(),
		"ledger":       entries,
	})
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultLedgerLimit
	}
	limit = min(limit, maxLedgerLimit)
	entries, err := s.wallets.Ledger(r.Context(), p.UserID, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

type creditsRequest struct {
	Credits     int    `json:"credits"`
	ReferenceID string `json:"referenceId"`
}

func (s *Server) handleAdminTopup(w http.ResponseWriter, r *http.Request) {
	var req creditsRequest
	if !decode(w, r, &req) {
		return
	}
	wallet, err := s.wallets.AddPurchased(r.Context(), chi.URLParam(r, "userId"), req.Credits, req.ReferenceID)
	s.respondWallet(w, r, wallet, err)
}

func (s *Server) handleAdminGrant(w http.ResponseWriter, r *http.Request) {
	var req creditsRequest
	if !decode(w, r, &req) {
		return
	}
	wallet, err := s.wallets.GrantMonthly(r.Context(), chi.URLParam(r, "userId"), req.Credits)
	s.respondWallet(w, r, wallet, err)
}

func (s *Server) handleAdminUpgrade(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.wallets.UpgradeToPremium(r.Context(), chi.URLParam(r, "userId"))
	s.respondWallet(w, r, wallet, err)
}

func (s *Server) handleAdminDowngrade(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.wallets.DowngradeToFree(r.Context(), chi.URLParam(r, "userId"))
	s.respondWallet(w, r, wallet, err)
}

func (s *Server) respondWallet(w http.ResponseWriter, r *http.Request, wallet *model.Wallet, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	logging.With(r.Context(), s.log).Info().Str("target", wallet.UserID).Str("path", r.URL.Path).Msg("admin wallet change")
	writeJSON(w, http.StatusOK, map[string]any{"wallet": wallet, "totalCredits": wallet.TotalCredits()})
}
