package http

import (
	"net/http"
	"strings"

	"cricketpay/internal/core"
	"cricketpay/internal/log"
)

// TriggerManual labels advances requested over the API.
const TriggerManual = "manual"

type (
	initRequest struct {
		AnchorDate *core.Date    `json:"anchorDate"`
		Players    []core.Player `json:"players"`
	}

	matchRequest struct {
		Kind          core.MatchKind `json:"kind"`
		Date          core.Date      `json:"date"`
		Opponent      string         `json:"opponent"`
		Venue         string         `json:"venue"`
		Participants  []string       `json:"participants"`
		GroundCost    float64        `json:"groundCost"`
		CafeteriaCost float64        `json:"cafeteriaCost"`
	}

	settleRequest struct {
		Paid *bool `json:"paid"`
	}

	paymentRequest struct {
		AmountPaid *float64 `json:"amountPaid"`
	}

	playersResponse struct {
		Players []core.Player `json:"players"`
	}
)

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context(), pathParam(r, "ledger"))
	if err != nil {
		DomainError(r, err, log.OpRead).Write(w)
		return
	}
	NewJSONResponse().Header("ETag", etag(snap.Version)).Body(snap).Write(w)
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	var req initRequest
	if err := DecodeJSON(w, r, &req, true); err != nil {
		BadRequestError(r, err.Error()).Write(w)
		return
	}

	anchor := core.UpcomingSaturday(s.now())
	if req.AnchorDate != nil {
		anchor = *req.AnchorDate
	}

	snap, err := s.ledger.Init(r.Context(), pathParam(r, "ledger"), anchor, req.Players)
	if err != nil {
		DomainError(r, err, log.OpInit).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Header("ETag", etag(snap.Version)).Body(snap).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.ledger.Summary(r.Context(), pathParam(r, "ledger"))
	if err != nil {
		DomainError(r, err, log.OpRead).Write(w)
		return
	}
	NewJSONResponse().Header("ETag", etag(sum.Version)).Body(sum).Write(w)
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	q := sanitizeInput(r.URL.Query().Get("q"))
	players, err := s.ledger.Players(r.Context(), pathParam(r, "ledger"), q)
	if err != nil {
		DomainError(r, err, log.OpRead).Write(w)
		return
	}
	NewJSONResponse().Body(playersResponse{Players: players}).Write(w)
}

func (s *Server) handlePlayerSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.ledger.PlayerSummary(r.Context(), pathParam(r, "ledger"), pathParam(r, "playerID"))
	if err != nil {
		DomainError(r, err, log.OpRead).Write(w)
		return
	}
	NewJSONResponse().Body(sum).Write(w)
}

func (s *Server) handleAddPlayer(w http.ResponseWriter, r *http.Request) {
	var p core.Player
	if err := DecodeJSON(w, r, &p, false); err != nil {
		BadRequestError(r, err.Error()).Write(w)
		return
	}
	p.FirstName = sanitizeInput(p.FirstName)
	p.LastName = sanitizeInput(p.LastName)
	p.Nickname = sanitizeInput(p.Nickname)
	p.FoldedBefore = core.Date{}

	added, err := s.ledger.AddPlayer(r.Context(), pathParam(r, "ledger"), p)
	if err != nil {
		DomainError(r, err, log.OpAddPlayer).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(added).Write(w)
}

func (s *Server) handleUpdatePlayer(w http.ResponseWriter, r *http.Request) {
	var u core.PlayerUpdate
	if err := DecodeJSON(w, r, &u, false); err != nil {
		BadRequestError(r, err.Error()).Write(w)
		return
	}
	for _, f := range []*string{u.FirstName, u.LastName, u.Nickname} {
		if f != nil {
			*f = sanitizeInput(*f)
		}
	}

	p, err := s.ledger.UpdatePlayer(r.Context(), pathParam(r, "ledger"), pathParam(r, "playerID"), u)
	if err != nil {
		DomainError(r, err, log.OpUpdatePlayer).Write(w)
		return
	}
	NewJSONResponse().Body(p).Write(w)
}

func (s *Server) handleRemovePlayer(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RemovePlayer(r.Context(), pathParam(r, "ledger"), pathParam(r, "playerID")); err != nil {
		DomainError(r, err, log.OpRemovePlayer).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := DecodeJSON(w, r, &req, false); err != nil {
		BadRequestError(r, err.Error()).Write(w)
		return
	}
	if req.Paid == nil {
		BadRequestError(r, `"paid" is required`).Write(w)
		return
	}

	op := log.OpMarkUnpaid
	if *req.Paid {
		op = log.OpMarkPaid
	}
	sum, err := s.ledger.Settle(r.Context(), pathParam(r, "ledger"), pathParam(r, "playerID"), *req.Paid)
	if err != nil {
		DomainError(r, err, op).Write(w)
		return
	}
	NewJSONResponse().Body(sum).Write(w)
}

func (s *Server) handleSaveMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := DecodeJSON(w, r, &req, false); err != nil {
		BadRequestError(r, err.Error()).Write(w)
		return
	}

	m := core.Match{
		Kind:          core.MatchKind(strings.ToLower(sanitizeInput(string(req.Kind)))),
		Date:          req.Date,
		Opponent:      sanitizeInput(req.Opponent),
		Venue:         sanitizeInput(req.Venue),
		Participants:  req.Participants,
		GroundCost:    req.GroundCost,
		CafeteriaCost: req.CafeteriaCost,
	}
	saved, err := s.ledger.SaveMatch(r.Context(), pathParam(r, "ledger"), m)
	if err != nil {
		DomainError(r, err, log.OpSaveMatch).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(saved).Write(w)
}

func (s *Server) handleEditMatch(w http.ResponseWriter, r *http.Request) {
	var e core.MatchEdit
	if err := DecodeJSON(w, r, &e, false); err != nil {
		BadRequestError(r, err.Error()).Write(w)
		return
	}
	for _, f := range []*string{e.Opponent, e.Venue} {
		if f != nil {
			*f = sanitizeInput(*f)
		}
	}

	m, err := s.ledger.EditMatch(r.Context(), pathParam(r, "ledger"), pathParam(r, "matchID"), e)
	if err != nil {
		DomainError(r, err, log.OpEditMatch).Write(w)
		return
	}
	NewJSONResponse().Body(m).Write(w)
}

func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteMatch(r.Context(), pathParam(r, "ledger"), pathParam(r, "matchID")); err != nil {
		DomainError(r, err, log.OpDeleteMatch).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := DecodeJSON(w, r, &req, false); err != nil {
		BadRequestError(r, err.Error()).Write(w)
		return
	}
	if req.AmountPaid == nil {
		BadRequestError(r, `"amountPaid" is required`).Write(w)
		return
	}

	pay, err := s.ledger.RecordPayment(r.Context(), pathParam(r, "ledger"), pathParam(r, "matchID"), pathParam(r, "playerID"), *req.AmountPaid)
	if err != nil {
		DomainError(r, err, log.OpRecordPayment).Write(w)
		return
	}
	NewJSONResponse().Body(pay).Write(w)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	wk, err := s.ledger.Advance(r.Context(), pathParam(r, "ledger"), TriggerManual)
	if err != nil {
		DomainError(r, err, log.OpAdvance).Write(w)
		return
	}
	NewJSONResponse().Body(wk).Write(w)
}
