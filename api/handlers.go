package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"wagerbook/models"
	"wagerbook/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const requestTimeout = 10 * time.Second

// HealthFunc reports whether the backing store is reachable
type HealthFunc func(ctx context.Context) error

// Handler serves the wager operation endpoints
type Handler struct {
	operations service.OperationService
	wagers     service.WagerService
	health     HealthFunc
}

// NewHandler creates a new API handler. health may be nil.
func NewHandler(operations service.OperationService, wagers service.WagerService, health HealthFunc) *Handler {
	return &Handler{
		operations: operations,
		wagers:     wagers,
		health:     health,
	}
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type offerRequest struct {
	Currency      string `json:"currency"`
	AmountInCents int64  `json:"amountInCents"`
	Description   string `json:"description"`
}

type wagerParametersRequest struct {
	TakerHandle   *string       `json:"takerHandle"`
	ArbiterHandle *string       `json:"arbiterHandle"`
	Outcome       *string       `json:"outcome"`
	MakerOffer    *offerRequest `json:"makerOffer"`
	TakerOffer    *offerRequest `json:"takerOffer"`
	Expiration    *time.Time    `json:"expiration"`
	Maturation    *time.Time    `json:"maturation"`
}

type operationRequest struct {
	ActingUserHandle  string                  `json:"actingUserHandle"`
	OperationType     string                  `json:"operationType"`
	WagerOpaqueID     *string                 `json:"wagerOpaqueId"`
	WagerSequentialID *int64                  `json:"wagerSequentialId"`
	WagerParameters   *wagerParametersRequest `json:"wagerParameters"`
}

// decodeOperationRequest reads a request body, rejecting keys it does not know
func decodeOperationRequest(r *http.Request) (*operationRequest, error) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var body operationRequest
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after the request object")
	}
	return &body, nil
}

// toServiceRequest copies the body into the service request. The wager reference
// is passed through untouched so the validator sees exactly what the caller sent.
func (r *operationRequest) toServiceRequest() (*service.OperationRequest, error) {
	opType, err := models.ParseOperationType(r.OperationType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrUnknownOperationType, err)
	}

	req := &service.OperationRequest{
		ActingUserHandle:  r.ActingUserHandle,
		Type:              opType,
		WagerOpaqueID:     r.WagerOpaqueID,
		WagerSequentialID: r.WagerSequentialID,
	}
	if p := r.WagerParameters; p != nil {
		req.WagerParameters = &service.WagerParameters{
			TakerHandle:   p.TakerHandle,
			ArbiterHandle: p.ArbiterHandle,
			Outcome:       p.Outcome,
			MakerOffer:    p.MakerOffer.toOfferParameters(),
			TakerOffer:    p.TakerOffer.toOfferParameters(),
			Expiration:    p.Expiration,
			Maturation:    p.Maturation,
		}
	}
	return req, nil
}

func (o *offerRequest) toOfferParameters() *service.OfferParameters {
	if o == nil {
		return nil
	}
	return &service.OfferParameters{
		Currency:      models.Currency(o.Currency),
		AmountInCents: o.AmountInCents,
		Description:   o.Description,
	}
}

// SubmitOperation handles POST /api/v1/operations
func (h *Handler) SubmitOperation(w http.ResponseWriter, r *http.Request) {
	body, err := decodeOperationRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	req, err := body.toServiceRequest()
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	operation, err := h.operations.SubmitOperation(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, operation)
}

// GetOperation handles GET /api/v1/operations/{id}
func (h *Handler) GetOperation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid operation id", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	operation, err := h.wagers.GetOperation(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, operation)
}

// GetWager handles GET /api/v1/wagers/{ref}, where ref is a wager id or sequential number
func (h *Handler) GetWager(w http.ResponseWriter, r *http.Request) {
	ref, err := parseWagerReference(chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid wager reference", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	wager, err := h.wagers.GetWager(ctx, ref)
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, wager)
}

// ListWagerOperations handles GET /api/v1/wagers/{ref}/operations
func (h *Handler) ListWagerOperations(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid wager id", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	operations, err := h.wagers.ListWagerOperations(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"operations": operations,
		"count":      len(operations),
	})
}

// ListUserWagers handles GET /api/v1/users/{handle}/wagers, optionally filtered by ?status=
func (h *Handler) ListUserWagers(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")

	var status models.WagerStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := models.ParseWagerStatus(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		status = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	wagers, err := h.wagers.ListUserWagers(ctx, handle)
	if err != nil {
		writeError(w, err)
		return
	}

	if status != "" {
		filtered := make([]*models.Wager, 0, len(wagers))
		for _, wager := range wagers {
			if wager.Status == status {
				filtered = append(filtered, wager)
			}
		}
		wagers = filtered
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"wagers": wagers,
		"count":  len(wagers),
	})
}

// DeleteWager handles DELETE /api/v1/wagers/{ref}
func (h *Handler) DeleteWager(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid wager id", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.wagers.DeleteWager(ctx, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.health(ctx); err != nil {
			respondError(w, http.StatusServiceUnavailable, "database unavailable", err)
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "wagerbook",
	})
}

func parseWagerReference(raw string) (service.WagerReference, error) {
	if id, err := uuid.Parse(raw); err == nil {
		return service.OpaqueIDRef(id), nil
	}
	seq, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return service.WagerReference{}, errors.New("expected a wager id or sequential number")
	}
	return service.WagerReference{SequentialID: &seq}, nil
}

// writeError maps service errors onto HTTP statuses
func writeError(w http.ResponseWriter, err error) {
	switch {
	case service.IsValidationError(err) && !errors.Is(err, service.ErrTransactionFailed):
		respondError(w, http.StatusBadRequest, err.Error(), nil)
	case service.IsNotFoundError(err):
		respondError(w, http.StatusNotFound, err.Error(), nil)
	default:
		respondError(w, http.StatusInternalServerError, "operation failed", err)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		log.WithError(err).WithField("status", status).Warn(message)
	}

	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
