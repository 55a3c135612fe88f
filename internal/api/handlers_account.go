package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"xauusd-engine/internal/apierr"
	"xauusd-engine/internal/store"
)

type upsertTradingAccountRequest struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Provider string  `json:"provider"`
	Balance  float64 `json:"balance"`
	Equity   float64 `json:"equity"`
	Currency string  `json:"currency"`
}

func (s *Server) handleUpsertTradingAccount(ac actionContext, data json.RawMessage) (interface{}, error) {
	var req upsertTradingAccountRequest
	if err := bindData(data, &req); err != nil {
		return nil, err
	}
	if ac.userID == "" {
		return nil, apierr.New(apierr.ValidationFailure, "authentication required")
	}
	if req.Label == "" || req.Provider == "" {
		return nil, apierr.New(apierr.ValidationFailure, "label and provider are required")
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	account := &store.TradingAccount{
		ID:        id,
		UserID:    ac.userID,
		Label:     req.Label,
		Provider:  store.Provider(req.Provider),
		Balance:   req.Balance,
		Equity:    req.Equity,
		Currency:  currency,
		UpdatedAt: time.Now(),
	}
	if err := s.repo.UpsertTradingAccount(ac.gin.Request.Context(), account); err != nil {
		return nil, apierr.Wrap(apierr.StoreFailure, "upserting trading account", err)
	}
	return account, nil
}
