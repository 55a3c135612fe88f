package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"xauusd-engine/internal/apierr"
	"xauusd-engine/internal/auth"
)

// Canonical action names (§6).
const (
	actionExecuteTrade             = "execute_trade"
	actionCloseTrade                = "close_trade"
	actionUpdatePrices              = "update_prices"
	actionRunBotLogic               = "run_bot_logic"
	actionGetCurrentPrice           = "get_current_price_action"
	actionFetchHistoricalData       = "fetch_historical_data_action"
	actionRunBacktest               = "run_backtest_action"
	actionGetBacktestReport         = "get_backtest_report_action"
	actionListBacktests             = "list_backtests_action"
	actionProviderCloseOrder        = "provider_close_order"
	actionProviderAccountSummary    = "provider_get_account_summary"
	actionProviderOpenPositions     = "provider_list_open_positions"
	actionProviderServerTime        = "provider_get_server_time"
	actionUpsertTradingAccount      = "upsert_trading_account_action"
	actionAdminEnvVariablesStatus   = "admin_get_env_variables_status"
	actionAdminListUsersOverview    = "admin_list_users_overview"
)

// actionRequest is the §6 request envelope.
type actionRequest struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// actionContext carries the per-request collaborators a handler needs
// beyond its raw input payload.
type actionContext struct {
	gin    *gin.Context
	userID string
	admin  bool
}

// actionHandler decodes data itself (each handler knows its own request
// shape) and returns a JSON-able result or an error.
type actionHandler func(ac actionContext, data json.RawMessage) (interface{}, error)

var adminActions = map[string]bool{
	actionAdminEnvVariablesStatus: true,
	actionAdminListUsersOverview:  true,
}

func (s *Server) dispatch() map[string]actionHandler {
	return map[string]actionHandler{
		actionExecuteTrade:           s.handleExecuteTrade,
		actionCloseTrade:             s.handleCloseTrade,
		actionUpdatePrices:           s.handleUpdatePrices,
		actionRunBotLogic:            s.handleRunBotLogic,
		actionGetCurrentPrice:        s.handleGetCurrentPrice,
		actionFetchHistoricalData:    s.handleFetchHistoricalData,
		actionRunBacktest:            s.handleRunBacktest,
		actionGetBacktestReport:      s.handleGetBacktestReport,
		actionListBacktests:          s.handleListBacktests,
		actionProviderCloseOrder:     s.handleProviderCloseOrder,
		actionProviderAccountSummary: s.handleProviderAccountSummary,
		actionProviderOpenPositions:  s.handleProviderOpenPositions,
		actionProviderServerTime:     s.handleProviderServerTime,
		actionUpsertTradingAccount:   s.handleUpsertTradingAccount,
		actionAdminEnvVariablesStatus: s.handleAdminEnvVariablesStatus,
		actionAdminListUsersOverview:  s.handleAdminListUsersOverview,
	}
}

// handleAction is the single entrypoint (§4.H): decode the envelope, look
// up the named action, gate admin actions, run it, and wrap the result in
// the uniform {ok|error} envelope.
func (s *Server) handleAction(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apierr.New(apierr.ValidationFailure, "malformed request envelope"))
		return
	}

	handler, ok := s.dispatch()[req.Action]
	if !ok {
		respondErr(c, apierr.New(apierr.ValidationFailure, "unknown action: "+req.Action))
		return
	}

	ac := actionContext{gin: c, userID: auth.UserID(c), admin: auth.IsAdmin(c)}
	if adminActions[req.Action] && !ac.admin {
		respondErr(c, apierr.New(apierr.ValidationFailure, "admin access required for action: "+req.Action))
		return
	}

	result, err := handler(ac, req.Data)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": result})
}

// respondErr maps an *apierr.Error to its status code and message; any
// other error falls back to 500 with a generic message, never leaking an
// unclassified error's internals.
func respondErr(c *gin.Context, err error) {
	message := "internal error"
	if apiErr, ok := apierr.As(err); ok {
		message = apiErr.Message
	}
	c.JSON(apierr.StatusCode(err), gin.H{"error": message})
}

func bindData(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return apierr.New(apierr.ValidationFailure, "missing request data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apierr.Wrap(apierr.ValidationFailure, "malformed request data", err)
	}
	return nil
}
