package api

import (
	"encoding/json"

	"xauusd-engine/internal/apierr"
)

// handleAdminEnvVariablesStatus reports which required/optional
// configuration values are present, never secret values, plus the
// configured provider type and a live reachability probe of the
// market-data upstream.
func (s *Server) handleAdminEnvVariablesStatus(ac actionContext, data json.RawMessage) (interface{}, error) {
	cfg := s.cfg
	return map[string]interface{}{
		"storeConfigured":        cfg.StoreConfig.DSN() != "",
		"marketDataConfigured":   cfg.MarketDataConfig.APIKey != "",
		"marketDataReachable":    s.market.Healthy(ac.gin.Request.Context()),
		"providerType":           cfg.ProviderConfig.Type,
		"bridgeConfigured":       cfg.ProviderConfig.BridgeURL != "" && cfg.ProviderConfig.BridgeAPIKey != "",
		"vaultEnabled":           cfg.VaultConfig.Enabled,
		"redisEnabled":           cfg.RedisConfig.Enabled,
		"sendgridConfigured":     cfg.NotificationConfig.SendGridAPIKey != "" && cfg.NotificationConfig.FromEmail != "",
		"notificationRecipient":  cfg.NotificationConfig.RecipientEmail != "",
		"authConfigured":         cfg.AuthConfig.JWTSecret != "",
	}, nil
}

func (s *Server) handleAdminListUsersOverview(ac actionContext, data json.RawMessage) (interface{}, error) {
	overview, err := s.repo.ListUsersOverview(ac.gin.Request.Context())
	if err != nil {
		return nil, apierr.Wrap(apierr.StoreFailure, "listing users overview", err)
	}
	return overview, nil
}
