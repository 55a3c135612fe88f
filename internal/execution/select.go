package execution

import (
	"context"

	"github.com/rs/zerolog"

	"xauusd-engine/config"
	"xauusd-engine/internal/store"
)

// Select picks the execution provider named by cfg.Type. METATRADER without
// both a bridge URL and API key configured falls back to the simulator with
// a warning instead of failing startup — a missing bridge is a degraded
// mode, not a fatal one.
func Select(cfg config.ProviderConfig, repo *store.Repository, spot func(ctx context.Context) (float64, error), logger zerolog.Logger) Provider {
	switch cfg.Type {
	case "METATRADER":
		if cfg.BridgeURL == "" || cfg.BridgeAPIKey == "" {
			logger.Warn().Msg("TRADE_PROVIDER_TYPE=METATRADER but bridge URL/API key is not configured, falling back to simulated provider")
			return NewSimulated(repo, spot, logger)
		}
		return NewBridge(cfg.BridgeURL, cfg.BridgeAPIKey, logger)
	case "SIMULATED", "":
		return NewSimulated(repo, spot, logger)
	default:
		logger.Warn().Str("type", cfg.Type).Msg("unknown TRADE_PROVIDER_TYPE, falling back to simulated provider")
		return NewSimulated(repo, spot, logger)
	}
}
