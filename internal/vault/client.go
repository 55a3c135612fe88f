// Package vault loads the engine's own secret material (market-data key,
// bridge key, SendGrid key, store DSN) from HashiCorp Vault's KV engine
// when enabled, falling back to the values already read from the process
// environment by config.Load when it is not. It never stores per-user
// broker credentials — that is explicitly out of scope for this engine.
package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/api"

	"xauusd-engine/config"
)

// Secrets is the set of values this engine may source from Vault.
type Secrets struct {
	MarketDataAPIKey string
	BridgeAPIKey     string
	SendGridAPIKey   string
	StoreDatabaseURL string
}

// Client wraps the HashiCorp Vault client, caching the last successfully
// loaded secret set in memory so a transient Vault outage after startup
// doesn't take down an already-running engine.
type Client struct {
	client *api.Client
	config config.VaultConfig

	mu     sync.RWMutex
	cached *Secrets
}

// NewClient returns a disabled client when cfg.Enabled is false; callers
// still call Load on it, which simply echoes back the fallback values.
func NewClient(cfg config.VaultConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{config: cfg}, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Client{client: client, config: cfg}, nil
}

// Load returns secret values from Vault, falling back to fallback's fields
// for anything Vault doesn't have (or when Vault is disabled/unreachable).
// A read failure degrades to the cached or fallback values rather than
// aborting startup — secret loading is important but not itself the
// engine's liveness gate.
func (c *Client) Load(ctx context.Context, fallback Secrets) (Secrets, error) {
	if !c.config.Enabled {
		return fallback, nil
	}

	path := fmt.Sprintf("%s/data/%s", c.config.MountPath, c.config.SecretPath)
	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil || secret == nil || secret.Data == nil {
		if cached := c.cachedSecrets(); cached != nil {
			return *cached, nil
		}
		return fallback, fmt.Errorf("vault read failed, using fallback values: %w", err)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return fallback, fmt.Errorf("vault secret at %s has unexpected shape", path)
	}

	out := Secrets{
		MarketDataAPIKey: stringOrDefault(data, "market_data_api_key", fallback.MarketDataAPIKey),
		BridgeAPIKey:     stringOrDefault(data, "bridge_api_key", fallback.BridgeAPIKey),
		SendGridAPIKey:   stringOrDefault(data, "sendgrid_api_key", fallback.SendGridAPIKey),
		StoreDatabaseURL: stringOrDefault(data, "store_database_url", fallback.StoreDatabaseURL),
	}

	c.mu.Lock()
	c.cached = &out
	c.mu.Unlock()

	return out, nil
}

func (c *Client) cachedSecrets() *Secrets {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cached
}

func stringOrDefault(data map[string]interface{}, key, def string) string {
	if v, ok := data[key].(string); ok && v != "" {
		return v
	}
	return def
}
