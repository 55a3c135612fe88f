package execution

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridge_ExecuteOrderSendsAPIKeyHeaderAndParsesTicket(t *testing.T) {
	var gotHeader string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-MT-Bridge-API-Key")
		assert.Equal(t, "/order/execute", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"ticket": 123456},
		})
	}))
	defer server.Close()

	sessionID := "sess-1"
	bridge := NewBridge(server.URL, "secret-key", discardLogger())
	result, err := bridge.ExecuteOrder(context.Background(), ExecuteOrderInput{
		Symbol: "XAUUSD", Side: "BUY", Lot: 0.01, OpenPrice: 2000.0, Stop: 1990.0, SessionID: &sessionID,
	})
	require.NoError(t, err)
	assert.Equal(t, "secret-key", gotHeader)
	assert.Equal(t, "123456", result.Ticket)
	assert.True(t, result.Success)

	// Request body must match the §6 bridge contract field names exactly.
	assert.Equal(t, "XAUUSD", gotBody["symbol"])
	assert.Equal(t, "BUY", gotBody["type"])
	assert.Equal(t, 0.01, gotBody["lots"])
	assert.Equal(t, 2000.0, gotBody["price"])
	assert.Equal(t, 1990.0, gotBody["stopLossPrice"])
	assert.Equal(t, float64(bridgeMagicNumber), gotBody["magicNumber"])
	assert.Equal(t, "session:sess-1", gotBody["comment"])
}

func TestBridge_CallTreatsFalseSuccessAsProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "no connection to terminal",
		})
	}))
	defer server.Close()

	bridge := NewBridge(server.URL, "secret-key", discardLogger())
	_, err := bridge.ExecuteOrder(context.Background(), ExecuteOrderInput{Symbol: "XAUUSD", Side: "BUY", Lot: 0.01, OpenPrice: 2000.0, Stop: 1990.0})
	require.Error(t, err)
}

func TestBridge_CallTreatsNonTwoXXAsProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	bridge := NewBridge(server.URL, "secret-key", discardLogger())
	_, err := bridge.GetServerTime(context.Background())
	require.Error(t, err)
}

func TestBridge_GetServerTimeParsesServerTimeField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/server/time", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"serverTime": "2026-07-31T00:00:00Z"},
		})
	}))
	defer server.Close()

	bridge := NewBridge(server.URL, "secret-key", discardLogger())
	result, err := bridge.GetServerTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-07-31T00:00:00Z", result.Time)
}

func TestBridge_NoContentIsTreatedAsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	bridge := NewBridge(server.URL, "secret-key", discardLogger())
	result, err := bridge.CloseOrder(context.Background(), "123456", nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
}
