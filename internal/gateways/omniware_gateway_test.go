package gateway

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shri22/vmurugan-gold-trading-sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		BaseURL: "https://pay.example.com",
		Timeout: 5 * time.Second,
		Gold: Merchant{
			MerchantID: "285959",
			APIKey:     "gold-api-key",
			Salt:       "gold-salt",
			Name:       "Gold Account",
		},
		Silver: Merchant{
			MerchantID: "672621",
			APIKey:     "silver-api-key",
			Salt:       "silver-salt",
			Name:       "Silver Account",
		},
	}
}

func TestNewClient_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		client, err := NewClient(nil)
		assert.Error(t, err)
		assert.Nil(t, client)
		assert.Contains(t, err.Error(), "config is required")
	})

	t.Run("empty base url returns error", func(t *testing.T) {
		client, err := NewClient(&Config{})
		assert.Error(t, err)
		assert.Nil(t, client)
		assert.Contains(t, err.Error(), "base url")
	})

	t.Run("valid config creates client with defaults", func(t *testing.T) {
		client, err := NewClient(&Config{BaseURL: "https://pay.example.com"})
		require.NoError(t, err)
		require.NotNil(t, client)
		assert.Equal(t, 10*time.Second, client.config.Timeout)
		assert.Equal(t, 100, client.config.MaxConns)
	})
}

func TestClient_Merchant(t *testing.T) {
	client, err := NewClient(testConfig())
	require.NoError(t, err)

	t.Run("gold metal resolves gold account", func(t *testing.T) {
		m, err := client.Merchant(model.MetalGold)
		require.NoError(t, err)
		assert.Equal(t, "285959", m.MerchantID)
		assert.Equal(t, "gold-salt", m.Salt)
	})

	t.Run("silver metal resolves silver account", func(t *testing.T) {
		m, err := client.Merchant(model.MetalSilver)
		require.NoError(t, err)
		assert.Equal(t, "672621", m.MerchantID)
		assert.Equal(t, "silver-salt", m.Salt)
	})

	t.Run("unknown metal is rejected", func(t *testing.T) {
		_, err := client.Merchant(model.MetalType("PLATINUM"))
		assert.ErrorIs(t, err, ErrUnknownMerchant)
	})
}

func TestClient_NewOrderID(t *testing.T) {
	client, err := NewClient(testConfig())
	require.NoError(t, err)

	t.Run("gold order id carries metal and merchant suffix", func(t *testing.T) {
		id, err := client.NewOrderID(model.MetalGold)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(id, "ORD_"))
		assert.Contains(t, id, "_GOLD_")
		assert.True(t, strings.HasSuffix(id, "_959"))
		assert.LessOrEqual(t, len(id), 30)
	})

	t.Run("silver order id carries metal and merchant suffix", func(t *testing.T) {
		id, err := client.NewOrderID(model.MetalSilver)
		require.NoError(t, err)
		assert.Contains(t, id, "_SILVER_")
		assert.True(t, strings.HasSuffix(id, "_621"))
	})

	t.Run("metal type is recoverable from the id", func(t *testing.T) {
		id, err := client.NewOrderID(model.MetalGold)
		require.NoError(t, err)

		metal, err := model.MetalTypeFromOrderID(id)
		require.NoError(t, err)
		assert.Equal(t, model.MetalGold, metal)
	})
}

func TestClient_BuildPaymentRequest(t *testing.T) {
	client, err := NewClient(testConfig())
	require.NoError(t, err)

	req := model.OrderCreateRequest{
		MetalType: model.MetalGold,
		Amount:    5000,
		Phone:     "9876543210",
		Name:      "Ravi Kumar",
		Email:     "ravi@example.com",
		ReturnURL: "https://app.example.com/payment/return",
	}

	t.Run("signs params with the metal's merchant salt", func(t *testing.T) {
		page, err := client.BuildPaymentRequest(req, "ORD_1_GOLD_959")
		require.NoError(t, err)

		assert.Equal(t, "https://pay.example.com/v2/paymentrequest", page.URL)
		assert.Equal(t, "ORD_1_GOLD_959", page.OrderID)
		assert.Equal(t, "gold-api-key", page.Params["api_key"])
		assert.Equal(t, "5000", page.Params["amount"])

		hash := page.Params["hash"]
		require.NotEmpty(t, hash)

		unsigned := make(map[string]string, len(page.Params))
		for k, v := range page.Params {
			if k == "hash" {
				continue
			}
			unsigned[k] = v
		}
		assert.Equal(t, SignParams(unsigned, "gold-salt"), hash)
	})

	t.Run("defaults description and name when absent", func(t *testing.T) {
		bare := model.OrderCreateRequest{
			MetalType: model.MetalSilver,
			Amount:    1500,
			Phone:     "9876543210",
		}
		page, err := client.BuildPaymentRequest(bare, "ORD_2_SILVER_621")
		require.NoError(t, err)

		assert.Equal(t, "Customer", page.Params["name"])
		assert.Contains(t, page.Params["description"], "SILVER")
	})

	t.Run("unknown metal is rejected", func(t *testing.T) {
		bad := req
		bad.MetalType = model.MetalType("BRONZE")
		_, err := client.BuildPaymentRequest(bad, "ORD_3")
		assert.ErrorIs(t, err, ErrUnknownMerchant)
	})
}

func TestNormalizeTransaction(t *testing.T) {
	t.Run("single object payload", func(t *testing.T) {
		data := json.RawMessage(`{"transaction_id":"TXN001","order_id":"ORD_1_GOLD_959","amount":"5000.00","response_code":0}`)

		tx, err := normalizeTransaction(data)
		require.NoError(t, err)
		assert.Equal(t, "TXN001", tx.TransactionID)
		assert.Equal(t, "ORD_1_GOLD_959", tx.OrderID)
		assert.Equal(t, 0, tx.ResponseCode)
		assert.JSONEq(t, string(data), string(tx.Raw))
	})

	t.Run("array payload takes the first record", func(t *testing.T) {
		data := json.RawMessage(`[{"transaction_id":"TXN001","order_id":"ORD_1","response_code":1030},{"transaction_id":"TXN002","order_id":"ORD_1","response_code":0}]`)

		tx, err := normalizeTransaction(data)
		require.NoError(t, err)
		assert.Equal(t, "TXN001", tx.TransactionID)
		assert.Equal(t, 1030, tx.ResponseCode)
	})

	t.Run("empty array is an error", func(t *testing.T) {
		_, err := normalizeTransaction(json.RawMessage(`[]`))
		assert.Error(t, err)
	})

	t.Run("non-json payload is an error", func(t *testing.T) {
		_, err := normalizeTransaction(json.RawMessage(`"oops"`))
		assert.Error(t, err)
	})
}

func TestGatewayError(t *testing.T) {
	var envelope statusEnvelope
	err := json.Unmarshal([]byte(`{"error":{"code":1028,"message":"Order Not Found"}}`), &envelope)
	require.NoError(t, err)
	require.NotNil(t, envelope.Error)

	assert.Equal(t, 1028, envelope.Error.Code)
	assert.Contains(t, envelope.Error.Error(), "1028")
}
