package merchant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxCartItems(t *testing.T) {
	free := &Merchant{Tier: TierFree}
	assert.EqualValues(t, 10, free.MaxCartItems())

	pro := &Merchant{Tier: TierPro}
	assert.EqualValues(t, 100, pro.MaxCartItems())

	// Unknown tiers get the conservative free limit.
	unknown := &Merchant{Tier: "ENTERPRISE"}
	assert.EqualValues(t, 10, unknown.MaxCartItems())
}

func TestGetMerchant(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/merchant/data", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(Merchant{
			ID:     "merch-1",
			Name:   "Test Shop",
			Tier:   TierPro,
			Status: "ACTIVE",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	m, err := c.GetMerchant(context.Background(), "merch-1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer merch-1", gotAuth)
	assert.Equal(t, "merch-1", m.ID)
	assert.Equal(t, TierPro, m.Tier)
}

func TestGetMerchant_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.GetMerchant(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetMerchant_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.GetMerchant(context.Background(), "merch-1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGetMerchant_Unreachable(t *testing.T) {
	// Closed server: connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.GetMerchant(context.Background(), "merch-1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCreateCheckoutSession(t *testing.T) {
	var got CheckoutSession
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/checkout/session", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(CheckoutAck{CheckoutURL: "https://pay.example.com/cs_1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	ack, err := c.CreateCheckoutSession(context.Background(), &CheckoutSession{
		ID:         "cs_1",
		MerchantID: "merch-1",
		Total:      1000,
		Currency:   "PKR",
		Status:     "pending",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://pay.example.com/cs_1", ack.CheckoutURL)
	assert.Equal(t, "cs_1", got.ID)
	assert.Equal(t, "merch-1", got.MerchantID)
}

func TestCreateCheckoutSession_BackendDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.CreateCheckoutSession(context.Background(), &CheckoutSession{ID: "cs_1"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGetCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "cs_1", r.URL.Query().Get("session_id"))
		require.Equal(t, "merch-1", r.URL.Query().Get("merchant_id"))
		w.Write([]byte(`{"id":"cs_1","status":"pending"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	doc, err := c.GetCheckoutSession(context.Background(), "cs_1", "merch-1")
	require.NoError(t, err)

	assert.JSONEq(t, `{"id":"cs_1","status":"pending"}`, string(doc))
}

func TestGetCheckoutSession_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.GetCheckoutSession(context.Background(), "cs_absent", "")
	assert.ErrorIs(t, err, ErrNotFound)
}
