package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_Hold_SendsIdempotencyKey(t *testing.T) {
	orderID := uuid.New()
	var gotKey, gotAuth, gotPath string
	var gotBody Request

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(Result{Reference: "ref-1"})
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL + "/", APIKey: "secret", Timeout: time.Second, RPS: 50})
	res, err := c.Hold(context.Background(), Request{
		OrderID:        orderID,
		Amount:         20000,
		Fee:            2000,
		Currency:       "RUB",
		IdempotencyKey: IdempotencyKey(orderID, OpHold),
	})
	require.NoError(t, err)
	assert.Equal(t, "ref-1", res.Reference)
	assert.Equal(t, orderID.String()+":hold", gotKey)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "/v1/escrow/hold", gotPath)
	assert.Equal(t, int64(20000), gotBody.Amount)
}

func TestHTTPClient_Declined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"card declined"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL})
	_, err := c.Refund(context.Background(), Request{OrderID: uuid.New()})
	assert.ErrorIs(t, err, ErrDeclined)
	assert.Contains(t, err.Error(), "card declined")
	assert.False(t, IsTimeout(err))
}

func TestHTTPClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Release(ctx, Request{OrderID: uuid.New()})
	assert.True(t, IsTimeout(err), "got %v", err)
}

func TestHTTPClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(HTTPConfig{BaseURL: srv.URL}).Hold(context.Background(), Request{OrderID: uuid.New()})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDeclined))
	assert.Contains(t, err.Error(), "500")
}

func TestSandbox_IdempotentByKey(t *testing.T) {
	s := NewSandbox()
	orderID := uuid.New()
	req := Request{OrderID: orderID, Amount: 100, IdempotencyKey: IdempotencyKey(orderID, OpHold)}

	first, err := s.Hold(context.Background(), req)
	require.NoError(t, err)
	second, err := s.Hold(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, s.Calls(OpHold))
	assert.Equal(t, 1, s.Effects(OpHold))
	assert.Equal(t, 0, s.Effects(OpRelease))
}

func TestSandbox_FailNextAndDelay(t *testing.T) {
	s := NewSandbox()
	s.FailNext(OpRefund, ErrDeclined)

	_, err := s.Refund(context.Background(), Request{OrderID: uuid.New()})
	assert.ErrorIs(t, err, ErrDeclined)

	s.Delay = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.Refund(ctx, Request{OrderID: uuid.New()})
	assert.True(t, IsTimeout(err))
}
