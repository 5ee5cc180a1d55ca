package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/telemedbooking/internal/api/handlers"
	"github.com/zatekoja/telemedbooking/internal/application/services"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
)

type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) GetWallet(ctx context.Context, userID string) (*entities.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

func (m *MockWalletService) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]*entities.WalletTransaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]*entities.WalletTransaction), args.Error(1)
}

func (m *MockWalletService) Credit(ctx context.Context, userID string, amount int64, description string, actor services.Actor) (*entities.WalletTransaction, error) {
	args := m.Called(ctx, userID, amount, description, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.WalletTransaction), args.Error(1)
}

func TestWalletHandler_GetMyWallet(t *testing.T) {
	mockService := new(MockWalletService)
	handler := handlers.NewWalletHandler(mockService)

	mockService.On("GetWallet", mock.Anything, patient.UserID).Return(&entities.Wallet{UserID: patient.UserID, Balance: 500000}, nil)

	w := httptest.NewRecorder()
	handler.GetMyWallet(w, authed(httptest.NewRequest("GET", "/api/wallets/me", nil), patient))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"balance":500000`)
}

func TestWalletHandler_ListMyTransactions(t *testing.T) {
	mockService := new(MockWalletService)
	handler := handlers.NewWalletHandler(mockService)

	mockService.On("ListTransactions", mock.Anything, patient.UserID, 5, 10).Return([]*entities.WalletTransaction{}, nil)

	w := httptest.NewRecorder()
	handler.ListMyTransactions(w, authed(httptest.NewRequest("GET", "/api/wallets/me/transactions?limit=5&offset=10", nil), patient))
	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)

	w = httptest.NewRecorder()
	handler.ListMyTransactions(w, authed(httptest.NewRequest("GET", "/api/wallets/me/transactions?limit=-1", nil), patient))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWalletHandler_Credit(t *testing.T) {
	t.Run("manager tops up", func(t *testing.T) {
		mockService := new(MockWalletService)
		handler := handlers.NewWalletHandler(mockService)

		mockService.On("Credit", mock.Anything, "a1ba7000-0000-4000-8000-000000000001", int64(100000), "cash deposit", manager).
			Return(&entities.WalletTransaction{ID: "tx-1", Amount: 100000, TransactionTypeCode: entities.TransactionTypeTopUp}, nil)

		req := authed(httptest.NewRequest("POST", "/api/wallets/a1ba7000-0000-4000-8000-000000000001/credit", bytes.NewBufferString(`{"amount":100000,"description":"cash deposit"}`)), manager)
		req.SetPathValue("userId", "a1ba7000-0000-4000-8000-000000000001")
		w := httptest.NewRecorder()
		handler.Credit(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("patient is forbidden", func(t *testing.T) {
		mockService := new(MockWalletService)
		handler := handlers.NewWalletHandler(mockService)

		mockService.On("Credit", mock.Anything, "a1ba7000-0000-4000-8000-000000000001", int64(100000), "", patient).
			Return(nil, apperrors.NewForbiddenError("only staff can credit wallets"))

		req := authed(httptest.NewRequest("POST", "/api/wallets/a1ba7000-0000-4000-8000-000000000001/credit", bytes.NewBufferString(`{"amount":100000}`)), patient)
		req.SetPathValue("userId", "a1ba7000-0000-4000-8000-000000000001")
		w := httptest.NewRecorder()
		handler.Credit(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		handler := handlers.NewWalletHandler(new(MockWalletService))

		req := authed(httptest.NewRequest("POST", "/api/wallets/a1ba7000-0000-4000-8000-000000000001/credit", bytes.NewBufferString(`{"amount":0}`)), manager)
		req.SetPathValue("userId", "a1ba7000-0000-4000-8000-000000000001")
		w := httptest.NewRecorder()
		handler.Credit(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w)["fields"], "amount")
	})
}

type stubChecker struct{ err error }

func (s stubChecker) Ping(ctx context.Context) error { return s.err }

func TestHealthHandler(t *testing.T) {
	t.Run("all dependencies up", func(t *testing.T) {
		handler := handlers.NewHealthHandler(map[string]handlers.HealthChecker{
			"database": stubChecker{},
			"redis":    nil,
		})
		w := httptest.NewRecorder()
		handler.Health(w, httptest.NewRequest("GET", "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok"}}`, w.Body.String())
	})

	t.Run("degraded", func(t *testing.T) {
		handler := handlers.NewHealthHandler(map[string]handlers.HealthChecker{
			"database": stubChecker{},
			"redis":    stubChecker{err: errors.New("connection refused")},
		})
		w := httptest.NewRecorder()
		handler.Health(w, httptest.NewRequest("GET", "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "degraded", body["status"])
	})
}
