package handlers

import (
	"context"
	"net/http"

	"github.com/nkiryanov/pointd/internal/handlers/middleware"
	"github.com/nkiryanov/pointd/internal/logger"
	"github.com/nkiryanov/pointd/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(pointService pointService, logger logger.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /point/{id}", handleGetBalance(pointService, logger))
	mux.Handle("GET /point/{id}/histories", handleGetHistory(pointService, logger))
	mux.Handle("PATCH /point/{id}/charge", handleCharge(pointService, logger))
	mux.Handle("PATCH /point/{id}/use", handleUse(pointService, logger))

	handler := chain(mux,
		middleware.LoggerMiddleware(logger),
		middleware.RecoverMiddleware(logger),
	)

	return handler
}

type pointService interface {
	// Get current balance. Has to return apperrors.ErrUserNotFound if user is unknown to the store
	GetBalance(ctx context.Context, userID int64) (models.Balance, error)

	// Get user transactions, oldest first
	GetHistory(ctx context.Context, userID int64) ([]models.Transaction, error)

	// Charge and Use return *apperrors.ValidationError on rejected amount
	// and apperrors.ErrTransactionFailed if writes failed and were compensated
	Charge(ctx context.Context, userID int64, amount int64) (models.Balance, error)
	Use(ctx context.Context, userID int64, amount int64) (models.Balance, error)
}
