package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/pointd/internal/apperrors"
	"github.com/nkiryanov/pointd/internal/handlers/render"
	"github.com/nkiryanov/pointd/internal/logger"
	"github.com/nkiryanov/pointd/internal/models"
)

type balanceResponse struct {
	UserID    int64     `json:"user_id"`
	Point     int64     `json:"point"`
	UpdatedAt time.Time `json:"updated_at"`
}

type transactionResponse struct {
	ID         uuid.UUID `json:"id"`
	UserID     int64     `json:"user_id"`
	Type       string    `json:"type"`
	Amount     int64     `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Amount is a pointer so missing field and explicit zero are told apart.
// Zero reaches the service and is rejected there as a validation error.
type amountRequest struct {
	Amount *int64 `json:"amount" validate:"required"`
}

func newBalanceResponse(b models.Balance) balanceResponse {
	return balanceResponse{
		UserID:    b.UserID,
		Point:     b.Amount,
		UpdatedAt: b.LastUpdated,
	}
}

// userIDFromPath reads {id} path value. Renders error and returns false if it is not a user id
func userIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")

	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID < 0 {
		render.Error(w, render.InvalidRequestType, "User id must be a non-negative integer", http.StatusBadRequest)
		return 0, false
	}

	return userID, true
}

// renderServiceError maps service errors to responses. Unknown errors are logged and hidden from client
func renderServiceError(w http.ResponseWriter, err error, l logger.Logger) {
	var validationErr *apperrors.ValidationError

	switch {
	case errors.As(err, &validationErr):
		render.Error(w, render.ValidationErrorType, validationErr.Message, http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrUserNotFound):
		render.Error(w, render.UserNotFoundType, err.Error(), http.StatusNotFound)
	case errors.Is(err, apperrors.ErrTransactionFailed):
		render.Error(w, render.TransactionFailedType, "Point transaction was not completed", http.StatusInternalServerError)
	default:
		l.Error("Point service failed", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func handleGetBalance(pointService pointService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFromPath(w, r)
		if !ok {
			return
		}

		balance, err := pointService.GetBalance(r.Context(), userID)
		if err != nil {
			renderServiceError(w, err, l)
			return
		}

		render.JSON(w, newBalanceResponse(balance))
	})
}

func handleGetHistory(pointService pointService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFromPath(w, r)
		if !ok {
			return
		}

		history, err := pointService.GetHistory(r.Context(), userID)
		if err != nil {
			renderServiceError(w, err, l)
			return
		}

		resp := make([]transactionResponse, 0, len(history))
		for _, t := range history {
			resp = append(resp, transactionResponse{
				ID:         t.ID,
				UserID:     t.UserID,
				Type:       string(t.Type),
				Amount:     t.Amount,
				OccurredAt: t.OccurredAt,
			})
		}

		render.JSON(w, resp)
	})
}

func handleCharge(pointService pointService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFromPath(w, r)
		if !ok {
			return
		}

		req, err := render.BindAndValidate[amountRequest](w, r)
		if err != nil {
			return
		}

		balance, err := pointService.Charge(r.Context(), userID, *req.Amount)
		if err != nil {
			renderServiceError(w, err, l)
			return
		}

		render.JSON(w, newBalanceResponse(balance))
	})
}

func handleUse(pointService pointService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFromPath(w, r)
		if !ok {
			return
		}

		req, err := render.BindAndValidate[amountRequest](w, r)
		if err != nil {
			return
		}

		balance, err := pointService.Use(r.Context(), userID, *req.Amount)
		if err != nil {
			renderServiceError(w, err, l)
			return
		}

		render.JSON(w, newBalanceResponse(balance))
	})
}
