package controllers

import (
	"net/http"
	"time"

	"github.com/acquiremock/acquiremock-backend/api/responses"
	"github.com/acquiremock/acquiremock-backend/internal/payments"
	"github.com/acquiremock/acquiremock-backend/pkg/logger"
)

type recentOperationView struct {
	PaymentID string `json:"payment_id"`
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
	CardMask  string `json:"card_mask"`
	CreatedAt string `json:"created_at"`
}

type savedCardView struct {
	ID       string `json:"id"`
	CardMask string `json:"card_mask"`
	Expiry   string `json:"expiry"`
}

type userInfoResponse struct {
	Email            string                `json:"email"`
	RecentOperations []recentOperationView `json:"recent_operations"`
	SavedCards       []savedCardView       `json:"saved_cards"`
}

// UserInfo returns the trusted payer's recent receipts and reusable card
// references. The trusted-device cookie is the only credential; without it
// the request is rejected.
func UserInfo(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		result, err := svc.UserInfo(ctx, deviceTokenFromRequest(r))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := userInfoResponse{
			Email:            result.Email,
			RecentOperations: make([]recentOperationView, 0, len(result.Operations)),
			SavedCards:       make([]savedCardView, 0, len(result.SavedCards)),
		}
		for _, op := range result.Operations {
			resp.RecentOperations = append(resp.RecentOperations, recentOperationView{
				PaymentID: op.PaymentID.String(),
				Reference: op.Reference,
				Amount:    op.Amount.StringFixed(2),
				CardMask:  op.CardMask,
				CreatedAt: op.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		for _, card := range result.SavedCards {
			resp.SavedCards = append(resp.SavedCards, savedCardView{
				ID:       card.ID.String(),
				CardMask: card.CardMask,
				Expiry:   card.Expiry,
			})
		}

		responses.WriteSuccess(w, resp)
	}
}
