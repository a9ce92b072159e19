package cards

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/acquiremock/acquiremock-backend/pkg/config"
	"github.com/acquiremock/acquiremock-backend/pkg/db/models"
	pkgerrors "github.com/acquiremock/acquiremock-backend/pkg/errors"
	"github.com/acquiremock/acquiremock-backend/pkg/security"
)

// Service manages reusable card references. Raw PAN/CVV values only pass
// through in memory; persistence sees argon2id hashes.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.SavedCard, error)
	MatchesPAN(card *models.SavedCard, pan string) bool
	MatchesCVV(card *models.SavedCard, cvv string) bool
	ListByEmail(ctx context.Context, email string) ([]models.SavedCard, error)
	SaveIfAbsent(ctx context.Context, email, pan, cvv, expiry, mask string) (*models.SavedCard, error)
}

type service struct {
	repo     Repository
	security config.SecurityConfig
	now      func() time.Time
}

// NewService wires saved-card dependencies.
func NewService(repo Repository, sec config.SecurityConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "saved card repository required")
	}
	return &service{repo: repo, security: sec, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.SavedCard, error) {
	card, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load saved card")
	}
	if card == nil {
		return nil, pkgerrors.New(pkgerrors.CodeSavedCardNotFound, "saved card not found")
	}
	return card, nil
}

// MatchesPAN reports whether the stored one-way hash corresponds to the
// provided card number.
func (s *service) MatchesPAN(card *models.SavedCard, pan string) bool {
	if card == nil || card.CardNumberHash == "" {
		return false
	}
	ok, err := security.VerifySecret(pan, card.CardNumberHash)
	if err != nil {
		return false
	}
	return ok
}

// MatchesCVV reports whether the stored one-way hash corresponds to the
// provided security code.
func (s *service) MatchesCVV(card *models.SavedCard, cvv string) bool {
	if card == nil || card.CVVHash == "" {
		return false
	}
	ok, err := security.VerifySecret(cvv, card.CVVHash)
	if err != nil {
		return false
	}
	return ok
}

// ListByEmail returns a payer's saved cards, newest first.
func (s *service) ListByEmail(ctx context.Context, email string) ([]models.SavedCard, error) {
	cards, err := s.repo.ListByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list saved cards")
	}
	return cards, nil
}

// SaveIfAbsent persists a new saved card unless one already exists for the
// same (email, mask) pair. Returns the existing card when it does.
func (s *service) SaveIfAbsent(ctx context.Context, email, pan, cvv, expiry, mask string) (*models.SavedCard, error) {
	existing, err := s.repo.FindByEmailAndMask(ctx, email, mask)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup saved card")
	}
	if existing != nil {
		return existing, nil
	}

	panHash, err := security.HashSecret(pan, s.security)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash card number")
	}
	cvvHash, err := security.HashSecret(cvv, s.security)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash cvv")
	}

	card := &models.SavedCard{
		ID:             uuid.New(),
		Email:          email,
		CardNumberHash: panHash,
		CVVHash:        cvvHash,
		CardMask:       mask,
		Expiry:         expiry,
		Provider:       "mock",
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.Create(ctx, card); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist saved card")
	}
	return card, nil
}
