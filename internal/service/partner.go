package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/volcanion-systems/volcanion-tracking/internal/apikey"
	"github.com/volcanion-systems/volcanion-tracking/internal/models"
	"github.com/volcanion-systems/volcanion-tracking/internal/repository"
	"github.com/volcanion-systems/volcanion-tracking/pkg/logging"
)

var (
	ErrInvalidPartnerCode = errors.New("partner code must be non-empty")
	ErrInvalidStatus      = errors.New("status must be Active or Revoked")
)

// CredentialInvalidator evicts cached credentials when a key is
// revoked.
type CredentialInvalidator interface {
	Invalidate(ctx context.Context, keyID string) error
}

// PartnerService manages tenants, their sub-systems, and their API
// keys.
type PartnerService struct {
	repo        repository.Repository
	credentials CredentialInvalidator
	logger      *logging.Logger
	now         func() time.Time
}

// NewPartnerService builds a PartnerService. credentials may be nil
// when no credential cache is in play.
func NewPartnerService(repo repository.Repository, credentials CredentialInvalidator, logger *logging.Logger) *PartnerService {
	return &PartnerService{
		repo:        repo,
		credentials: credentials,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *PartnerService) CreatePartner(ctx context.Context, req models.CreatePartnerRequest) (*models.Partner, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, ErrInvalidPartnerCode
	}

	partner := &models.Partner{
		ID:        uuid.NewString(),
		Code:      code,
		Name:      req.Name,
		Status:    models.StatusActive,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreatePartner(ctx, partner); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "partner created", logging.PartnerID(partner.ID), "code", partner.Code)
	return partner, nil
}

func (s *PartnerService) GetPartner(ctx context.Context, id string) (*models.Partner, error) {
	return s.repo.GetPartner(ctx, id)
}

func (s *PartnerService) ListPartners(ctx context.Context) ([]*models.Partner, error) {
	return s.repo.ListPartners(ctx)
}

func (s *PartnerService) UpdatePartner(ctx context.Context, id string, req models.UpdatePartnerRequest) (*models.Partner, error) {
	partner, err := s.repo.GetPartner(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		partner.Name = *req.Name
	}
	if req.Status != nil {
		if *req.Status != models.StatusActive && *req.Status != models.StatusRevoked {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *req.Status)
		}
		partner.Status = *req.Status
	}
	if err := s.repo.UpdatePartner(ctx, partner); err != nil {
		return nil, err
	}
	return partner, nil
}

func (s *PartnerService) CreateSubSystem(ctx context.Context, partnerID string, req models.CreateSubSystemRequest) (*models.SubSystem, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, ErrInvalidPartnerCode
	}
	if _, err := s.repo.GetPartner(ctx, partnerID); err != nil {
		return nil, err
	}

	subSystem := &models.SubSystem{
		ID:        uuid.NewString(),
		PartnerID: partnerID,
		Code:      code,
		Name:      req.Name,
		Status:    models.StatusActive,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateSubSystem(ctx, subSystem); err != nil {
		return nil, err
	}
	return subSystem, nil
}

func (s *PartnerService) ListSubSystems(ctx context.Context, partnerID string) ([]*models.SubSystem, error) {
	return s.repo.ListSubSystems(ctx, partnerID)
}

// CreateAPIKey mints a key for the partner. The plaintext key appears
// only in the returned response; the store keeps the salted hash.
func (s *PartnerService) CreateAPIKey(ctx context.Context, partnerID string, req models.CreateAPIKeyRequest) (*models.GeneratedAPIKeyResponse, error) {
	if _, err := s.repo.GetPartner(ctx, partnerID); err != nil {
		return nil, err
	}

	plainKey, err := apikey.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}
	hash, err := apikey.Hash(plainKey)
	if err != nil {
		return nil, fmt.Errorf("hash api key: %w", err)
	}

	key := &models.PartnerAPIKey{
		ID:        uuid.NewString(),
		PartnerID: partnerID,
		KeyHash:   hash,
		Name:      req.Name,
		Status:    models.StatusActive,
		ExpiresAt: req.ExpiresAt,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateAPIKey(ctx, key); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "api key created", logging.PartnerID(partnerID), logging.KeyID(key.ID))

	return &models.GeneratedAPIKeyResponse{
		ID:        key.ID,
		Name:      key.Name,
		APIKey:    plainKey,
		ExpiresAt: key.ExpiresAt,
		CreatedAt: key.CreatedAt,
	}, nil
}

// RevokeAPIKey flips the key to Revoked and evicts it from the
// credential cache so in-flight requests stop authenticating with it.
func (s *PartnerService) RevokeAPIKey(ctx context.Context, keyID string) error {
	if err := s.repo.RevokeAPIKey(ctx, keyID); err != nil {
		return err
	}
	if s.credentials != nil {
		if err := s.credentials.Invalidate(ctx, keyID); err != nil {
			s.logger.WarnContext(ctx, "credential cache eviction failed", logging.KeyID(keyID), logging.Error(err))
		}
	}
	s.logger.InfoContext(ctx, "api key revoked", logging.KeyID(keyID))
	return nil
}
