package service

import (
	"context"
	"strings"

	"pos-service/internal/apperr"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminStore is the record-store slice behind the passcode gate.
type AdminStore interface {
	GetAdmins(ctx context.Context) ([]models.Admin, error)
	CreateAdmin(ctx context.Context, passcodeHash string) error
	UpdateAdminPasscode(ctx context.Context, id int64, passcodeHash string) error
}

// AdminService verifies and rotates the admin passcode. Passcodes are
// stored bcrypt-hashed, so verification compares against every admin
// row (there is normally exactly one).
type AdminService struct {
	store  AdminStore
	logger *zap.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(store AdminStore) *AdminService {
	return &AdminService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// Bootstrap seeds an admin row with the given passcode when the table
// is empty. Called once at startup.
func (s *AdminService) Bootstrap(ctx context.Context, passcode string) error {
	admins, err := s.store.GetAdmins(ctx)
	if err != nil {
		return err
	}
	if len(admins) > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return apperr.NewStoreError("failed to hash bootstrap passcode", err)
	}
	if err := s.store.CreateAdmin(ctx, string(hash)); err != nil {
		return err
	}
	s.logger.Info("Bootstrapped admin passcode")
	return nil
}

// Verify checks a passcode against the stored hashes. Returns a
// NotFoundError when no admin matches so callers can map it to 403.
func (s *AdminService) Verify(ctx context.Context, passcode string) error {
	passcode = strings.TrimSpace(passcode)
	if passcode == "" {
		return apperr.NewValidationError("passcode is required")
	}

	admins, err := s.store.GetAdmins(ctx)
	if err != nil {
		return err
	}
	for _, admin := range admins {
		if bcrypt.CompareHashAndPassword([]byte(admin.PasscodeHash), []byte(passcode)) == nil {
			return nil
		}
	}
	return apperr.NewNotFoundError("admin", "passcode")
}

// ChangePasscode rotates the passcode of the admin matching oldPass.
func (s *AdminService) ChangePasscode(ctx context.Context, oldPass, newPass string) error {
	oldPass = strings.TrimSpace(oldPass)
	newPass = strings.TrimSpace(newPass)
	if newPass == "" {
		return apperr.NewValidationError("new passcode is required")
	}

	admins, err := s.store.GetAdmins(ctx)
	if err != nil {
		return err
	}
	for _, admin := range admins {
		if bcrypt.CompareHashAndPassword([]byte(admin.PasscodeHash), []byte(oldPass)) == nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(newPass), bcrypt.DefaultCost)
			if err != nil {
				return apperr.NewStoreError("failed to hash passcode", err)
			}
			if err := s.store.UpdateAdminPasscode(ctx, admin.ID, string(hash)); err != nil {
				return err
			}
			s.logger.Info("Admin passcode changed", zap.Int64("admin_id", admin.ID))
			return nil
		}
	}
	return apperr.NewNotFoundError("admin", "passcode")
}
