// adminaccess.go implements the AdminAccessService: granting and revoking
// admin roles. Every grant writes a persisted AdminGrant row and updates the
// user record inside the same transaction, so the role and its audit trail
// can never drift apart.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
	"github.com/NganNgoVoThanh/trips-management/internal/db/repositories"
)

// AdminAccessService handles admin role assignment
type AdminAccessService struct {
	db     *sql.DB
	grants *repositories.AdminGrantRepository
	users  *repositories.UserRepository
	logger *slog.Logger
}

// NewAdminAccessService creates a new AdminAccessService
func NewAdminAccessService(db *sql.DB, logger *slog.Logger) *AdminAccessService {
	return &AdminAccessService{
		db:     db,
		grants: repositories.NewAdminGrantRepository(db),
		users:  repositories.NewUserRepository(db),
		logger: logger,
	}
}

// GrantInput is the payload for granting an admin role
type GrantInput struct {
	TargetEmail string
	AdminType   string
	LocationID  *uuid.UUID
	GrantedBy   string
	Reason      *string
	IPAddress   *string
	UserAgent   *string
}

// Grant assigns an admin role to a user by email. Any previous active grant
// is revoked first so exactly one grant is live per email. The second return
// is the role the target held before the grant ("user" or "admin").
func (s *AdminAccessService) Grant(ctx context.Context, input GrantInput) (*models.AdminGrant, string, error) {
	switch input.AdminType {
	case "super_admin":
		if input.LocationID != nil {
			return nil, "", validationError("super admins are not location scoped")
		}
	case "location_admin":
		if input.LocationID == nil {
			return nil, "", validationError("location admins require a location")
		}
	default:
		return nil, "", validationError("unknown admin type")
	}
	if input.TargetEmail == input.GrantedBy {
		return nil, "", validationError("cannot change your own admin role")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	txGrants := repositories.NewAdminGrantRepository(tx)
	txUsers := repositories.NewUserRepository(tx)

	replaced, err := txGrants.RevokeGrants(ctx, input.TargetEmail, input.GrantedBy)
	if err != nil {
		return nil, "", err
	}

	grant := &models.AdminGrant{
		UserEmail:  input.TargetEmail,
		AdminType:  input.AdminType,
		LocationID: input.LocationID,
		GrantedBy:  input.GrantedBy,
		Reason:     input.Reason,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
	}
	if err := txGrants.CreateGrant(ctx, grant); err != nil {
		return nil, "", err
	}

	// The user may not have logged in yet; the grant still applies on their
	// first login via ApplyGrantOnLogin.
	if _, err := txUsers.SetAdminRole(ctx, input.TargetEmail, input.AdminType, input.LocationID); err != nil {
		return nil, "", err
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("failed to commit admin grant: %w", err)
	}

	prevRole := "user"
	if replaced > 0 {
		prevRole = "admin"
	}

	s.logger.Info("admin role granted",
		"target", input.TargetEmail,
		"admin_type", input.AdminType,
		"granted_by", input.GrantedBy)
	return grant, prevRole, nil
}

// Revoke removes all active grants for an email and demotes the user
func (s *AdminAccessService) Revoke(ctx context.Context, targetEmail, revokedBy string) error {
	if targetEmail == revokedBy {
		return validationError("cannot revoke your own admin role")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	txGrants := repositories.NewAdminGrantRepository(tx)
	txUsers := repositories.NewUserRepository(tx)

	affected, err := txGrants.RevokeGrants(ctx, targetEmail, revokedBy)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	if _, err := txUsers.ClearAdminRole(ctx, targetEmail); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit admin revocation: %w", err)
	}

	s.logger.Info("admin role revoked", "target", targetEmail, "revoked_by", revokedBy)
	return nil
}

// ListGrants returns grants for the admin management view
func (s *AdminAccessService) ListGrants(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.AdminGrant, int, error) {
	return s.grants.ListGrants(ctx, activeOnly, limit, offset)
}

// ApplyGrantOnLogin reconciles a user's role with the persisted grants.
// Called after the login upsert so a grant issued while the user was away
// takes effect immediately, and a revocation strips the role.
func (s *AdminAccessService) ApplyGrantOnLogin(ctx context.Context, user *models.User) (*models.User, error) {
	grant, err := s.grants.GetActiveGrantByEmail(ctx, user.Email)
	if err != nil {
		return nil, err
	}

	if grant == nil {
		if user.IsAdmin() {
			if _, err := s.users.ClearAdminRole(ctx, user.Email); err != nil {
				return nil, err
			}
			user.Role = "user"
			user.AdminType = nil
			user.AdminLocationID = nil
		}
		return user, nil
	}

	if _, err := s.users.SetAdminRole(ctx, user.Email, grant.AdminType, grant.LocationID); err != nil {
		return nil, err
	}
	user.Role = "admin"
	user.AdminType = &grant.AdminType
	user.AdminLocationID = grant.LocationID
	return user, nil
}
