// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/usergate/internal/core"
)

const userColumns = `
	id, email, password_hash, phone_number, email_verified, phone_verified,
	full_name, avatar_url, bio, country, role, permissions, package_type,
	package_expires_at, is_suspended, suspension_reason, is_active,
	created_at, updated_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Store {
	return &repository{db: db}
}

func (r *repository) FindAll(ctx context.Context) ([]User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC`

	var users []User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*User, error) {
	if !isUUID(id) {
		return nil, nil
	}

	query := `SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

func (r *repository) FindByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &user, nil
}

func (r *repository) ExistsByEmail(
	ctx context.Context,
	email string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}

	return exists, nil
}

func (r *repository) Create(ctx context.Context, user *User) error {
	user.ApplyDefaults()

	query := `
		INSERT INTO users (
			id, email, password_hash, phone_number, email_verified,
			phone_verified, full_name, avatar_url, bio, country, role,
			permissions, package_type, package_expires_at, is_suspended,
			suspension_reason, is_active
		)
		VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::user_role,
			$12, $13::package_type, $14, $15, $16, $17
		)
		RETURNING ` + userColumns

	err := r.db.GetContext(ctx, user, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.PhoneNumber,
		user.EmailVerified,
		user.PhoneVerified,
		user.FullName,
		user.AvatarURL,
		user.Bio,
		user.Country,
		user.Role,
		user.Permissions,
		user.PackageType,
		user.PackageExpiresAt,
		user.IsSuspended,
		user.SuspensionReason,
		user.IsActive,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *repository) Update(
	ctx context.Context,
	id string,
	patch Patch,
) (*User, error) {
	cols := patch.columns()
	if len(cols) == 0 {
		return r.FindByID(ctx, id)
	}

	if !isUUID(id) {
		return nil, nil
	}

	sets := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+1)
	args = append(args, id)

	for i, c := range cols {
		placeholder := fmt.Sprintf("$%d", i+2)
		if c.cast != "" {
			placeholder += "::" + c.cast
		}
		sets = append(sets, c.name+" = "+placeholder)
		args = append(args, c.value)
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(`
		UPDATE users
		SET %s
		WHERE id = $1
		RETURNING %s`,
		strings.Join(sets, ", "), userColumns)

	var user User
	err := r.db.GetContext(ctx, &user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("update user: %w", core.ErrDuplicateKey)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	return &user, nil
}

func (r *repository) Delete(ctx context.Context, id string) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}

	return rows > 0, nil
}

// isUUID guards queries against the uuid column, which rejects malformed
// input with a cast error rather than matching nothing.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
