package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/davesep77/evolentra/internal/models"
	"github.com/davesep77/evolentra/pkg/db"
)

const userColumns = `id, email, password_hash, first_name, last_name, phone, referrer_id,
	referral_code, role, status, created_at, updated_at`

type UserRepository interface {
	Create(ctx context.Context, user *models.User) (uint64, error)
	FindByID(ctx context.Context, id uint64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByReferralCode(ctx context.Context, code string) (*models.User, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	ListReferrals(ctx context.Context, referrerID uint64) ([]models.ReferralEntry, error)
	UpdateStatus(ctx context.Context, id uint64, status string) error
}

type userRepository struct {
	q db.Querier
}

func NewUserRepository(q db.Querier) UserRepository {
	return &userRepository{q: q}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) (uint64, error) {
	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, phone, referrer_id,
			referral_code, role, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	res, err := r.q.ExecContext(ctx, query,
		user.Email, user.PasswordHash, user.FirstName, user.LastName, stringArg(user.Phone),
		uint64Arg(user.ReferrerID), user.ReferralCode, user.Role, user.Status, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := lastInsertID(res)
	if err != nil {
		return 0, fmt.Errorf("failed to get user id: %w", err)
	}
	user.ID = id
	user.CreatedAt, user.UpdatedAt = now, now
	return id, nil
}

func (r *userRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *userRepository) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return r.findOne(ctx, "referral_code = ?", code)
}

func (r *userRepository) findOne(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE " + where
	user, err := scanUser(r.q.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func (r *userRepository) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	var count int
	err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE referral_code = ?", code).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check referral code: %w", err)
	}
	return count > 0, nil
}

func (r *userRepository) ListReferrals(ctx context.Context, referrerID uint64) ([]models.ReferralEntry, error) {
	query := `
		SELECT id, email, first_name, last_name, status, created_at
		FROM users
		WHERE referrer_id = ?
		ORDER BY created_at DESC
	`
	rows, err := r.q.QueryContext(ctx, query, referrerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	defer rows.Close()

	var entries []models.ReferralEntry
	for rows.Next() {
		var e models.ReferralEntry
		if err := rows.Scan(&e.ID, &e.Email, &e.FirstName, &e.LastName, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan referral: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *userRepository) UpdateStatus(ctx context.Context, id uint64, status string) error {
	_, err := r.q.ExecContext(ctx, "UPDATE users SET status = ?, updated_at = ? WHERE id = ?", status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	return nil
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var phone sql.NullString
	var referrerID sql.NullInt64
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &phone,
		&referrerID, &u.ReferralCode, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Phone = nullString(phone)
	u.ReferrerID = nullUint64(referrerID)
	return u, nil
}
