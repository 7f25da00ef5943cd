package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/davesep77/evolentra/internal/config"
	"github.com/davesep77/evolentra/internal/errs"
	"github.com/davesep77/evolentra/internal/models"
	"github.com/davesep77/evolentra/internal/pubsub"
	"github.com/davesep77/evolentra/internal/repository"
	"github.com/davesep77/evolentra/pkg/db"
	"github.com/davesep77/evolentra/pkg/helpers"
)

const referralCodeAttempts = 5

// RegisterInput is a new investor's sign-up form.
type RegisterInput struct {
	Email        string  `json:"email" validate:"required,email,max=255"`
	Password     string  `json:"password" validate:"required,strong_password"`
	FirstName    string  `json:"first_name" validate:"required,max=100"`
	LastName     string  `json:"last_name" validate:"required,max=100"`
	Phone        *string `json:"phone" validate:"omitempty,max=20"`
	ReferralCode string  `json:"referral_code" validate:"omitempty,max=20"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is a signed token for the authentication collaborator.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// ReferralSummary is what a referrer sees about their direct referrals.
type ReferralSummary struct {
	ReferralCode  string                       `json:"referral_code"`
	Referrals     []models.ReferralEntry       `json:"referrals"`
	Commissions   []*models.ReferralCommission `json:"commissions"`
	TotalEarnings decimal.Decimal              `json:"total_earnings"`
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	IssueToken(userID uint64, email, role string) (string, time.Time, error)
}

type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Login(ctx context.Context, in LoginInput) (*Session, error)
	SetUserStatus(ctx context.Context, userID uint64, status string) error
	ReferralSummary(ctx context.Context, userID uint64) (*ReferralSummary, error)
}

type userService struct {
	Deps
	rules     config.Rules
	binary    BinaryService
	tokens    TokenIssuer
	validator *helpers.CustomValidator
	ids       *helpers.IDGenerator
}

func NewUserService(deps Deps, rules config.Rules, binary BinaryService, tokens TokenIssuer) UserService {
	return &userService{
		Deps:      deps,
		rules:     rules,
		binary:    binary,
		tokens:    tokens,
		validator: helpers.NewCustomValidator(),
		ids:       helpers.NewIDGenerator(),
	}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.ReferralCode = strings.ToUpper(strings.TrimSpace(in.ReferralCode))
	if err := s.validator.Validate(in); err != nil {
		return nil, errs.Validation("%s", helpers.FirstMessage(err))
	}

	users := s.Store.Users()
	existing, err := users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to register user")
	}
	if existing != nil {
		return nil, errs.Validation("Email already registered")
	}

	var referrer *models.User
	if in.ReferralCode != "" {
		referrer, err = users.FindByReferralCode(ctx, in.ReferralCode)
		if err != nil {
			return nil, errs.Persistence(err, "Failed to register user")
		}
		if referrer == nil || !referrer.IsActive() {
			return nil, errs.Validation("Invalid referral code")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to register user")
	}
	code, err := s.uniqueReferralCode(ctx, users)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        in.Email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        in.Phone,
		ReferralCode: code,
		Role:         models.RoleInvestor,
		Status:       models.UserStatusActive,
	}
	if referrer != nil {
		user.ReferrerID = uint64Ptr(referrer.ID)
	}

	err = s.Store.WithinTx(ctx, func(tx repository.Store) error {
		id, err := tx.Users().Create(ctx, user)
		if db.IsDuplicateEntry(err) {
			return errs.Validation("Email already registered")
		}
		if err != nil {
			return errs.Persistence(err, "Failed to register user")
		}
		user.ID = id

		if referrer != nil {
			_, err = s.binary.PlaceUser(ctx, tx, id, referrer.ID)
		} else {
			_, err = s.binary.CreateRoot(ctx, tx, id)
		}
		if err != nil {
			return err
		}

		if err := tx.Wallets().CreateDefaults(ctx, id, s.rules.Deposits()); err != nil {
			return errs.Persistence(err, "Failed to create wallets")
		}
		return nil
	})
	if err != nil {
		return nil, errs.Persistence(err, "Failed to register user")
	}

	now := s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	if referrer != nil {
		s.publish(ctx, pubsub.LedgerEvent{
			Type:    pubsub.EventUserRegistered,
			UserID:  referrer.ID,
			Payload: models.ReferralEntry{ID: user.ID, Email: user.Email, FirstName: user.FirstName, LastName: user.LastName, Status: user.Status, CreatedAt: now},
		})
	}
	s.Log.WithUserID(user.ID).WithField("referred", referrer != nil).Info("user registered")
	return user, nil
}

// uniqueReferralCode draws codes until one is free. The unique key on
// users.referral_code still guards the insert.
func (s *userService) uniqueReferralCode(ctx context.Context, users repository.UserRepository) (string, error) {
	for i := 0; i < referralCodeAttempts; i++ {
		code := s.ids.GenerateReferralCode(helpers.ReferralCodePrefix)
		taken, err := users.ReferralCodeExists(ctx, code)
		if err != nil {
			return "", errs.Persistence(err, "Failed to register user")
		}
		if !taken {
			return code, nil
		}
	}
	return "", errs.StateConflict("Could not allocate a referral code, please retry")
}

func (s *userService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	user, err := s.Store.Users().FindByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		return nil, errs.Persistence(err, "Failed to log in")
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		return nil, errs.Validation("Invalid email or password")
	}
	if !user.IsActive() {
		return nil, errs.StateConflict("Account is suspended")
	}

	token, expires, err := s.tokens.IssueToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to issue token")
	}
	return &Session{Token: token, ExpiresAt: expires, User: user}, nil
}

func (s *userService) SetUserStatus(ctx context.Context, userID uint64, status string) error {
	if status != models.UserStatusActive && status != models.UserStatusSuspended {
		return errs.Validation("Status must be active or suspended")
	}

	user, err := s.Store.Users().FindByID(ctx, userID)
	if err != nil {
		return errs.Persistence(err, "Failed to load user")
	}
	if user == nil {
		return errs.NotFound("User not found")
	}
	if err := s.Store.Users().UpdateStatus(ctx, userID, status); err != nil {
		return errs.Persistence(err, "Failed to update user status")
	}
	s.Log.WithUserID(userID).WithField("status", status).Info("user status changed")
	return nil
}

func (s *userService) ReferralSummary(ctx context.Context, userID uint64) (*ReferralSummary, error) {
	user, err := s.Store.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to load user")
	}
	if user == nil {
		return nil, errs.NotFound("User not found")
	}

	referrals, err := s.Store.Users().ListReferrals(ctx, userID)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to load referrals")
	}
	commissions, err := s.Store.Commissions().ListReferralByReferrer(ctx, userID, defaultQueueLimit)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to load referral commissions")
	}
	total, err := s.Store.Commissions().SumReferralByReferrer(ctx, userID)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to load referral commissions")
	}

	return &ReferralSummary{
		ReferralCode:  user.ReferralCode,
		Referrals:     referrals,
		Commissions:   commissions,
		TotalEarnings: total,
	}, nil
}
