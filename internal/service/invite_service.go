package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"atelier/internal/cache"
	"atelier/internal/mailer"
	"atelier/internal/models"
	"atelier/internal/observability"
	"atelier/internal/permission"
	"atelier/internal/repository"
	"atelier/internal/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// PendingInvite is the payload parked under a passcode key until the invitee
// completes sign-in or the passcode expires. Permission is the stored form of
// the tier ("edit"/"view"), carried through to the sign-in callback.
type PendingInvite struct {
	Email      string          `json:"email"`
	TenantID   uint            `json:"tenant_id"`
	Tier       permission.Tier `json:"tier"`
	Permission string          `json:"permission"`
	InviterID  uint            `json:"inviter_id"`
	IssuedAt   time.Time       `json:"issued_at"`
}

// PasscodeStore parks pending invites under their one-time passcode.
type PasscodeStore interface {
	Save(ctx context.Context, passcode string, inv PendingInvite, ttl time.Duration) error
	Load(ctx context.Context, passcode string) (*PendingInvite, error)
	Delete(ctx context.Context, passcode string) error
}

type redisPasscodeStore struct {
	rdb *redis.Client
}

// NewRedisPasscodeStore backs passcode storage with Redis; expiry rides on
// the key TTL so no sweeper is needed.
func NewRedisPasscodeStore(rdb *redis.Client) PasscodeStore {
	return &redisPasscodeStore{rdb: rdb}
}

func (s *redisPasscodeStore) Save(ctx context.Context, passcode string, inv PendingInvite, ttl time.Duration) error {
	b, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, cache.PasscodeKey(passcode), b, ttl).Err()
}

func (s *redisPasscodeStore) Load(ctx context.Context, passcode string) (*PendingInvite, error) {
	val, err := s.rdb.Get(ctx, cache.PasscodeKey(passcode)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var inv PendingInvite
	if err := json.Unmarshal([]byte(val), &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *redisPasscodeStore) Delete(ctx context.Context, passcode string) error {
	return s.rdb.Del(ctx, cache.PasscodeKey(passcode)).Err()
}

// Invite outcomes reported to callers and metrics.
const (
	InviteOutcomeAttached   = "attached"
	InviteOutcomeDispatched = "dispatched"
)

// InviteService runs the invitation flow: permission gate, member-or-guest
// branch, passcode issue, and mail dispatch.
type InviteService struct {
	users       repository.UserRepository
	tenants     repository.TenantRepository
	memberships repository.MembershipRepository
	passcodes   PasscodeStore
	mail        mailer.PasscodeMailer
	logger      *slog.Logger
}

func NewInviteService(
	users repository.UserRepository,
	tenants repository.TenantRepository,
	memberships repository.MembershipRepository,
	passcodes PasscodeStore,
	mail mailer.PasscodeMailer,
	logger *slog.Logger,
) *InviteService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InviteService{
		users:       users,
		tenants:     tenants,
		memberships: memberships,
		passcodes:   passcodes,
		mail:        mail,
		logger:      logger,
	}
}

type InviteInput struct {
	TenantID    uint
	InviterID   uint
	Email       string
	Tier        permission.Tier
	Permission  string
	CallbackURL string
}

// InviteResult reports which branch the flow took.
type InviteResult struct {
	Outcome    string                   `json:"outcome"`
	Membership *models.TenantMembership `json:"membership,omitempty"`
}

// Invite brings a user into a tenant by email. Registered users are attached
// immediately; unknown addresses get a one-time passcode by mail. The gate is
// the coarse one: owning user or owner/admin tier, independent of overlay.
func (s *InviteService) Invite(ctx context.Context, in InviteInput) (*InviteResult, error) {
	if in.Tier == "" {
		return nil, models.NewMissingFieldError("tier")
	}
	if in.Permission == "" {
		return nil, models.NewMissingFieldError("permission")
	}
	email, err := validation.Email(in.Email)
	if err != nil {
		return nil, err
	}

	tier := in.Tier
	if !tier.Valid() || tier == permission.TierOwner {
		return nil, models.NewValidationError("Tier must be admin or member")
	}
	stored, ok := permission.TierFromStored(in.Permission)
	if !ok {
		return nil, models.NewValidationError("Permission must be edit or view")
	}
	if stored != tier {
		return nil, models.NewValidationError("Permission does not match tier")
	}

	a, err := resolveAccess(ctx, s.tenants, s.memberships, in.TenantID, in.InviterID)
	if err != nil {
		return nil, err
	}
	if !permission.CanInvite(a.IsOwningUser, a.Tier) {
		observability.InviteOutcomes.WithLabelValues("forbidden").Inc()
		return nil, models.NewForbiddenError("You do not have permission to invite members")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user != nil {
		existing, err := s.memberships.GetByTenantAndUser(ctx, in.TenantID, user.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil || user.ID == a.Tenant.OwnerUserID {
			observability.InviteOutcomes.WithLabelValues("already_member").Inc()
			return nil, models.NewAlreadyMemberError(email)
		}

		m := &models.TenantMembership{TenantID: in.TenantID, UserID: user.ID, Tier: tier}
		if err := s.memberships.Create(ctx, m); err != nil {
			return nil, err
		}
		observability.InviteOutcomes.WithLabelValues(InviteOutcomeAttached).Inc()
		observability.MembershipMutations.WithLabelValues("membership", "create").Inc()
		return &InviteResult{Outcome: InviteOutcomeAttached, Membership: m}, nil
	}

	passcode := uuid.NewString()
	pending := PendingInvite{
		Email:      email,
		TenantID:   in.TenantID,
		Tier:       tier,
		Permission: in.Permission,
		InviterID:  in.InviterID,
		IssuedAt:   time.Now().UTC(),
	}
	if err := s.passcodes.Save(ctx, passcode, pending, cache.PasscodeTTL); err != nil {
		return nil, models.NewInternalError(err)
	}

	// Single dispatch attempt, no retry and no idempotency key: a duplicate
	// submission sends a second mail. A transport failure reaches the caller;
	// the parked passcode simply ages out on its TTL.
	if err := s.mail.SendPasscode(ctx, email, a.Tenant.Name("en"), passcode, in.CallbackURL); err != nil {
		observability.InviteOutcomes.WithLabelValues("dispatch_failed").Inc()
		s.logger.ErrorContext(ctx, "invitation dispatch failed",
			"tenant_id", in.TenantID, "email", email, "error", err)
		return nil, models.NewInviteDispatchError(err)
	}
	observability.InviteOutcomes.WithLabelValues(InviteOutcomeDispatched).Inc()

	return &InviteResult{Outcome: InviteOutcomeDispatched}, nil
}

type CompleteSignInInput struct {
	Passcode string
	Username string
	Password string
}

// CompletePasscodeSignIn redeems a passcode: it creates the account if the
// address is still unregistered, attaches the deferred membership, and burns
// the passcode. The passcode is single use.
func (s *InviteService) CompletePasscodeSignIn(ctx context.Context, in CompleteSignInInput) (*models.User, *models.TenantMembership, error) {
	if in.Passcode == "" {
		return nil, nil, models.NewMissingFieldError("passcode")
	}

	pending, err := s.passcodes.Load(ctx, in.Passcode)
	if err != nil {
		return nil, nil, models.NewInternalError(err)
	}
	if pending == nil {
		return nil, nil, models.NewUnauthorizedError("Invalid or expired passcode")
	}

	user, err := s.users.GetByEmail(ctx, pending.Email)
	if err != nil {
		return nil, nil, err
	}

	if user == nil {
		if in.Username == "" {
			return nil, nil, models.NewMissingFieldError("username")
		}
		if len(in.Password) < 8 {
			return nil, nil, models.NewValidationError("Password must be at least 8 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, nil, models.NewInternalError(err)
		}
		user = &models.User{
			Username: in.Username,
			Email:    pending.Email,
			Password: string(hash),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, nil, err
		}
	}

	m := &models.TenantMembership{TenantID: pending.TenantID, UserID: user.ID, Tier: pending.Tier}
	if err := s.memberships.Create(ctx, m); err != nil {
		var appErr *models.AppError
		// A duplicate membership means a parallel redemption already attached
		// the user; treat the sign-in as complete.
		if !errors.As(err, &appErr) || appErr.Code != models.CodeDuplicate {
			return nil, nil, err
		}
		existing, lerr := s.memberships.GetByTenantAndUser(ctx, pending.TenantID, user.ID)
		if lerr != nil || existing == nil {
			return nil, nil, err
		}
		m = existing
	}

	if err := s.passcodes.Delete(ctx, in.Passcode); err != nil {
		s.logger.WarnContext(ctx, "failed to burn passcode", "error", err)
	}

	observability.MembershipMutations.WithLabelValues("membership", "create").Inc()
	return user, m, nil
}
