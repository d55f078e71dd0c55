package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"booking-api/internal/auth"
	"booking-api/internal/metrics"
	"booking-api/internal/model"
	"booking-api/internal/store"
)

const (
	minPasswordLen = 8
	maxUsernameLen = 150
	maxPhoneLen    = 15
)

var errBadCredentials = status.Error(codes.Unauthenticated, "invalid credentials")

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber *string
}

type LoginInput struct {
	Username string
	Email    string
	Password string
}

type ProfileInput struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
}

// Accounts is the identity side of the API: registration, token issue and
// rotation, and resolving a bearer token to its user.
type Accounts struct {
	users      UserStore
	tokens     TokenStore
	signer     *auth.Signer
	refreshTTL time.Duration
	now        func() time.Time
}

func NewAccounts(users UserStore, tokens TokenStore, signer *auth.Signer, refreshTTL time.Duration) *Accounts {
	return &Accounts{users: users, tokens: tokens, signer: signer, refreshTTL: refreshTTL, now: time.Now}
}

func (s *Accounts) Register(ctx context.Context, in RegisterInput) (*model.User, *TokenPair, error) {
	var fe fieldErrors
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	switch {
	case username == "":
		fe.add("username", msgRequired)
	case utf8.RuneCountInString(username) > maxUsernameLen:
		fe.add("username", fmt.Sprintf("Ensure this field has no more than %d characters.", maxUsernameLen))
	}
	if email == "" {
		fe.add("email", msgRequired)
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		fe.add("email", "Enter a valid email address.")
	}
	switch {
	case in.Password == "":
		fe.add("password", msgRequired)
	case len(in.Password) < minPasswordLen:
		fe.add("password", "password too short")
	}
	if in.PhoneNumber != nil && len(*in.PhoneNumber) > maxPhoneLen {
		fe.add("phone_number", fmt.Sprintf("Ensure this field has no more than %d characters.", maxPhoneLen))
	}
	if err := fe.err(); err != nil {
		return nil, nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, nil, status.Error(codes.Internal, err.Error())
	}

	now := s.now()
	u := &model.User{
		ID:           newID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
		IsClient:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// dup username or email, but don't reveal which
			return nil, nil, status.Error(codes.AlreadyExists, "registration failed")
		}
		return nil, nil, storeErr(err)
	}

	pair, err := s.issue(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// Login accepts either a username or an email with the password.
func (s *Accounts) Login(ctx context.Context, in LoginInput) (*model.User, *TokenPair, error) {
	if in.Password == "" || (in.Username == "" && in.Email == "") {
		var fe fieldErrors
		if in.Username == "" && in.Email == "" {
			fe.add("username", msgRequired)
		}
		if in.Password == "" {
			fe.add("password", msgRequired)
		}
		return nil, nil, fe.err()
	}

	var (
		u   *model.User
		err error
	)
	if in.Username != "" {
		u, err = s.users.UserByUsername(ctx, in.Username)
	} else {
		u, err = s.users.UserByEmail(ctx, in.Email)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.AuthFailures.WithLabelValues("login").Inc()
			return nil, nil, errBadCredentials
		}
		return nil, nil, storeErr(err)
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		metrics.AuthFailures.WithLabelValues("login").Inc()
		return nil, nil, errBadCredentials
	}

	pair, err := s.issue(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// Refresh trades a refresh token for a new pair. Presenting a token that was
// already rotated means it leaked, so every token of that user is revoked.
func (s *Accounts) Refresh(ctx context.Context, raw string) (*TokenPair, error) {
	if raw == "" {
		return nil, invalid("refresh_token", msgRequired)
	}
	rt, err := s.tokens.RefreshTokenByHash(ctx, auth.HashRefreshToken(raw))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.AuthFailures.WithLabelValues("refresh").Inc()
			return nil, status.Error(codes.Unauthenticated, "invalid refresh token")
		}
		return nil, storeErr(err)
	}
	if rt.Revoked {
		metrics.AuthFailures.WithLabelValues("refresh_reuse").Inc()
		if err := s.tokens.RevokeAllRefreshTokens(ctx, rt.UserID); err != nil {
			return nil, storeErr(err)
		}
		return nil, status.Error(codes.Unauthenticated, "invalid refresh token")
	}
	if !s.now().Before(rt.ExpiresAt) {
		metrics.AuthFailures.WithLabelValues("refresh_expired").Inc()
		return nil, status.Error(codes.Unauthenticated, "refresh token expired")
	}

	newRaw, newHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	now := s.now()
	next := &model.RefreshToken{
		ID:        newID(),
		UserID:    rt.UserID,
		TokenHash: newHash,
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}
	if err := s.tokens.RotateRefreshToken(ctx, rt.ID, next); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, status.Error(codes.Unauthenticated, "invalid refresh token")
		}
		return nil, storeErr(err)
	}

	access, err := s.signer.Sign(rt.UserID)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &TokenPair{AccessToken: access, RefreshToken: newRaw, ExpiresIn: s.signer.TTL()}, nil
}

func (s *Accounts) Logout(ctx context.Context, p *model.User) error {
	if err := requirePrincipal(p); err != nil {
		return err
	}
	if err := s.tokens.RevokeAllRefreshTokens(ctx, p.ID); err != nil {
		return storeErr(err)
	}
	return nil
}

// Authenticate resolves a bearer token to the current user record, so staff
// flag changes apply without reissuing tokens.
func (s *Accounts) Authenticate(ctx context.Context, bearer string) (*model.User, error) {
	claims, err := s.signer.Parse(bearer)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("bearer").Inc()
		return nil, status.Error(codes.Unauthenticated, "Invalid token.")
	}
	u, err := s.users.UserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.AuthFailures.WithLabelValues("bearer").Inc()
			return nil, status.Error(codes.Unauthenticated, "Invalid token.")
		}
		return nil, storeErr(err)
	}
	return u, nil
}

func (s *Accounts) Profile(ctx context.Context, p *model.User) (*model.User, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	u, err := s.users.UserByID(ctx, p.ID)
	if err != nil {
		return nil, storeErr(err)
	}
	return u, nil
}

// UpdateProfile changes names and phone number. Username and email are
// read-only here.
func (s *Accounts) UpdateProfile(ctx context.Context, p *model.User, in ProfileInput) (*model.User, error) {
	u, err := s.Profile(ctx, p)
	if err != nil {
		return nil, err
	}
	if in.PhoneNumber != nil && len(*in.PhoneNumber) > maxPhoneLen {
		return nil, invalid("phone_number", fmt.Sprintf("Ensure this field has no more than %d characters.", maxPhoneLen))
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.PhoneNumber != nil {
		if *in.PhoneNumber == "" {
			u.PhoneNumber = nil
		} else {
			u.PhoneNumber = in.PhoneNumber
		}
	}
	u.UpdatedAt = s.now()
	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return nil, storeErr(err)
	}
	return u, nil
}

// PurgeExpiredTokens drops refresh tokens that can no longer be used.
func (s *Accounts) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.PurgeExpiredRefreshTokens(ctx, s.now())
}

func (s *Accounts) issue(ctx context.Context, uid string) (*TokenPair, error) {
	access, err := s.signer.Sign(uid)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	now := s.now()
	rt := &model.RefreshToken{
		ID:        newID(),
		UserID:    uid,
		TokenHash: hash,
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}
	if err := s.tokens.CreateRefreshToken(ctx, rt); err != nil {
		return nil, storeErr(err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: raw, ExpiresIn: s.signer.TTL()}, nil
}
