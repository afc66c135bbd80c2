package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/and161185/vidgraph/internal/blob"
	"github.com/and161185/vidgraph/internal/crypto"
	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/limiter"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/pipeline"
	"github.com/and161185/vidgraph/internal/store"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// UserService defines account operations.
type UserService interface {
	// Register creates a user with a hashed credential.
	Register(ctx context.Context, in RegisterInput) (model.Account, error)
	// Login applies rate limiting by (login, client) and issues tokens.
	Login(ctx context.Context, login, password, client string) (model.Tokens, error)
	// Refresh exchanges a refresh token for a new token pair.
	Refresh(ctx context.Context, refreshToken string) (model.Tokens, error)
	// Logout revokes the caller's refresh token.
	Logout(ctx context.Context) error
	// ChangePassword replaces the caller's credential after checking the old one.
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
	// UpdateAccount changes the caller's full name, email or handle.
	UpdateAccount(ctx context.Context, p AccountPatch) (model.Account, error)
	// UpdateImage replaces the caller's avatar or cover image.
	UpdateImage(ctx context.Context, field ImageField, localPath string) (model.Account, error)
}

// RegisterInput describes a new account. Image paths are optional local files.
type RegisterInput struct {
	Handle     string
	Email      string
	FullName   string
	Password   string
	AvatarPath string
	CoverPath  string
}

// AccountPatch lists the account fields to change; nil means unchanged.
type AccountPatch struct {
	FullName *string
	Email    *string
	Handle   *string
}

// ImageField selects which account image UpdateImage replaces.
type ImageField string

// Account images.
const (
	Avatar ImageField = "avatar_url"
	Cover  ImageField = "cover_url"
)

type UserServiceImpl struct {
	base
	lim       limiter.Limiter
	blobs     blob.Store
	signKey   []byte
	accessTTL time.Duration
	now       func() time.Time
}

// NewUserService constructs UserService. blobs may be nil when image
// uploads are not configured.
func NewUserService(st store.Store, lim limiter.Limiter, blobs blob.Store, signKey []byte, accessTTL time.Duration, log *zap.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		base:      newBase(st, log),
		lim:       lim,
		blobs:     blobs,
		signKey:   signKey,
		accessTTL: accessTTL,
		now:       time.Now,
	}
}

func fold(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register validates input, uploads optional images and stores the user.
// Handle and email are case-folded; taken ones report errs.ErrConflict.
func (s *UserServiceImpl) Register(ctx context.Context, in RegisterInput) (model.Account, error) {
	handle, err := required("handle", fold(in.Handle))
	if err != nil {
		return model.Account{}, err
	}
	email, err := required("email", fold(in.Email))
	if err != nil {
		return model.Account{}, err
	}
	fullName, err := required("full name", in.FullName)
	if err != nil {
		return model.Account{}, err
	}
	if strings.TrimSpace(in.Password) == "" {
		return model.Account{}, fmt.Errorf("password is required: %w", errs.ErrValidation)
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return model.Account{}, err
	}
	id, err := s.newID()
	if err != nil {
		return model.Account{}, err
	}
	u := model.User{ID: id, Handle: handle, Email: email, FullName: fullName, PasswordHash: hash}

	var uploaded []string
	for _, img := range []struct {
		path string
		dst  *string
	}{{in.AvatarPath, &u.AvatarURL}, {in.CoverPath, &u.CoverURL}} {
		if img.path == "" {
			continue
		}
		obj, err := s.upload(ctx, img.path, blob.Image)
		if err != nil {
			s.discard(ctx, uploaded...)
			return model.Account{}, err
		}
		*img.dst = obj.URL
		uploaded = append(uploaded, obj.URL)
	}

	if _, err := s.store.Insert(ctx, model.Users, u.Fields()); err != nil {
		s.discard(ctx, uploaded...)
		return model.Account{}, fmt.Errorf("register %q: %w", handle, err)
	}
	rec, err := s.store.FindByID(ctx, model.Users, id)
	if err != nil {
		return model.Account{}, err
	}
	return decodeRecord[model.Account](rec)
}

func (s *UserServiceImpl) upload(ctx context.Context, path string, kind blob.Kind) (blob.Object, error) {
	if s.blobs == nil {
		return blob.Object{}, fmt.Errorf("blob store not configured: %w", errs.ErrDependency)
	}
	return s.blobs.Upload(ctx, path, kind)
}

// discard deletes blobs best-effort.
func (s *UserServiceImpl) discard(ctx context.Context, urls ...string) {
	discardBlobs(ctx, s.blobs, s.log, urls...)
}

// findLogin resolves a login by handle, then by email.
func (s *UserServiceImpl) findLogin(ctx context.Context, login string) (store.Record, error) {
	rec, err := s.store.FindOne(ctx, model.Users, byField("handle", login))
	if err != nil || rec != nil || !strings.Contains(login, "@") {
		return rec, err
	}
	return s.store.FindOne(ctx, model.Users, byField("email", login))
}

// Login authenticates with rate limiting by (login, client).
func (s *UserServiceImpl) Login(ctx context.Context, login, password, client string) (model.Tokens, error) {
	login = fold(login)
	if login == "" || password == "" {
		return model.Tokens{}, fmt.Errorf("login and password are required: %w", errs.ErrValidation)
	}
	clientHash := limiter.HashClient(client)

	allowed, retry, err := s.lim.Allow(ctx, login, clientHash)
	if err != nil {
		return model.Tokens{}, fmt.Errorf("login limiter: %w: %v", errs.ErrDependency, err)
	}
	if !allowed {
		return model.Tokens{}, fmt.Errorf("retry in %s: %w", retry.Round(time.Second), errs.ErrRateLimited)
	}

	rec, err := s.findLogin(ctx, login)
	if err != nil {
		return model.Tokens{}, err
	}
	ok := false
	if rec != nil {
		hash, _ := rec["password_hash"].(string)
		if ok, err = crypto.VerifyPassword(password, hash); err != nil {
			s.log.Warn("stored credential unreadable", zap.Stringer("user_id", rec.ID()), zap.Error(err))
		}
	}
	if !ok {
		if blocked, _, ferr := s.lim.Failure(ctx, login, clientHash); ferr == nil && blocked {
			return model.Tokens{}, errs.ErrRateLimited
		} else if ferr != nil {
			s.log.Warn("record login failure", zap.Error(ferr))
		}
		// unknown login and wrong password look the same
		return model.Tokens{}, fmt.Errorf("bad credentials: %w", errs.ErrUnauthorized)
	}

	if err := s.lim.Success(ctx, login, clientHash); err != nil {
		s.log.Warn("reset login failures", zap.Error(err))
	}
	return s.issue(ctx, rec.ID(), "")
}

// issue mints a token pair for id. A non-empty prev makes the refresh token
// swap conditional on prev still being current, so one refresh token
// rotates at most once.
func (s *UserServiceImpl) issue(ctx context.Context, id uuid.UUID, prev string) (model.Tokens, error) {
	access, exp, err := issueAccessToken(s.signKey, s.accessTTL, id, s.now())
	if err != nil {
		return model.Tokens{}, err
	}
	refresh, err := crypto.NewToken(32)
	if err != nil {
		return model.Tokens{}, err
	}
	var cond pipeline.Filter
	if prev != "" {
		cond = byField("refresh_token", prev)
	}
	if _, err := s.store.UpdateByIDIf(ctx, model.Users, id, cond, store.Record{"refresh_token": refresh}); err != nil {
		if prev != "" && errors.Is(err, errs.ErrNotFound) {
			return model.Tokens{}, fmt.Errorf("refresh token already rotated: %w", errs.ErrUnauthorized)
		}
		return model.Tokens{}, fmt.Errorf("store refresh token: %w", err)
	}
	return model.Tokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

// Refresh rotates the token pair of the user holding refreshToken.
func (s *UserServiceImpl) Refresh(ctx context.Context, refreshToken string) (model.Tokens, error) {
	if refreshToken == "" {
		return model.Tokens{}, fmt.Errorf("refresh token: %w", errs.ErrUnauthorized)
	}
	rec, err := s.store.FindOne(ctx, model.Users, byField("refresh_token", refreshToken))
	if err != nil {
		return model.Tokens{}, err
	}
	if rec == nil {
		return model.Tokens{}, fmt.Errorf("refresh token: %w", errs.ErrUnauthorized)
	}
	return s.issue(ctx, rec.ID(), refreshToken)
}

// Logout clears the caller's refresh token. Access tokens expire on their own.
func (s *UserServiceImpl) Logout(ctx context.Context) error {
	uid, err := caller(ctx)
	if err != nil {
		return err
	}
	_, err = s.store.UpdateByID(ctx, model.Users, uid, store.Record{"refresh_token": ""})
	return err
}

// ChangePassword verifies oldPassword before storing the new hash.
func (s *UserServiceImpl) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	uid, err := caller(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(newPassword) == "" {
		return fmt.Errorf("new password is required: %w", errs.ErrValidation)
	}
	rec, err := s.store.FindByID(ctx, model.Users, uid)
	if err != nil {
		return err
	}
	hash, _ := rec["password_hash"].(string)
	ok, err := crypto.VerifyPassword(oldPassword, hash)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("old password mismatch: %w", errs.ErrValidation)
	}
	next, err := crypto.HashPassword(newPassword)
	if err != nil {
		return err
	}
	_, err = s.store.UpdateByID(ctx, model.Users, uid, store.Record{"password_hash": next})
	return err
}

// UpdateAccount applies p to the caller. A taken handle or email reports
// errs.ErrConflict.
func (s *UserServiceImpl) UpdateAccount(ctx context.Context, p AccountPatch) (model.Account, error) {
	uid, err := caller(ctx)
	if err != nil {
		return model.Account{}, err
	}
	patch := store.Record{}
	for _, f := range []struct {
		name, label string
		v           *string
		fold        bool
	}{
		{"full_name", "full name", p.FullName, false},
		{"email", "email", p.Email, true},
		{"handle", "handle", p.Handle, true},
	} {
		if f.v == nil {
			continue
		}
		v := *f.v
		if f.fold {
			v = fold(v)
		}
		if v, err = required(f.label, v); err != nil {
			return model.Account{}, err
		}
		patch[f.name] = v
	}
	if len(patch) == 0 {
		return model.Account{}, fmt.Errorf("nothing to update: %w", errs.ErrValidation)
	}
	rec, err := s.store.UpdateByID(ctx, model.Users, uid, patch)
	if err != nil {
		return model.Account{}, fmt.Errorf("update account: %w", err)
	}
	return decodeRecord[model.Account](rec)
}

// UpdateImage uploads localPath and swaps it in; the old image is deleted
// best-effort.
func (s *UserServiceImpl) UpdateImage(ctx context.Context, field ImageField, localPath string) (model.Account, error) {
	uid, err := caller(ctx)
	if err != nil {
		return model.Account{}, err
	}
	if field != Avatar && field != Cover {
		return model.Account{}, fmt.Errorf("image field %q: %w", field, errs.ErrInvalidReference)
	}
	if localPath == "" {
		return model.Account{}, fmt.Errorf("image file is required: %w", errs.ErrValidation)
	}
	cur, err := s.store.FindByID(ctx, model.Users, uid)
	if err != nil {
		return model.Account{}, err
	}
	obj, err := s.upload(ctx, localPath, blob.Image)
	if err != nil {
		return model.Account{}, err
	}
	rec, err := s.store.UpdateByID(ctx, model.Users, uid, store.Record{string(field): obj.URL})
	if err != nil {
		s.discard(ctx, obj.URL)
		return model.Account{}, err
	}
	if old, _ := cur[string(field)].(string); old != "" {
		s.discard(ctx, old)
	}
	return decodeRecord[model.Account](rec)
}

func discardBlobs(ctx context.Context, blobs blob.Store, log *zap.Logger, urls ...string) {
	if blobs == nil {
		return
	}
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, err := blobs.Delete(ctx, u); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("delete blob", zap.String("url", u), zap.Error(err))
		}
	}
}
