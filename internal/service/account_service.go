package service

import (
	"context"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	msgUnknownEmail      = "User with the specified email does not exist."
	msgIncorrectPassword = "Incorrect password"
	msgEmailTaken        = "Email is already taken"
)

// AccountService registers, authenticates and edits accounts, and resolves
// the account behind a verified credential.
type AccountService struct {
	users  repository.UserRepository
	images *ImageService
	issuer *auth.Issuer
	cache  *cache.Store
}

// RegisterRequest carries a registration form. Errors holds upload problems
// found while the form was read.
type RegisterRequest struct {
	Input  validation.RegisterInput
	Pfp    *UploadImageInput
	Errors models.FieldErrors
}

// ProfileRequest carries a profile update form.
type ProfileRequest struct {
	Input  validation.ProfileInput
	Pfp    *UploadImageInput
	Errors models.FieldErrors
}

func NewAccountService(
	users repository.UserRepository,
	images *ImageService,
	issuer *auth.Issuer,
	store *cache.Store,
) *AccountService {
	return &AccountService{users: users, images: images, issuer: issuer, cache: store}
}

// Register creates a standard account and returns a credential for it.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (token string, err error) {
	ctx, end := observability.StartSpan(ctx, "service", "AccountService.Register")
	defer func() {
		end(err)
		recordAuth("register", err)
	}()

	in := req.Input
	errs := validation.Merge(in.Validate(), req.Errors)
	if !hasPath(errs, "email") {
		existing, lookupErr := s.users.GetByEmail(ctx, in.Email)
		if lookupErr != nil {
			return "", lookupErr
		}
		if existing != nil {
			errs = append(errs, models.FieldError{Location: "body", Path: "email", Msg: msgEmailTaken, Value: in.Email})
		}
	}
	pfp, errs, err := s.images.PrepareInto(ctx, req.Pfp, errs)
	if err != nil {
		return "", err
	}
	if len(errs) > 0 {
		return "", errs
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	user := &models.User{
		ID:          uuid.New(),
		Email:       in.Email,
		Password:    hash,
		DisplayName: in.DisplayName,
		Role:        models.RoleStandard,
	}

	// The credential only needs the account id, so signing runs alongside the write.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		signed, signErr := s.issuer.Sign(user.ID)
		if signErr != nil {
			return models.NewInternalError(signErr)
		}
		token = signed
		return nil
	})
	g.Go(func() error {
		return s.users.Create(gctx, user, pfp)
	})
	if err = g.Wait(); err != nil {
		return "", err
	}

	middleware.Logger.InfoContext(ctx, "account registered", "account_id", user.ID)
	return token, nil
}

// Login checks the credentials and returns a fresh token.
func (s *AccountService) Login(ctx context.Context, in validation.LoginInput) (token string, err error) {
	ctx, end := observability.StartSpan(ctx, "service", "AccountService.Login")
	defer func() {
		end(err)
		recordAuth("login", err)
	}()

	errs := in.Validate()
	var user *models.User
	if !hasPath(errs, "email") {
		user, err = s.users.GetByEmail(ctx, in.Email)
		if err != nil {
			return "", err
		}
		if user == nil {
			errs = append(errs, models.FieldError{Location: "body", Path: "email", Msg: msgUnknownEmail, Value: in.Email})
		}
	}
	if user != nil && !hasPath(errs, "password") {
		ok, checkErr := auth.CheckPassword(user.Password, in.Password)
		if checkErr != nil {
			return "", models.NewInternalError(checkErr)
		}
		if !ok {
			errs = append(errs, models.FieldError{Location: "body", Path: "password", Msg: msgIncorrectPassword})
		}
	}
	if len(errs) > 0 {
		return "", errs
	}

	token, err = s.issuer.Sign(user.ID)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return token, nil
}

// Resolve returns the account for id without its password hash. Lookups are
// cached; a missing account is a NOT_FOUND error.
func (s *AccountService) Resolve(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var account models.User
	err := s.cache.Aside(ctx, cache.AccountKey(id), &account, cache.AccountTTL, func() error {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		account = *user
		return nil
	})
	if err != nil {
		return nil, err
	}
	account.Password = ""
	account.PfpURL = models.ImageURL(account.PfpID)
	return &account, nil
}

// UpdateProfile applies a profile form to the caller's own account.
func (s *AccountService) UpdateProfile(ctx context.Context, id auth.Identity, req ProfileRequest) (user *models.User, err error) {
	ctx, end := observability.StartSpan(ctx, "service", "AccountService.UpdateProfile")
	defer func() { end(err) }()

	if !id.IsAuthenticated() {
		return nil, models.NewForbiddenError("Login required")
	}

	in := req.Input
	errs := validation.Merge(in.Validate(), req.Errors)

	// The identity never carries the hash, so the stored row is read again.
	user, err = s.users.GetByID(ctx, id.AccountID())
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewForbiddenError("Account no longer exists")
		}
		return nil, err
	}

	if in.NewPassword != "" && in.OldPassword != "" && !hasPath(errs, "newPassword") {
		ok, checkErr := auth.CheckPassword(user.Password, in.OldPassword)
		if checkErr != nil {
			return nil, models.NewInternalError(checkErr)
		}
		if !ok {
			errs = append(errs, models.FieldError{Location: "body", Path: "oldPassword", Msg: msgIncorrectPassword})
		}
	}
	pfp, errs, err := s.images.PrepareInto(ctx, req.Pfp, errs)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, errs
	}

	if in.DisplayName != nil {
		user.DisplayName = *in.DisplayName
	}
	if in.NewPassword != "" {
		hash, hashErr := auth.HashPassword(in.NewPassword)
		if hashErr != nil {
			return nil, models.NewInternalError(hashErr)
		}
		user.Password = hash
	}
	if pfp == nil && in.ClearPfp {
		user.PfpID = nil
	}

	if err = s.users.Update(ctx, user, pfp); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.AccountKey(user.ID))

	user.Password = ""
	return user, nil
}

// SetRole changes the role of the account registered under email and drops
// its cached resolution so the new role applies to the next request.
func (s *AccountService) SetRole(ctx context.Context, email string, role models.Role) (*models.User, error) {
	user, err := s.users.SetRole(ctx, email, role)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.AccountKey(user.ID))
	middleware.Logger.InfoContext(ctx, "account role changed", "account_id", user.ID, "role", role)
	return user, nil
}

func recordAuth(action string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		if _, ok := asFieldErrors(err); ok {
			outcome = "rejected"
		}
	}
	observability.AuthAttempts.WithLabelValues(action, outcome).Inc()
}
