package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/apperr"
	"storefront-api/internal/logger"
	"storefront-api/internal/model"
	"storefront-api/internal/repository"
	"storefront-api/internal/storage"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 72 // bcrypt ignores anything longer
)

// Secrets gate self-service signup with an elevated role. An empty secret
// disables that role at signup.
type Secrets struct {
	Admin  string
	Seller string
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
	Secret   string
}

type ProfileInput struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}

// ClientInfo describes where a request came from, for activity logs.
type ClientInfo struct {
	IP        string
	UserAgent string
}

type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type UserStats struct {
	TotalUsers    int64 `json:"totalUsers"`
	ActiveUsers   int64 `json:"activeUsers"`
	InactiveUsers int64 `json:"inactiveUsers"`
}

type AdminStats struct {
	TotalUsers    int64 `json:"totalUsers"`
	TotalProducts int64 `json:"totalProducts"`
	TotalOrders   int64 `json:"totalOrders"`
}

type UserService struct {
	users     UserRepository
	products  ProductRepository
	orders    OrderRepository
	tokens    *TokenService
	mailer    Mailer
	images    ImageStore
	secrets   Secrets
	clientURL string
	log       *slog.Logger
}

func NewUserService(users UserRepository, products ProductRepository, orders OrderRepository, tokens *TokenService, mailer Mailer, images ImageStore, secrets Secrets, clientURL string, log *slog.Logger) *UserService {
	return &UserService{
		users:     users,
		products:  products,
		orders:    orders,
		tokens:    tokens,
		mailer:    mailer,
		images:    images,
		secrets:   secrets,
		clientURL: strings.TrimRight(clientURL, "/"),
		log:       log,
	}
}

func (s *UserService) logger(ctx context.Context) *slog.Logger {
	return logger.FromContext(ctx, s.log)
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLen || len(pw) > maxPasswordLen {
		return apperr.Validationf("INVALID_PASSWORD", "Password must be between %d and %d characters", minPasswordLen, maxPasswordLen)
	}
	return nil
}

func validateEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return "", apperr.Validation("INVALID_EMAIL", "A valid email is required")
	}
	return email, nil
}

func secretMatches(want, got string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

// Signup creates an account. Admin and seller accounts need the matching
// shared secret.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("MISSING_FIELDS", "Name is required")
	}
	email, err := validateEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = model.RoleUser
	}
	switch role {
	case model.RoleUser:
	case model.RoleAdmin:
		if !secretMatches(s.secrets.Admin, in.Secret) {
			return nil, apperr.Authentication("Invalid admin secret")
		}
	case model.RoleSeller:
		if !secretMatches(s.secrets.Seller, in.Secret) {
			return nil, apperr.Authentication("Invalid seller secret")
		}
	default:
		return nil, apperr.Validation("INVALID_ROLE", "Invalid role")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err, "Server error")
	}
	u := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Roles:        model.Roles{role},
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Validation("EMAIL_TAKEN", "User already exists")
		}
		return nil, storeErr(err, "User")
	}
	s.logger(ctx).Info("user signed up", "user_id", u.ID.Hex(), "role", string(role))
	return s.issue(u)
}

func (s *UserService) Login(ctx context.Context, email, password string, client ClientInfo) (*AuthResult, error) {
	u, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.recordActivity(ctx, u.ID, "login", client)
	return s.issue(u)
}

// AdminLogin is Login restricted to admins.
func (s *UserService) AdminLogin(ctx context.Context, email, password string, client ClientInfo) (*AuthResult, error) {
	u, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !u.Roles.Has(model.RoleAdmin) {
		return nil, apperr.Authentication("Not authorized as admin")
	}
	s.recordActivity(ctx, u.ID, "admin_login", client)
	return s.issue(u)
}

func (s *UserService) authenticate(ctx context.Context, email, password string) (*model.User, error) {
	invalid := apperr.Authentication("Invalid email or password")
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, storeErr(err, "User")
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, invalid
	}
	if err := usable(u); err != nil {
		return nil, err
	}
	return u, nil
}

func usable(u *model.User) error {
	if u.IsLocked {
		return apperr.Authorization("Account is locked")
	}
	if !u.IsActive {
		return apperr.Authorization("Account is inactive")
	}
	return nil
}

// Authenticate resolves an access token to the account it names. Name and
// roles come from the stored user, not from the token.
func (s *UserService) Authenticate(ctx context.Context, token string) (Actor, error) {
	caller, err := s.tokens.ValidateAccess(token)
	if err != nil {
		return Actor{}, apperr.Authentication("Not authorized, token failed")
	}
	u, err := s.users.FindByID(ctx, caller.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return Actor{}, apperr.Authentication("Not authorized, user not found")
	}
	if err != nil {
		return Actor{}, storeErr(err, "User")
	}
	if err := usable(u); err != nil {
		return Actor{}, err
	}
	return Actor{ID: u.ID, Name: u.Name, Roles: u.Roles}, nil
}

func (s *UserService) issue(u *model.User) (*AuthResult, error) {
	token, err := s.tokens.IssueAccess(u)
	if err != nil {
		return nil, apperr.Internal(err, "Server error")
	}
	return &AuthResult{Token: token, User: u}, nil
}

func (s *UserService) recordActivity(ctx context.Context, id primitive.ObjectID, action string, client ClientInfo) {
	entry := model.ActivityLog{
		Action:    action,
		Timestamp: time.Now().UTC(),
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
	}
	if err := s.users.AppendActivity(ctx, id, entry); err != nil {
		s.logger(ctx).Warn("activity log not recorded", "user_id", id.Hex(), "action", action, "error", err)
	}
}

func (s *UserService) Profile(ctx context.Context, actor Actor) (*model.User, error) {
	if !actor.Authenticated() {
		return nil, apperr.Authentication("Not authorized, no token")
	}
	u, err := s.users.FindByID(ctx, actor.ID)
	return u, storeErr(err, "User")
}

// UpdateProfile changes the caller's own details. A non-empty image
// replaces the profile picture.
func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, in ProfileInput, image []byte) (*model.User, error) {
	u, err := s.Profile(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := applyProfile(u, in); err != nil {
		return nil, err
	}
	if len(image) > 0 {
		img, err := s.images.Upload(ctx, storage.FolderProfileImages, image)
		if err != nil {
			return nil, imageErr(err)
		}
		u.ProfileImage = img.URL
	}
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func applyProfile(u *model.User, in ProfileInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return apperr.Validation("MISSING_FIELDS", "Name must not be empty")
		}
		u.Name = name
	}
	if in.Email != nil {
		email, err := validateEmail(*in.Email)
		if err != nil {
			return err
		}
		u.Email = email
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		u.Address = strings.TrimSpace(*in.Address)
	}
	return nil
}

func (s *UserService) save(ctx context.Context, u *model.User) error {
	err := s.users.Update(ctx, u)
	if errors.Is(err, repository.ErrDuplicate) {
		return apperr.Validation("EMAIL_TAKEN", "Email already in use")
	}
	return storeErr(err, "User")
}

func (s *UserService) DeleteAccount(ctx context.Context, actor Actor) error {
	if !actor.Authenticated() {
		return apperr.Authentication("Not authorized, no token")
	}
	if err := s.users.Delete(ctx, actor.ID); err != nil {
		return storeErr(err, "User")
	}
	s.logger(ctx).Info("account deleted", "user_id", actor.ID.Hex())
	return nil
}

func (s *UserService) ChangePassword(ctx context.Context, actor Actor, current, next string) error {
	u, err := s.Profile(ctx, actor)
	if err != nil {
		return err
	}
	if !CheckPassword(u.PasswordHash, current) {
		return apperr.Authentication("Current password is incorrect")
	}
	return s.setPassword(ctx, u, next)
}

func (s *UserService) setPassword(ctx context.Context, u *model.User, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return apperr.Internal(err, "Server error")
	}
	u.PasswordHash = hash
	return s.save(ctx, u)
}

// ForgotPassword mails a reset link valid for fifteen minutes.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return storeErr(err, "User")
	}
	token, err := s.tokens.IssueReset(u.ID)
	if err != nil {
		return apperr.Internal(err, "Server error")
	}

	link := fmt.Sprintf("%s/reset-password/%s", s.clientURL, token)
	body := fmt.Sprintf(`<p>Hello %s,</p>
<p>Click the link below to reset your password. It expires in 15 minutes.</p>
<p><a href="%s">Reset password</a></p>`, html.EscapeString(u.Name), link)
	if err := s.mailer.Send(ctx, u.Email, "Password reset", body); err != nil {
		return apperr.Internal(err, "Could not send reset email")
	}
	s.logger(ctx).Info("password reset requested", "user_id", u.ID.Hex())
	return nil
}

func (s *UserService) ResetPassword(ctx context.Context, token, password string) error {
	id, err := s.tokens.ValidateReset(token)
	if err != nil {
		return apperr.Validation("INVALID_TOKEN", "Invalid or expired token")
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return storeErr(err, "User")
	}
	return s.setPassword(ctx, u, password)
}

// Admin operations.

func (s *UserService) ListUsers(ctx context.Context, actor Actor, f repository.UserFilter) ([]*model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, f)
	return users, storeErr(err, "User")
}

func (s *UserService) GetUser(ctx context.Context, actor Actor, id primitive.ObjectID) (*model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, id)
	return u, storeErr(err, "User")
}

// UpdateUser lets an admin change a user's name and email.
func (s *UserService) UpdateUser(ctx context.Context, actor Actor, id primitive.ObjectID, name, email *string) (*model.User, error) {
	return s.mutateUser(ctx, actor, id, func(u *model.User) error {
		return applyProfile(u, ProfileInput{Name: name, Email: email})
	})
}

func (s *UserService) DeleteUser(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return storeErr(err, "User")
	}
	s.logger(ctx).Info("user deleted", "user_id", id.Hex(), "admin_id", actor.ID.Hex())
	return nil
}

// SetRole replaces the user's role set with the single given role.
func (s *UserService) SetRole(ctx context.Context, actor Actor, id primitive.ObjectID, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, apperr.Validation("INVALID_ROLE", "Invalid role")
	}
	return s.mutateUser(ctx, actor, id, func(u *model.User) error {
		u.Roles = model.Roles{role}
		return nil
	})
}

// GrantRoles adds roles to the user's set.
func (s *UserService) GrantRoles(ctx context.Context, actor Actor, id primitive.ObjectID, roles []string) (*model.User, error) {
	granted := model.RolesFromStrings(roles)
	if len(granted) == 0 || len(granted) != len(roles) {
		return nil, apperr.Validation("INVALID_ROLE", "Roles must be a non-empty list of user, admin or seller")
	}
	return s.mutateUser(ctx, actor, id, func(u *model.User) error {
		for _, r := range granted {
			u.Roles = u.Roles.With(r)
		}
		return nil
	})
}

func (s *UserService) Roles(ctx context.Context, actor Actor, id primitive.ObjectID) (model.Roles, error) {
	u, err := s.GetUser(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return u.Roles, nil
}

func (s *UserService) AdminResetPassword(ctx context.Context, actor Actor, id primitive.ObjectID, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return apperr.Internal(err, "Server error")
	}
	_, err = s.mutateUser(ctx, actor, id, func(u *model.User) error {
		u.PasswordHash = hash
		return nil
	})
	return err
}

func (s *UserService) VerifyEmail(ctx context.Context, actor Actor, id primitive.ObjectID) (*model.User, error) {
	return s.mutateUser(ctx, actor, id, func(u *model.User) error {
		u.IsEmailVerified = true
		return nil
	})
}

func (s *UserService) SetLocked(ctx context.Context, actor Actor, id primitive.ObjectID, locked bool) (*model.User, error) {
	if actor.ID == id && locked {
		return nil, apperr.Validation("SELF_LOCK", "You cannot lock your own account")
	}
	return s.mutateUser(ctx, actor, id, func(u *model.User) error {
		u.IsLocked = locked
		return nil
	})
}

func (s *UserService) ActivityLogs(ctx context.Context, actor Actor, id primitive.ObjectID) ([]model.ActivityLog, error) {
	u, err := s.GetUser(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return u.ActivityLogs, nil
}

func (s *UserService) mutateUser(ctx context.Context, actor Actor, id primitive.ObjectID, fn func(*model.User) error) (*model.User, error) {
	u, err := s.GetUser(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) UserStats(ctx context.Context, actor Actor) (*UserStats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	active := true
	total, err := s.users.Count(ctx, repository.UserFilter{})
	if err != nil {
		return nil, storeErr(err, "User")
	}
	activeCount, err := s.users.Count(ctx, repository.UserFilter{Active: &active})
	if err != nil {
		return nil, storeErr(err, "User")
	}
	return &UserStats{TotalUsers: total, ActiveUsers: activeCount, InactiveUsers: total - activeCount}, nil
}

func (s *UserService) AdminStats(ctx context.Context, actor Actor) (*AdminStats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var st AdminStats
	var err error
	if st.TotalUsers, err = s.users.Count(ctx, repository.UserFilter{}); err != nil {
		return nil, storeErr(err, "User")
	}
	if st.TotalProducts, err = s.products.Count(ctx); err != nil {
		return nil, storeErr(err, "Product")
	}
	if st.TotalOrders, err = s.orders.Count(ctx, repository.OrderFilter{}); err != nil {
		return nil, storeErr(err, "Order")
	}
	return &st, nil
}
