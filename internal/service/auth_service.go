package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"storefront-api/internal/model"
)

const (
	tokenTypeAccess = "access"
	tokenTypeReset  = "reset"

	resetTokenTTL = 15 * time.Minute
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims carried by every token the API issues.
type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
	Type  string   `json:"type"`
}

// TokenService issues and validates HS256 tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *TokenService) IssueAccess(u *model.User) (string, error) {
	return s.sign(u.ID, Claims{Name: u.Name, Roles: u.Roles.Strings(), Type: tokenTypeAccess}, s.ttl)
}

func (s *TokenService) IssueReset(userID primitive.ObjectID) (string, error) {
	return s.sign(userID, Claims{Type: tokenTypeReset}, resetTokenTTL)
}

// ValidateAccess parses an access token into the actor it authenticates.
func (s *TokenService) ValidateAccess(token string) (Actor, error) {
	c, id, err := s.parse(token, tokenTypeAccess)
	if err != nil {
		return Actor{}, err
	}
	return Actor{ID: id, Name: c.Name, Roles: model.RolesFromStrings(c.Roles)}, nil
}

func (s *TokenService) ValidateReset(token string) (primitive.ObjectID, error) {
	_, id, err := s.parse(token, tokenTypeReset)
	return id, err
}

func (s *TokenService) sign(sub primitive.ObjectID, c Claims, ttl time.Duration) (string, error) {
	now := s.now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   sub.Hex(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	return signed, errors.Wrap(err, "sign token")
}

func (s *TokenService) parse(token, wantType string) (*Claims, primitive.ObjectID, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || c.Type != wantType {
		return nil, primitive.NilObjectID, ErrInvalidToken
	}
	id, err := primitive.ObjectIDFromHex(c.Subject)
	if err != nil {
		return nil, primitive.NilObjectID, ErrInvalidToken
	}
	return &c, id, nil
}

// HashPassword and CheckPassword wrap bcrypt at its default cost.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), errors.Wrap(err, "hash password")
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
