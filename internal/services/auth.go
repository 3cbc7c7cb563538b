package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tunebox/internal/models"
	"tunebox/internal/utils"
)

// AuthService handles registration, credential checks and token issuance
type AuthService struct {
	db           *gorm.DB
	jwtSecret    string
	accessExpiry time.Duration
	bcryptCost   int
	logger       *zerolog.Logger
	now          func() time.Time
	compareHash  func(hash, password []byte) error

	// compared on unknown usernames so both login failures cost one bcrypt run
	dummyOnce sync.Once
	dummyHash []byte
}

// AuthUser represents user information in the token
type AuthUser struct {
	ID       int64  `json:"user_id"`
	Username string `json:"username"`
	RoleID   int    `json:"role_id"`
}

// Claims represents JWT claims
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	RoleID   int    `json:"role_id"`
	jwt.RegisteredClaims
}

// LoginResult is a successful credential check
type LoginResult struct {
	Token string
	User  *models.User
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB, jwtSecret string, accessExpiry time.Duration, logger *zerolog.Logger) *AuthService {
	if accessExpiry <= 0 {
		accessExpiry = time.Hour
	}
	return &AuthService{
		db:           db,
		jwtSecret:    jwtSecret,
		accessExpiry: accessExpiry,
		bcryptCost:   bcrypt.DefaultCost,
		logger:       logger,
		now:          time.Now,
		compareHash:  bcrypt.CompareHashAndPassword,
	}
}

// SetBcryptCost overrides the hashing cost, tests use bcrypt.MinCost
func (a *AuthService) SetBcryptCost(cost int) {
	a.bcryptCost = cost
}

// ParseRole accepts a role name (Listener, Artist, Admin) or its numeric id
func ParseRole(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.Atoi(raw); err == nil {
		if models.RoleName(id) == "" {
			return 0, fmt.Errorf("%w: unknown role %d", ErrInvalidInput, id)
		}
		return id, nil
	}
	for _, id := range []int{models.RoleListener, models.RoleArtist, models.RoleAdmin} {
		if strings.EqualFold(models.RoleName(id), raw) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, raw)
}

// Register creates an account and returns a token for it. Artist accounts get
// an unverified artist profile in the same transaction. Admin accounts cannot
// be created here.
func (a *AuthService) Register(username, password string, roleID int) (*LoginResult, error) {
	if roleID == models.RoleAdmin {
		return nil, fmt.Errorf("%w: admin accounts cannot be self-registered", ErrForbidden)
	}
	if models.RoleName(roleID) == "" {
		return nil, fmt.Errorf("%w: unknown role %d", ErrInvalidInput, roleID)
	}

	user, err := a.createAccount(username, password, roleID)
	if err != nil {
		return nil, err
	}
	return a.issue(user)
}

// CreateAdmin creates an administrator account
func (a *AuthService) CreateAdmin(username, password string) (*LoginResult, error) {
	user, err := a.createAccount(username, password, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if a.logger != nil {
		a.logger.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("Admin account created")
	}
	return a.issue(user)
}

func (a *AuthService) createAccount(username, password string, roleID int) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if len(username) > 255 {
		return nil, fmt.Errorf("%w: username is too long", ErrInvalidInput)
	}
	if err := utils.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := a.now()
	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		RoleID:       roleID,
		DisplayName:  username,
		CreatedAt:    now,
	}

	err = a.db.Transaction(func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		taken, err := repo.UsernameExists(username)
		if err != nil {
			return err
		}
		if taken {
			return ErrUsernameTaken
		}
		if err := repo.CreateUser(user); err != nil {
			return err
		}
		if user.ID == 0 {
			return ErrMissingIdentifier
		}
		if roleID != models.RoleArtist {
			return nil
		}
		return repo.CreateArtist(&models.Artist{
			UserID:     user.ID,
			ArtistName: username,
			CreatedAt:  now,
		})
	})
	if err != nil {
		if !errors.Is(err, ErrUsernameTaken) {
			// a concurrent registration can win between the check and the insert
			if taken, lookupErr := NewRepository(a.db).UsernameExists(username); lookupErr == nil && taken {
				return nil, ErrUsernameTaken
			}
		}
		return nil, fmt.Errorf("failed to register %q: %w", username, err)
	}
	return user, nil
}

// UsernameAvailable reports whether no account uses username
func (a *AuthService) UsernameAvailable(username string) (bool, error) {
	taken, err := NewRepository(a.db).UsernameExists(strings.TrimSpace(username))
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// Login checks credentials and issues an access token
func (a *AuthService) Login(username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	user, err := NewRepository(a.db).GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// same error and same bcrypt work as a wrong password
			_ = a.compareHash(a.unknownUserHash(), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := a.compareHash([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return a.issue(user)
}

// unknownUserHash is a hash of a random secret at the service's cost
func (a *AuthService) unknownUserHash() []byte {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), a.bcryptCost)
	})
	return a.dummyHash
}

// ValidateToken validates an access token and returns user info
func (a *AuthService) ValidateToken(tokenString string) (*AuthUser, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.jwtSecret), nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return &AuthUser{
		ID:       claims.UserID,
		Username: claims.Username,
		RoleID:   claims.RoleID,
	}, nil
}

// IssueToken signs an access token for user
func (a *AuthService) IssueToken(user *models.User) (string, error) {
	now := a.now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RoleID:   user.RoleID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.accessExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.jwtSecret))
}

func (a *AuthService) issue(user *models.User) (*LoginResult, error) {
	token, err := a.IssueToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	return &LoginResult{Token: token, User: user}, nil
}
