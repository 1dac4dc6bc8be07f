package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/verdelo/carbonledger-backend/internal/data/repos"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/pkg/ctxutil"
	apperrors "github.com/verdelo/carbonledger-backend/internal/pkg/errors"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *types.User, error)
	GetMe(ctx context.Context) (*types.User, *types.Company, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	HashPassword(password string) (string, error)
}

type authService struct {
	db          *gorm.DB
	log         *logger.Logger
	userRepo    repos.UserRepo
	companyRepo repos.CompanyRepo
	jwtSecret   string
	accessTTL   time.Duration
}

func NewAuthService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, companyRepo repos.CompanyRepo, jwtSecret string, accessTTL time.Duration) AuthService {
	serviceLog := log.With("service", "AuthService")
	return &authService{
		db:          db,
		log:         serviceLog,
		userRepo:    userRepo,
		companyRepo: companyRepo,
		jwtSecret:   jwtSecret,
		accessTTL:   accessTTL,
	}
}

func (as *authService) Login(ctx context.Context, email, password string) (string, *types.User, error) {
	ctx = ctxutil.Default(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := as.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		return "", nil, fmt.Errorf("error fetching user: %w", err)
	}
	if user == nil || !user.IsActive || user.PasswordHash == nil {
		return "", nil, fmt.Errorf("incorrect email or password: %w", apperrors.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("incorrect email or password: %w", apperrors.ErrUnauthorized)
	}

	token, err := as.generateAccessToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("error generating access token: %w", err)
	}

	as.log.Info("User logged in", "user_id", user.ID)
	return token, user, nil
}

func (as *authService) GetMe(ctx context.Context) (*types.User, *types.Company, error) {
	ctx = ctxutil.Default(ctx)
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, nil, fmt.Errorf("request data not set in context: %w", apperrors.ErrUnauthorized)
	}

	user, err := as.userRepo.GetByID(ctx, nil, rd.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("error fetching user: %w", err)
	}
	if user == nil {
		return nil, nil, fmt.Errorf("user not found: %w", apperrors.ErrNotFound)
	}

	company, err := as.companyRepo.GetByID(ctx, nil, user.CompanyID)
	if err != nil {
		return nil, nil, fmt.Errorf("error fetching company: %w", err)
	}
	if company == nil {
		return nil, nil, fmt.Errorf("company not found: %w", apperrors.ErrNotFound)
	}

	return user, company, nil
}

// SetContextFromToken validates the access token and loads the caller's
// identity into the request context for downstream handlers.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	ctx = ctxutil.Default(ctx)

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(as.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return ctx, fmt.Errorf("invalid token: %w", apperrors.ErrUnauthorized)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return ctx, fmt.Errorf("token missing subject: %w", apperrors.ErrUnauthorized)
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return ctx, fmt.Errorf("invalid token subject: %w", apperrors.ErrUnauthorized)
	}

	user, err := as.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return ctx, fmt.Errorf("error fetching user: %w", err)
	}
	if user == nil || !user.IsActive {
		return ctx, fmt.Errorf("user not found or inactive: %w", apperrors.ErrUnauthorized)
	}

	company, err := as.companyRepo.GetByID(ctx, nil, user.CompanyID)
	if err != nil {
		return ctx, fmt.Errorf("error fetching company: %w", err)
	}
	if company == nil {
		return ctx, fmt.Errorf("company not found: %w", apperrors.ErrUnauthorized)
	}

	rd := &ctxutil.RequestData{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Email:     user.Email,
		Demo:      user.IsDemo,
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func (as *authService) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	return string(hashed), nil
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": user.ID.String(),
		"iat": now.Unix(),
		"exp": now.Add(as.accessTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecret))
}
