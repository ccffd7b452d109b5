package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kanbanio/taskboard/internal/config"
	"github.com/kanbanio/taskboard/internal/models"
	"github.com/kanbanio/taskboard/internal/utils"
	"github.com/kanbanio/taskboard/pkg/logger"
	"gorm.io/gorm"
)

const refreshTokenTTL = 30 * 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserDisabled       = errors.New("user account is disabled")
	ErrInvalidRefresh     = errors.New("refresh token is invalid or expired")
)

type AuthService struct {
	db   *gorm.DB
	ldap *LDAPService
}

func NewAuthService(db *gorm.DB, ldap *LDAPService) *AuthService {
	return &AuthService{db: db, ldap: ldap}
}

type LoginResult struct {
	User         *models.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
}

// Login authenticates against the local user table first, then LDAP when
// enabled. LDAP users are provisioned on first login.
func (s *AuthService) Login(username, password, ip, userAgent string) (*LoginResult, error) {
	var user models.User
	err := s.db.Where("username = ?", username).First(&user).Error

	if err == nil && user.AuthType == models.AuthTypeLocal {
		if !utils.CheckPassword(password, user.Password) {
			SystemLogWarning("auth", "login_failed", "Invalid password for "+username, nil)
			return nil, ErrInvalidCredentials
		}
		return s.issueSession(&user, ip, userAgent)
	}

	if s.ldap != nil && s.ldap.Enabled() {
		entry, ldapErr := s.ldap.Authenticate(username, password)
		if ldapErr == nil {
			ldapUser, provErr := s.provisionLDAPUser(entry)
			if provErr != nil {
				return nil, provErr
			}
			return s.issueSession(ldapUser, ip, userAgent)
		}
		logger.Debugf("[Auth] LDAP authentication failed for %s: %v", username, ldapErr)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return nil, ErrInvalidCredentials
}

func (s *AuthService) issueSession(user *models.User, ip, userAgent string) (*LoginResult, error) {
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	expireHour := 24
	if config.GlobalConfig != nil && config.GlobalConfig.JWT.ExpireHour > 0 {
		expireHour = config.GlobalConfig.JWT.ExpireHour
	}

	token, err := utils.GenerateToken(user.ID, user.Username, user.Role, expireHour)
	if err != nil {
		return nil, err
	}

	refresh, err := s.createRefreshToken(s.db, user.ID, ip, userAgent, nil)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s.db.Model(user).Update("last_login", now)
	user.LastLogin = &now

	SystemLogInfo("auth", "login", "User "+user.Username+" logged in", &user.ID)

	return &LoginResult{User: user, Token: token, RefreshToken: refresh}, nil
}

// Refresh rotates the refresh token: the presented token is revoked and a
// replacement is issued in the same transaction, so a replayed token always
// fails the revoked check.
func (s *AuthService) Refresh(refreshToken, ip, userAgent string) (*LoginResult, error) {
	hash := hashSessionToken(refreshToken)

	var result *LoginResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var stored models.RefreshToken
		if err := tx.Where("token_hash = ?", hash).First(&stored).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}
		if stored.RevokedAt != nil || time.Now().After(stored.ExpiresAt) {
			return ErrInvalidRefresh
		}

		var user models.User
		if err := tx.First(&user, stored.UserID).Error; err != nil {
			return ErrInvalidRefresh
		}
		if !user.IsActive {
			return ErrUserDisabled
		}

		newPlain, err := s.createRefreshToken(tx, user.ID, ip, userAgent, &stored)
		if err != nil {
			return err
		}

		expireHour := 24
		if config.GlobalConfig != nil && config.GlobalConfig.JWT.ExpireHour > 0 {
			expireHour = config.GlobalConfig.JWT.ExpireHour
		}
		token, err := utils.GenerateToken(user.ID, user.Username, user.Role, expireHour)
		if err != nil {
			return err
		}

		result = &LoginResult{User: &user, Token: token, RefreshToken: newPlain}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Logout revokes the presented refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(refreshToken string) error {
	hash := hashSessionToken(refreshToken)
	now := time.Now()
	return s.db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hash).
		Update("revoked_at", now).Error
}

// createRefreshToken mints a new token, stores its hash, and when rotating
// revokes the previous row and links it to its replacement.
func (s *AuthService) createRefreshToken(tx *gorm.DB, userID uint, ip, userAgent string, replaced *models.RefreshToken) (string, error) {
	plain := uuid.NewString()
	row := models.RefreshToken{
		UserID:      userID,
		TokenHash:   hashSessionToken(plain),
		ExpiresAt:   time.Now().Add(refreshTokenTTL),
		CreatedByIP: ip,
		UserAgent:   userAgent,
	}
	if err := tx.Create(&row).Error; err != nil {
		return "", err
	}

	if replaced != nil {
		now := time.Now()
		if err := tx.Model(replaced).Updates(map[string]interface{}{
			"revoked_at":           now,
			"replaced_by_token_id": row.ID,
		}).Error; err != nil {
			return "", err
		}
	}

	return plain, nil
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"required,email"`
	Nickname string `json:"nickname"`
}

// Register creates a local user account. Emails are stored lower-cased so
// invitation matching is case-insensitive.
func (s *AuthService) Register(req *RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	s.db.Model(&models.User{}).Where("username = ? OR email = ?", req.Username, email).Count(&count)
	if count > 0 {
		return nil, ErrDuplicate
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username: req.Username,
		Password: hashed,
		Email:    email,
		Nickname: req.Nickname,
		Role:     models.RoleUser,
		AuthType: models.AuthTypeLocal,
		IsActive: true,
	}
	if user.Nickname == "" {
		user.Nickname = req.Username
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}

	SystemLogInfo("auth", "register", "User "+user.Username+" registered", &user.ID)
	return &user, nil
}

func (s *AuthService) ChangePassword(userID uint, oldPassword, newPassword string) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return ErrNotFound
	}
	if user.AuthType != models.AuthTypeLocal {
		return errors.New("password is managed by the directory server")
	}
	if !utils.CheckPassword(oldPassword, user.Password) {
		return ErrInvalidCredentials
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.db.Model(&user).Update("password", hashed).Error; err != nil {
		return err
	}

	// Force re-login everywhere
	now := time.Now()
	s.db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now)

	SystemLogInfo("auth", "change_password", "User "+user.Username+" changed password", &user.ID)
	return nil
}

func (s *AuthService) GetUserByID(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// provisionLDAPUser creates or refreshes the local shadow record for a
// directory user.
func (s *AuthService) provisionLDAPUser(entry *LDAPUserEntry) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(entry.Email))

	var user models.User
	err := s.db.Where("username = ?", entry.Username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Username: entry.Username,
			Email:    email,
			Nickname: entry.DisplayName,
			Role:     models.RoleUser,
			AuthType: models.AuthTypeLDAP,
			IsActive: true,
		}
		if user.Nickname == "" {
			user.Nickname = entry.Username
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		SystemLogInfo("auth", "ldap_provision", "Provisioned LDAP user "+user.Username, &user.ID)
		return &user, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if email != "" && user.Email != email {
		updates["email"] = email
	}
	if entry.DisplayName != "" && user.Nickname != entry.DisplayName {
		updates["nickname"] = entry.DisplayName
	}
	if len(updates) > 0 {
		s.db.Model(&user).Updates(updates)
	}
	return &user, nil
}

// CreateAdminIfNotExists seeds the initial admin account.
func (s *AuthService) CreateAdminIfNotExists(username, password, email string) error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	if count > 0 {
		return nil
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		Username: username,
		Password: hashed,
		Email:    strings.ToLower(email),
		Nickname: "Administrator",
		Role:     models.RoleAdmin,
		AuthType: models.AuthTypeLocal,
		IsActive: true,
	}
	if err := s.db.Create(&admin).Error; err != nil {
		return err
	}

	logger.Infof("[Auth] Created default admin user %q", username)
	return nil
}

func hashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
