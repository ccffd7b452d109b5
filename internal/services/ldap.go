package services

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-ldap/ldap/v3"
	"github.com/kanbanio/taskboard/pkg/logger"
	"gorm.io/gorm"
)

// LDAPService authenticates users against a directory server using the
// bind, search, re-bind flow. Settings live in the system config table so
// admins can change them at runtime.
type LDAPService struct {
	configSvc *SystemConfigService
}

type LDAPUserEntry struct {
	Username    string
	Email       string
	DisplayName string
	DN          string
}

type ldapSettings struct {
	Enabled      bool
	Host         string
	Port         int
	BaseDN       string
	BindDN       string
	BindPassword string
	UserFilter   string
	UseSSL       bool
}

func NewLDAPService(db *gorm.DB) *LDAPService {
	return &LDAPService{configSvc: NewSystemConfigService(db)}
}

func (s *LDAPService) settings() *ldapSettings {
	port, _ := strconv.Atoi(s.configSvc.GetWithDefault("ldap_port", "389"))
	return &ldapSettings{
		Enabled:      s.configSvc.GetWithDefault("ldap_enabled", "false") == "true",
		Host:         s.configSvc.GetWithDefault("ldap_host", ""),
		Port:         port,
		BaseDN:       s.configSvc.GetWithDefault("ldap_base_dn", ""),
		BindDN:       s.configSvc.GetWithDefault("ldap_bind_dn", ""),
		BindPassword: s.configSvc.GetWithDefault("ldap_bind_password", ""),
		UserFilter:   s.configSvc.GetWithDefault("ldap_user_filter", "(uid=%s)"),
		UseSSL:       s.configSvc.GetWithDefault("ldap_use_ssl", "false") == "true",
	}
}

func (s *LDAPService) Enabled() bool {
	return s != nil && s.settings().Enabled
}

func connect(cfg *ldapSettings) (*ldap.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	if cfg.UseSSL {
		return ldap.DialTLS("tcp", addr, &tls.Config{ServerName: cfg.Host})
	}
	return ldap.Dial("tcp", addr)
}

// Authenticate verifies the user's credentials and returns their directory
// attributes on success.
func (s *LDAPService) Authenticate(username, password string) (*LDAPUserEntry, error) {
	cfg := s.settings()
	if !cfg.Enabled {
		return nil, errors.New("ldap is not enabled")
	}
	if password == "" {
		return nil, errors.New("empty password")
	}

	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("ldap connect: %w", err)
	}
	defer conn.Close()

	// Service bind for the search
	if cfg.BindDN != "" {
		if err := conn.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
			return nil, fmt.Errorf("ldap service bind: %w", err)
		}
	}

	filter := fmt.Sprintf(cfg.UserFilter, ldap.EscapeFilter(username))
	searchReq := ldap.NewSearchRequest(
		cfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, 10, false,
		filter,
		[]string{"dn", "uid", "cn", "mail", "displayName", "sAMAccountName"},
		nil,
	)

	result, err := conn.Search(searchReq)
	if err != nil {
		return nil, fmt.Errorf("ldap search: %w", err)
	}
	if len(result.Entries) == 0 {
		return nil, errors.New("user not found in directory")
	}

	entry := result.Entries[0]

	// Re-bind as the user to verify the password
	if err := conn.Bind(entry.DN, password); err != nil {
		logger.Debugf("[LDAP] Bind failed for %s: %v", entry.DN, err)
		return nil, ErrInvalidCredentials
	}

	return &LDAPUserEntry{
		Username:    username,
		Email:       entry.GetAttributeValue("mail"),
		DisplayName: firstNonEmpty(entry.GetAttributeValue("displayName"), entry.GetAttributeValue("cn")),
		DN:          entry.DN,
	}, nil
}

// TestConnection verifies the service bind without authenticating a user.
func (s *LDAPService) TestConnection() error {
	cfg := s.settings()
	if !cfg.Enabled {
		return errors.New("ldap is not enabled")
	}

	conn, err := connect(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if cfg.BindDN != "" {
		return conn.Bind(cfg.BindDN, cfg.BindPassword)
	}
	// No service account configured; prove the server accepts anonymous
	// binds, since that is what Authenticate will rely on for the search.
	return conn.UnauthenticatedBind("")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
