package services

import (
	"testing"
)

func TestSystemConfig_SetAndGet(t *testing.T) {
	db := newTestDB(t)
	svc := NewSystemConfigService(db)

	if err := svc.Set("email_host", "smtp.example.com"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, err := svc.Get("email_host")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != "smtp.example.com" {
		t.Errorf("value = %q, expected %q", value, "smtp.example.com")
	}

	// Overwrite
	if err := svc.Set("email_host", "smtp2.example.com"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	value, _ = svc.Get("email_host")
	if value != "smtp2.example.com" {
		t.Errorf("value after overwrite = %q, expected %q", value, "smtp2.example.com")
	}
}

func TestSystemConfig_GetWithDefault(t *testing.T) {
	db := newTestDB(t)
	svc := NewSystemConfigService(db)

	if v := svc.GetWithDefault("missing_key", "fallback"); v != "fallback" {
		t.Errorf("GetWithDefault = %q, expected %q", v, "fallback")
	}

	svc.Set("present_key", "actual")
	if v := svc.GetWithDefault("present_key", "fallback"); v != "actual" {
		t.Errorf("GetWithDefault = %q, expected %q", v, "actual")
	}
}

func TestSystemConfig_UpdateLDAPConfig_Partial(t *testing.T) {
	db := newTestDB(t)
	svc := NewSystemConfigService(db)

	svc.Set("ldap_bind_password", "secret")

	host := "ldap.example.com"
	enabled := true
	empty := ""
	err := svc.UpdateLDAPConfig(&UpdateLDAPConfigRequest{
		Enabled:      &enabled,
		Host:         &host,
		BindPassword: &empty,
	})
	if err != nil {
		t.Fatalf("UpdateLDAPConfig() error = %v", err)
	}

	cfg := svc.GetLDAPConfig()
	if !cfg.Enabled {
		t.Error("Enabled should be true")
	}
	if cfg.Host != host {
		t.Errorf("Host = %q, expected %q", cfg.Host, host)
	}
	// Untouched fields keep their defaults.
	if cfg.Port != 389 {
		t.Errorf("Port = %d, expected 389", cfg.Port)
	}
	// Blank bind password means "keep the existing one".
	if !cfg.PasswordSet {
		t.Error("bind password should be preserved")
	}
}

func TestLDAPService_DisabledByDefault(t *testing.T) {
	db := newTestDB(t)
	svc := NewLDAPService(db)

	if svc.Enabled() {
		t.Error("LDAP should be disabled on a fresh database")
	}
	if _, err := svc.Authenticate("alice", "password"); err == nil {
		t.Error("Authenticate should fail while LDAP is disabled")
	}
	if err := svc.TestConnection(); err == nil {
		t.Error("TestConnection should fail while LDAP is disabled")
	}
}

func TestSystemConfig_UpdateEmailConfig_PreservesPassword(t *testing.T) {
	db := newTestDB(t)
	svc := NewSystemConfigService(db)

	svc.Set("email_password", "secret")

	empty := ""
	if err := svc.UpdateEmailConfig(&UpdateEmailConfigRequest{Password: &empty}); err != nil {
		t.Fatalf("UpdateEmailConfig() error = %v", err)
	}

	// Blank password in the request means "keep the existing one".
	if v, _ := svc.Get("email_password"); v != "secret" {
		t.Errorf("password = %q, expected unchanged %q", v, "secret")
	}
}
