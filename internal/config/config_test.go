package config

import (
	"os"
	"testing"
	"time"
)

func TestGetenv(t *testing.T) {
	// Test with empty environment variable
	os.Unsetenv("TEST_GETENV")
	result := getenv("TEST_GETENV", "default")
	if result != "default" {
		t.Errorf("Expected default value 'default', got '%s'", result)
	}

	// Test with set environment variable
	os.Setenv("TEST_GETENV", "test-value")
	result = getenv("TEST_GETENV", "default")
	if result != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", result)
	}

	// Clean up
	os.Unsetenv("TEST_GETENV")
}

func TestGetenvInt(t *testing.T) {
	t.Setenv("TEST_GETENV_INT", "")
	result := getenvInt("TEST_GETENV_INT", 42)
	if result != 42 {
		t.Errorf("Expected default value 42, got %d", result)
	}

	t.Setenv("TEST_GETENV_INT", "100")
	result = getenvInt("TEST_GETENV_INT", 42)
	if result != 100 {
		t.Errorf("Expected 100, got %d", result)
	}

	t.Setenv("TEST_GETENV_INT", "not-an-int")
	result = getenvInt("TEST_GETENV_INT", 42)
	if result != 42 {
		t.Errorf("Expected default value 42, got %d", result)
	}
}

func TestGetenvBool(t *testing.T) {
	t.Setenv("TEST_GETENV_BOOL", "")
	if result := getenvBool("TEST_GETENV_BOOL", true); result != true {
		t.Errorf("Expected default value true, got %v", result)
	}

	t.Setenv("TEST_GETENV_BOOL", "true")
	if result := getenvBool("TEST_GETENV_BOOL", false); result != true {
		t.Errorf("Expected true, got %v", result)
	}

	t.Setenv("TEST_GETENV_BOOL", "false")
	if result := getenvBool("TEST_GETENV_BOOL", true); result != false {
		t.Errorf("Expected false, got %v", result)
	}

	t.Setenv("TEST_GETENV_BOOL", "not-a-bool")
	if result := getenvBool("TEST_GETENV_BOOL", true); result != true {
		t.Errorf("Expected default value true, got %v", result)
	}
}

func TestGetenvDuration(t *testing.T) {
	testCases := []struct {
		value    string
		expected time.Duration
	}{
		{"", DefaultRequestTimeout},
		{"5s", 5 * time.Second},
		{"1500ms", 1500 * time.Millisecond},
		{"7", 7 * time.Second},
		{"-3s", DefaultRequestTimeout},
		{"soon", DefaultRequestTimeout},
	}

	for _, tc := range testCases {
		t.Setenv("TEST_GETENV_DURATION", tc.value)
		result := getenvDuration("TEST_GETENV_DURATION", DefaultRequestTimeout)
		if result != tc.expected {
			t.Errorf("getenvDuration(%q) = %v, want %v", tc.value, result, tc.expected)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("COURSION_API_URL", "https://api.coursion.test/")
	t.Setenv("COURSION_REQUEST_TIMEOUT", "5s")
	t.Setenv("FIREBASE_API_KEY", "key")
	t.Setenv("SFTP_HOST", "sftp.test")
	t.Setenv("SFTP_PORT", "2222")
	t.Setenv("SFTP_USER", "sftp-user")
	t.Setenv("SFTP_PASS", "sftp-pass")
	t.Setenv("SFTP_DIR", "/test-upload")
	t.Setenv("SFTP_INSECURE_IGNORE_HOSTKEY", "false")

	cfg := Load()

	if cfg.APIBaseURL != "https://api.coursion.test" {
		t.Errorf("Expected APIBaseURL without trailing slash, got '%s'", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("Expected RequestTimeout to be 5s, got %v", cfg.RequestTimeout)
	}
	if cfg.FirebaseAPIKey != "key" {
		t.Errorf("Expected FirebaseAPIKey to be 'key', got '%s'", cfg.FirebaseAPIKey)
	}
	if cfg.SFTPPort != 2222 {
		t.Errorf("Expected SFTPPort to be 2222, got %d", cfg.SFTPPort)
	}
	if cfg.SFTPInsecureIgnoreHostKey != false {
		t.Errorf("Expected SFTPInsecureIgnoreHostKey to be false, got %v", cfg.SFTPInsecureIgnoreHostKey)
	}

	// Test default values
	t.Setenv("COURSION_API_URL", "")
	t.Setenv("COURSION_REQUEST_TIMEOUT", "")
	t.Setenv("SFTP_PORT", "")
	t.Setenv("SFTP_DIR", "")
	t.Setenv("SFTP_INSECURE_IGNORE_HOSTKEY", "")

	cfg = Load()
	if cfg.APIBaseURL != "http://localhost:3000" {
		t.Errorf("Expected default APIBaseURL, got '%s'", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("Expected default RequestTimeout, got %v", cfg.RequestTimeout)
	}
	if cfg.SFTPPort != 22 {
		t.Errorf("Expected default SFTPPort to be 22, got %d", cfg.SFTPPort)
	}
	if cfg.SFTPDir != "/inbound" {
		t.Errorf("Expected default SFTPDir to be '/inbound', got '%s'", cfg.SFTPDir)
	}
	if cfg.SFTPInsecureIgnoreHostKey != true {
		t.Errorf("Expected default SFTPInsecureIgnoreHostKey to be true, got %v", cfg.SFTPInsecureIgnoreHostKey)
	}
	if cfg.SessionFile == "" {
		t.Error("Expected a default SessionFile")
	}
}
