package totp_test

import (
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/accounts/internal/totp"
)

// RFC 6238 appendix B secrets, base32 encoded.
const (
	rfcSecretSHA1   = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
	rfcSecretSHA256 = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQGEZA"
)

func TestGenerate_RFC6238Vectors(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		alg    totp.Algorithm
		at     int64
		want   string
	}{
		{"sha1 t=59", rfcSecretSHA1, totp.SHA1, 59, "94287082"},
		{"sha1 t=1111111109", rfcSecretSHA1, totp.SHA1, 1111111109, "07081804"},
		{"sha256 t=59", rfcSecretSHA256, totp.SHA256, 59, "46119246"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := totp.Config{
				Secret:    tt.secret,
				Algorithm: tt.alg,
				Digits:    8,
				Period:    30 * time.Second,
				CharSet:   totp.DigitCharSet,
			}
			got, err := cfg.Generate(time.Unix(tt.at, 0))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("code = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerate_CustomCharSet(t *testing.T) {
	cfg := totp.Verification(rfcSecretSHA256, 10*time.Minute)
	got, err := cfg.Generate(time.Unix(100*600, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "E2XB17" {
		t.Errorf("code = %q, want %q", got, "E2XB17")
	}
	for _, r := range got {
		if !strings.ContainsRune(totp.CodeCharSet, r) {
			t.Errorf("code %q contains %q outside the charset", got, r)
		}
	}
}

func TestVerify_WindowBoundaries(t *testing.T) {
	const period = 10 * time.Minute
	secret, err := totp.NewSecret()
	if err != nil {
		t.Fatalf("new secret: %v", err)
	}
	cfg := totp.Verification(secret, period)

	issued := time.Unix(1_000*600, 0)
	code, err := cfg.Generate(issued)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"same step", issued.Add(period - time.Second), true},
		{"one step later", issued.Add(period), true},
		{"last second of next step", issued.Add(2*period - time.Second), true},
		{"two steps later", issued.Add(2 * period), false},
		{"one step earlier", issued.Add(-time.Second), true},
		{"two steps earlier", issued.Add(-period - time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.Verify(code, tt.at, 1); got != tt.want {
				t.Errorf("Verify at %s = %v, want %v", tt.at.Sub(issued), got, tt.want)
			}
		})
	}
}

func TestVerify_CaseInsensitiveForUppercaseCharSet(t *testing.T) {
	secret, _ := totp.NewSecret()
	cfg := totp.Verification(secret, 10*time.Minute)
	now := time.Now()
	code, _ := cfg.Generate(now)

	if !cfg.Verify(strings.ToLower(code), now, 1) {
		t.Error("lowercase code was rejected")
	}
}

func TestVerify_RejectsWrongCodeAndBadSecret(t *testing.T) {
	now := time.Now()
	cfg := totp.Authenticator(rfcSecretSHA1)
	code, _ := cfg.Generate(now)

	wrong := []byte(code)
	wrong[0] = '0' + (wrong[0]-'0'+1)%10
	if cfg.Verify(string(wrong), now, 1) {
		t.Error("altered code accepted")
	}

	bad := totp.Authenticator("not base32!!")
	if bad.Verify(code, now, 1) {
		t.Error("code accepted with an undecodable secret")
	}
	if _, err := bad.Generate(now); err == nil {
		t.Error("Generate with undecodable secret: want error")
	}
}

func TestKeyURI(t *testing.T) {
	uri := totp.Authenticator(rfcSecretSHA1).KeyURI("Accounts", "alice")
	for _, want := range []string{
		"otpauth://totp/Accounts:alice?",
		"secret=" + rfcSecretSHA1,
		"algorithm=SHA1",
		"digits=6",
		"period=30",
	} {
		if !strings.Contains(uri, want) {
			t.Errorf("uri %q missing %q", uri, want)
		}
	}
}
