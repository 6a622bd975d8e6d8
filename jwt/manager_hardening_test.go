package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func newHSManager(t *testing.T, use TokenUse, secret string) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Use:           use,
		TTL:           time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte(secret),
		Issuer:        "otpauth",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestCreateAndParse(t *testing.T) {
	m := newHSManager(t, UseAccess, "access-secret-access-secret-0001")

	token, expiresAt, err := m.Create("user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d := time.Until(expiresAt); d < 59*time.Minute || d > time.Hour {
		t.Fatalf("unexpected expiry distance: %v", d)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UID != "user-1" || claims.Use != UseAccess {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestCreateRejectsEmptyUID(t *testing.T) {
	m := newHSManager(t, UseAccess, "access-secret-access-secret-0001")
	if _, _, err := m.Create(""); !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("expected ErrMissingSubject, got %v", err)
	}
}

func TestRefreshTokenRejectedByAccessManager(t *testing.T) {
	access := newHSManager(t, UseAccess, "access-secret-access-secret-0001")
	refresh := newHSManager(t, UseRefresh, "refresh-secret-refresh-secret-01")

	token, _, err := refresh.Create("user-1")
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}
	if _, err := access.Parse(token); err == nil {
		t.Fatal("expected refresh token to fail access verification")
	}
	if _, err := refresh.Parse(token); err != nil {
		t.Fatalf("expected refresh token to verify with refresh manager: %v", err)
	}
}

func TestUseClaimCheckedWithSharedKey(t *testing.T) {
	access := newHSManager(t, UseAccess, "shared-secret-shared-secret-0001")
	refresh := newHSManager(t, UseRefresh, "shared-secret-shared-secret-0001")

	token, _, err := refresh.Create("user-1")
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}
	if _, err := access.Parse(token); !errors.Is(err, ErrWrongTokenUse) {
		t.Fatalf("expected ErrWrongTokenUse, got %v", err)
	}
}

func TestParseRejectsTamperedAndExpired(t *testing.T) {
	m := newHSManager(t, UseAccess, "access-secret-access-secret-0001")

	token, _, err := m.Create("user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.Parse(token + "x"); err == nil {
		t.Fatal("expected tampered token to fail")
	}

	expired, _, err := m.createAt("user-1", time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("create expired: %v", err)
	}
	if _, err := m.Parse(expired); !errors.Is(err, gjwt.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseRejectsMissingExpiry(t *testing.T) {
	secret := []byte("access-secret-access-secret-0001")
	m := newHSManager(t, UseAccess, string(secret))

	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, Claims{UID: "u", Use: UseAccess, RegisteredClaims: gjwt.RegisteredClaims{Issuer: "otpauth"}})
	signed, err := tok.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Parse(signed); err == nil {
		t.Fatal("expected token without exp to fail")
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{Use: UseAccess, TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{UID: "u", Use: UseAccess, RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	token, err := tok.SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestParseIssuerAudienceAndLeeway(t *testing.T) {
	_, priv := newEdKeys(t)
	m, err := NewManager(Config{
		Use:           UseAccess,
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     priv.Public().(ed25519.PublicKey),
		Issuer:        "otpauth",
		Audience:      "api",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	access, _, err := m.Create("u")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if _, err := m.Parse(access); err != nil {
		t.Fatalf("expected valid token to parse: %v", err)
	}

	sign := func(issuer, audience string, exp time.Time) string {
		claims := Claims{UID: "u", Use: UseAccess, RegisteredClaims: gjwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  gjwt.ClaimStrings{audience},
			ExpiresAt: gjwt.NewNumericDate(exp),
			IssuedAt:  gjwt.NewNumericDate(exp.Add(-time.Minute)),
		}}
		signed, err := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims).SignedString(priv)
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		return signed
	}

	if _, err := m.Parse(sign("other", "api", time.Now().Add(time.Minute))); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}
	if _, err := m.Parse(sign("otpauth", "other-api", time.Now().Add(time.Minute))); err == nil {
		t.Fatal("expected wrong audience to fail")
	}
	if _, err := m.Parse(sign("otpauth", "api", time.Now().Add(-15*time.Second))); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}
	if _, err := m.Parse(sign("otpauth", "api", time.Now().Add(-2*time.Minute))); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestParseUnknownKidFails(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, _ := newEdKeys(t)
	m, err := NewManager(Config{
		Use:           UseAccess,
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv1,
		PublicKey:     pub1,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub1},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{UID: "u", Use: UseAccess, RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims)
	tok.Header["kid"] = "k2"
	token, err := tok.SignedString(priv1)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected unknown kid failure")
	}

	good, _, err := m.Create("u")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.Parse(good); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}

	m2, err := NewManager(Config{Use: UseAccess, TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub2, VerifyKeys: map[string][]byte{"k1": pub2}})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m2.Parse(good); err == nil {
		t.Fatal("expected parse failure with mismatched key set")
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing use", Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("k")}},
		{"zero ttl", Config{Use: UseAccess, SigningMethod: MethodHS256, PrivateKey: []byte("k")}},
		{"large leeway", Config{Use: UseAccess, TTL: time.Minute, Leeway: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("k")}},
		{"missing hs key", Config{Use: UseAccess, TTL: time.Minute, SigningMethod: MethodHS256}},
		{"missing ed key", Config{Use: UseAccess, TTL: time.Minute, SigningMethod: MethodEd25519}},
		{"unknown method", Config{Use: UseAccess, TTL: time.Minute, SigningMethod: "rs256", PrivateKey: []byte("k")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewManager(tc.cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
