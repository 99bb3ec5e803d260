package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// scopeSpreadsheets grants read/write access to spreadsheet values.
const scopeSpreadsheets = "https://www.googleapis.com/auth/spreadsheets"

// ServiceAccount holds the subset of a Google service-account key file
// needed to mint access tokens.  The key file is the JSON blob downloaded
// from the cloud console; unknown fields are ignored.
type ServiceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// LoadServiceAccount parses a service-account key from raw JSON.  It
// validates that the fields required for the JWT grant are present and
// that the private key is a parseable PEM-encoded RSA key.
func LoadServiceAccount(raw []byte) (*ServiceAccount, error) {
	var sa ServiceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, errors.New("service account key missing client_email or private_key")
	}
	if sa.TokenURI == "" {
		sa.TokenURI = "https://oauth2.googleapis.com/token"
	}
	if _, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey)); err != nil {
		return nil, fmt.Errorf("parse service account private key: %w", err)
	}
	return &sa, nil
}

// LoadServiceAccountFromEnv reads the key either inline from
// GOOGLE_SERVICE_ACCOUNT_KEY or from the file named by
// GOOGLE_SERVICE_ACCOUNT_KEY_FILE.  The inline form takes precedence,
// matching how the key is usually injected in deployment.
func LoadServiceAccountFromEnv() (*ServiceAccount, error) {
	if raw := os.Getenv("GOOGLE_SERVICE_ACCOUNT_KEY"); raw != "" {
		return LoadServiceAccount([]byte(raw))
	}
	if path := os.Getenv("GOOGLE_SERVICE_ACCOUNT_KEY_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read service account key file: %w", err)
		}
		return LoadServiceAccount(raw)
	}
	return nil, errors.New("GOOGLE_SERVICE_ACCOUNT_KEY or GOOGLE_SERVICE_ACCOUNT_KEY_FILE must be set")
}

// tokenSource exchanges a signed JWT assertion for a bearer token and
// caches it until shortly before expiry.  Safe for concurrent use.
type tokenSource struct {
	account *ServiceAccount
	client  *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

func newTokenSource(account *ServiceAccount, client *http.Client) *tokenSource {
	return &tokenSource{account: account, client: client}
}

// Token returns a valid access token, minting a new one when the cached
// token is missing or within a minute of expiring.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.token != "" && time.Until(ts.expires) > time.Minute {
		return ts.token, nil
	}
	token, ttl, err := ts.exchange(ctx)
	if err != nil {
		return "", err
	}
	ts.token = token
	ts.expires = time.Now().Add(ttl)
	return token, nil
}

// exchange performs the JWT bearer grant: sign an RS256 assertion with the
// service-account key and post it to the token endpoint.
func (ts *tokenSource) exchange(ctx context.Context) (string, time.Duration, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(ts.account.PrivateKey))
	if err != nil {
		return "", 0, fmt.Errorf("parse private key: %w", err)
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   ts.account.ClientEmail,
		"scope": scopeSpreadsheets,
		"aud":   ts.account.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", 0, fmt.Errorf("sign token assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.account.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, fmt.Errorf("token exchange: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, fmt.Errorf("token exchange: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", 0, fmt.Errorf("token exchange: decode response: %w", err)
	}
	if out.AccessToken == "" {
		return "", 0, errors.New("token exchange: empty access token")
	}
	ttl := time.Duration(out.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return out.AccessToken, ttl, nil
}
