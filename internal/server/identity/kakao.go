// Package identity exchanges an external login credential for the user's
// identity at the provider.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nakgoalgo/nakgo/internal/common"
	"golang.org/x/oauth2"
)

const (
	DefaultEndpoint = "https://kapi.kakao.com/v2/user/me"
	DefaultTimeout  = 8 * time.Second

	maxBodyBytes = 1 << 20
)

// Identity is what the provider tells us about the credential's owner.
type Identity struct {
	ExternalID   string
	Nickname     *string
	Email        *string
	ProfileImage *string
}

type kakaoUser struct {
	ID      json.Number `json:"id"`
	Account struct {
		Email *string `json:"email"`
	} `json:"kakao_account"`
	Properties struct {
		Nickname     *string `json:"nickname"`
		ProfileImage *string `json:"profile_image"`
	} `json:"properties"`
}

// KakaoClient calls the Kakao user-info endpoint with the credential as a
// bearer token.
type KakaoClient struct {
	endpoint string
	timeout  time.Duration
	base     *http.Client
}

// NewKakaoClient builds a client. An empty endpoint, a non-positive timeout
// or a nil base client fall back to the defaults.
func NewKakaoClient(endpoint string, timeout time.Duration, base *http.Client) *KakaoClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if base == nil {
		base = http.DefaultClient
	}
	return &KakaoClient{endpoint: endpoint, timeout: timeout, base: base}
}

// FetchIdentity returns common.ErrExternalAuthFailed when the provider
// rejects the credential, common.ErrUpstreamUnavailable when it cannot be
// reached in time, and common.ErrInvalidIdentityPayload when the answer
// carries no usable id.
func (c *KakaoClient) FetchIdentity(ctx context.Context, credential string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: credential,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUpstreamUnavailable, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: provider answered %d", common.ErrExternalAuthFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUpstreamUnavailable, err)
	}

	return parseKakaoUser(body)
}

func parseKakaoUser(body []byte) (*Identity, error) {
	var u kakaoUser
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidIdentityPayload, err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("%w: missing id", common.ErrInvalidIdentityPayload)
	}
	return &Identity{
		ExternalID:   u.ID.String(),
		Nickname:     u.Properties.Nickname,
		Email:        u.Account.Email,
		ProfileImage: u.Properties.ProfileImage,
	}, nil
}
