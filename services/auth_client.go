// quiz-stake-system/services/auth_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// HTTPAuthProvider implements AuthProvider against the external identity
// service. The provider is opaque: this client only knows the sign-in/out
// surface and the stable {uid, email, displayName} result.
type HTTPAuthProvider struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewHTTPAuthProvider(baseURL, token string) *HTTPAuthProvider {
	return &HTTPAuthProvider{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (p *HTTPAuthProvider) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	url := fmt.Sprintf("%s%s", p.BaseURL, path)

	jsonData, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.Token)

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusConflict:
		// The provider reports a user-dismissed dialog as a conflict.
		return ErrUserCancelled
	default:
		log.Printf("AuthProvider %s returned %d: %s", path, resp.StatusCode, string(respBody))
		return fmt.Errorf("%w: status %d", ErrProvider, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrProvider, err)
		}
	}
	return nil
}

// SignIn obtains the authenticated identity.
func (p *HTTPAuthProvider) SignIn(ctx context.Context) (AuthUser, error) {
	var user AuthUser
	if err := p.post(ctx, "/auth/signin", map[string]interface{}{}, &user); err != nil {
		return AuthUser{}, err
	}
	return user, nil
}

// SignOut ends the active authentication session. Safe to call repeatedly.
func (p *HTTPAuthProvider) SignOut(ctx context.Context) error {
	return p.post(ctx, "/auth/signout", map[string]interface{}{}, nil)
}
