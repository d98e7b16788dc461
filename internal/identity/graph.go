package identity

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxPhotoBytes caps the profile photo kept in the session.
const maxPhotoBytes = 256 << 10

// graphProfile is the subset of the Graph /me resource used for sign-in.
type graphProfile struct {
	DisplayName       string `json:"displayName"`
	GivenName         string `json:"givenName"`
	Surname           string `json:"surname"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// Email prefers the mail attribute and falls back to the UPN.
func (p graphProfile) Email() string {
	if p.Mail != "" {
		return p.Mail
	}
	return p.UserPrincipalName
}

// Names returns first and last name, splitting the display name on its
// first space when the structured fields are empty.
func (p graphProfile) Names() (string, string) {
	if p.GivenName != "" || p.Surname != "" {
		return p.GivenName, p.Surname
	}
	first, last, _ := strings.Cut(strings.TrimSpace(p.DisplayName), " ")
	return first, strings.TrimSpace(last)
}

func (b *Bridge) graphGet(ctx context.Context, path, accessToken string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.graphEndpoint+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating graph request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting graph %s: %w", path, err)
	}
	return resp, nil
}

// fetchProfile reads the signed-in account from Graph.
func (b *Bridge) fetchProfile(ctx context.Context, accessToken string) (graphProfile, error) {
	resp, err := b.graphGet(ctx, "/me", accessToken)
	if err != nil {
		return graphProfile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return graphProfile{}, fmt.Errorf("graph /me returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var p graphProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return graphProfile{}, fmt.Errorf("decoding graph profile: %w", err)
	}
	if p.Email() == "" {
		return graphProfile{}, fmt.Errorf("graph profile has no email address")
	}
	return p, nil
}

// fetchPhoto returns the account photo as a data: URL.
func (b *Bridge) fetchPhoto(ctx context.Context, accessToken string) (string, error) {
	resp, err := b.graphGet(ctx, "/me/photo/$value", accessToken)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("graph photo returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading photo: %w", err)
	}
	if len(data) > maxPhotoBytes {
		return "", fmt.Errorf("photo exceeds %d bytes", maxPhotoBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
