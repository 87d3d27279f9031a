package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bnema/chatctl/internal/domain"
	"github.com/bnema/chatctl/internal/ports"
)

const maxAPIResponseBytes = 1 << 20

const sessionTokenHeader = "X-Session-Token"

var ErrRateLimited = errors.New("rate limited by server")

type Endpoints struct {
	BaseURL    string
	ConfigPath string
	LoginPath  string
	LogoutPath string
}

func DefaultEndpoints(baseURL string) Endpoints {
	return Endpoints{
		BaseURL:    baseURL,
		ConfigPath: "/",
		LoginPath:  "/auth/session/login",
		LogoutPath: "/auth/session/logout",
	}
}

// Client talks to the chat server's HTTP API without a session.
type Client struct {
	API            Endpoints
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	UserAgent      string
}

var _ ports.API = Client{}

type loginRequest struct {
	Email        string              `json:"email,omitempty"`
	Password     string              `json:"password,omitempty"`
	MFATicket    string              `json:"mfa_ticket,omitempty"`
	MFAResponse  *domain.MFAResponse `json:"mfa_response,omitempty"`
	FriendlyName string              `json:"friendly_name,omitempty"`
}

type loginResponse struct {
	Result         string   `json:"result"`
	ID             string   `json:"_id"`
	UserID         string   `json:"user_id"`
	Token          string   `json:"token"`
	Name           string   `json:"name"`
	Ticket         string   `json:"ticket"`
	AllowedMethods []string `json:"allowed_methods"`
}

type configResponse struct {
	Version  string          `json:"version"`
	WS       string          `json:"ws"`
	Features map[string]bool `json:"features"`
}

type apiErrorResponse struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func (c Client) Login(ctx context.Context, data domain.LoginData) (domain.LoginResponse, error) {
	body := loginRequest{FriendlyName: data.FriendlyName}
	mfa := data.MFATicket != ""
	if mfa {
		if data.MFAResponse == nil {
			return domain.LoginResponse{}, errors.New("mfa response is required with a ticket")
		}
		body.MFATicket = data.MFATicket
		body.MFAResponse = data.MFAResponse
	} else {
		if data.Email == "" || data.Password == "" {
			return domain.LoginResponse{}, errors.New("email and password are required")
		}
		body.Email = data.Email
		body.Password = data.Password
	}

	var payload loginResponse
	status, err := c.doJSON(ctx, http.MethodPost, c.API.LoginPath, "", body, &payload)
	if err != nil {
		if status == http.StatusUnauthorized && mfa {
			return domain.LoginResponse{}, fmt.Errorf("submit mfa: %w", domain.ErrInvalidMFACode)
		}
		return domain.LoginResponse{}, fmt.Errorf("login: %w", err)
	}

	resp := domain.LoginResponse{
		Result:    domain.LoginResult(payload.Result),
		SessionID: payload.ID,
		UserID:    payload.UserID,
		Token:     payload.Token,
		Name:      payload.Name,
		Ticket:    payload.Ticket,
	}
	for _, method := range payload.AllowedMethods {
		resp.AllowedMethods = append(resp.AllowedMethods, domain.MFAMethod(method))
	}

	switch resp.Result {
	case domain.LoginResultSuccess:
		if resp.Token == "" || resp.UserID == "" {
			return domain.LoginResponse{}, errors.New("login response missing token or user id")
		}
	case domain.LoginResultMFA:
		if resp.Ticket == "" {
			return domain.LoginResponse{}, errors.New("mfa response missing ticket")
		}
	case domain.LoginResultDisabled:
	default:
		return domain.LoginResponse{}, fmt.Errorf("login: unknown result %q", payload.Result)
	}

	return resp, nil
}

func (c Client) FetchConfig(ctx context.Context) (domain.ServerConfig, error) {
	var payload configResponse
	if _, err := c.doJSON(ctx, http.MethodGet, c.API.ConfigPath, "", nil, &payload); err != nil {
		return domain.ServerConfig{}, fmt.Errorf("fetch server config: %w", err)
	}

	return domain.ServerConfig{
		Version:      payload.Version,
		WebsocketURL: payload.WS,
		Features:     payload.Features,
	}, nil
}

// Logout revokes the session behind credential. A token the server no longer
// knows counts as logged out.
func (c Client) Logout(ctx context.Context, credential domain.Credential) error {
	if credential.Token == "" {
		return errors.New("session token is required")
	}

	status, err := c.doJSON(ctx, http.MethodPost, c.API.LogoutPath, credential.Token, nil, nil)
	if err != nil && status != http.StatusUnauthorized {
		return fmt.Errorf("logout session: %w", err)
	}
	return nil
}

func (c Client) doJSON(ctx context.Context, method, path, token string, in, out any) (int, error) {
	endpoint, err := buildAPIURL(c.API.BaseURL, path)
	if err != nil {
		return 0, err
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, body)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(sessionTokenHeader, token)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return resp.StatusCode, decodeAPIError(resp)
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxAPIResponseBytes)).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func (c Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := c.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	return context.WithTimeout(ctx, requestTimeout)
}

func decodeAPIError(resp *http.Response) error {
	var sentinel error
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = domain.ErrUnauthorized
	case http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	}

	message := fmt.Sprintf("status %d", resp.StatusCode)
	var apiErr apiErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxAPIResponseBytes)).Decode(&apiErr); err == nil {
		switch {
		case apiErr.Type != "" && apiErr.Error != "":
			message = apiErr.Type + ": " + apiErr.Error
		case apiErr.Type != "":
			message = apiErr.Type
		case apiErr.Error != "":
			message = apiErr.Error
		}
	}

	if sentinel != nil {
		return fmt.Errorf("%w: %s", sentinel, message)
	}
	return errors.New(message)
}

func buildAPIURL(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", errors.New("api base url is required")
	}
	if path == "" {
		return "", errors.New("api path is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("api base url host is required")
	}

	endpoint, err := parsed.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse api path: %w", err)
	}
	return endpoint.String(), nil
}
