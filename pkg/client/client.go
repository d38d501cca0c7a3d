// Package client is a Go client for the quorumcred HTTP API. It is used by
// credctl and by the end-to-end tests.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/platform/poll"
)

const defaultUserAgent = "credctl/0.1"

// APIError is a non-2xx response. It unwraps to a domain error carrying the
// server's error code, so callers can use dErrors.HasCode.
type APIError struct {
	StatusCode  int
	Code        dErrors.Code
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.Code)
}

func (e *APIError) Unwrap() error {
	return dErrors.New(e.Code, e.Description)
}

// Client talks to one registry instance. The zero value is not usable; use New.
type Client struct {
	baseURL    string
	http       *http.Client
	token      string
	adminToken string
	adminActor string
	userAgent  string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer token sent on authenticated routes.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithAdminToken sets the operator token and actor id for /admin routes.
func WithAdminToken(token, actor string) Option {
	return func(c *Client) {
		c.adminToken = token
		c.adminActor = actor
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 15 * time.Second},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token, typically after Login.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Signer produces a personal_sign signature over message.
type Signer func(message string) (string, error)

// Login runs the challenge and signature exchange for addr and stores the
// resulting bearer token on the client.
func (c *Client) Login(ctx context.Context, addr domain.Address, sign Signer) (*Token, error) {
	var challenge Challenge
	if err := c.do(ctx, http.MethodPost, "/auth/challenge", nil, map[string]string{"address": addr.String()}, &challenge); err != nil {
		return nil, fmt.Errorf("request challenge: %w", err)
	}
	signature, err := sign(challenge.Message)
	if err != nil {
		return nil, fmt.Errorf("sign challenge: %w", err)
	}
	var token Token
	if err := c.do(ctx, http.MethodPost, "/auth/token", nil, map[string]string{
		"address":   addr.String(),
		"signature": signature,
	}, &token); err != nil {
		return nil, fmt.Errorf("exchange signature: %w", err)
	}
	c.token = token.AccessToken
	return &token, nil
}

func (c *Client) CreateCredential(ctx context.Context, p CreateParams) (*Credential, error) {
	body := map[string]any{
		"student":             p.Student.String(),
		"required_signatures": p.RequiredSignatures,
	}
	if p.MetadataType != "" {
		body["metadata"] = map[string]string{"type": p.MetadataType, "description": p.Description}
	} else {
		body["metadata_ref"] = p.MetadataRef.String()
	}
	var out Credential
	if err := c.do(ctx, http.MethodPost, "/credentials", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SignCredential(ctx context.Context, id domain.CredentialID) (*Credential, error) {
	var out Credential
	if err := c.do(ctx, http.MethodPost, "/credentials/"+id.String()+"/signatures", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCredential(ctx context.Context, id domain.CredentialID) (*Credential, error) {
	var out Credential
	if err := c.do(ctx, http.MethodGet, "/credentials/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SignatureCount(ctx context.Context, id domain.CredentialID) (int, error) {
	var out struct {
		SignatureCount int `json:"signature_count"`
	}
	if err := c.do(ctx, http.MethodGet, "/credentials/"+id.String()+"/signature-count", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.SignatureCount, nil
}

func (c *Client) IsValid(ctx context.Context, id domain.CredentialID) (bool, error) {
	var out struct {
		Valid bool `json:"valid"`
	}
	if err := c.do(ctx, http.MethodGet, "/credentials/"+id.String()+"/validity", nil, nil, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

func (c *Client) ListCredentials(ctx context.Context, p ListParams) (*CredentialPage, error) {
	return c.list(ctx, "/credentials", p)
}

func (c *Client) StudentCredentials(ctx context.Context, student domain.Address, p ListParams) (*CredentialPage, error) {
	return c.list(ctx, "/students/"+student.String()+"/credentials", p)
}

// MyCredentials lists the caller's credentials; role is student, issuer or validator.
func (c *Client) MyCredentials(ctx context.Context, role string, p ListParams) (*CredentialPage, error) {
	if role != "" {
		p.Role = role
	}
	return c.list(ctx, "/me/credentials", p)
}

func (c *Client) PendingSignatures(ctx context.Context, p ListParams) (*CredentialPage, error) {
	return c.list(ctx, "/me/pending-signatures", p)
}

func (c *Client) list(ctx context.Context, path string, p ListParams) (*CredentialPage, error) {
	var out CredentialPage
	if err := c.do(ctx, http.MethodGet, path, p.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Events(ctx context.Context, after uint64, limit int) (*EventPage, error) {
	q := url.Values{}
	q.Set("after", strconv.FormatUint(after, 10))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out EventPage
	if err := c.do(ctx, http.MethodGet, "/events", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AwaitValid polls the credential until it is valid or timeout elapses.
// Expiry returns a CodeTimeout error together with the last state seen.
func (c *Client) AwaitValid(ctx context.Context, id domain.CredentialID, interval, timeout time.Duration) (*Credential, error) {
	var last *Credential
	err := poll.Until(ctx, interval, timeout, func(ctx context.Context) (bool, error) {
		cred, err := c.GetCredential(ctx, id)
		if err != nil {
			// Transport failures are retried; an answer from the server is final.
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return false, err
			}
			return false, nil
		}
		last = cred
		return cred.Status == StatusValid, nil
	})
	return last, err
}

func (c *Client) GrantRole(ctx context.Context, capability domain.Capability, addr domain.Address) (*RoleChange, error) {
	var out RoleChange
	err := c.do(ctx, http.MethodPut, "/admin/roles/"+capability.String()+"/"+addr.String(), nil, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RevokeRole(ctx context.Context, capability domain.Capability, addr domain.Address) (*RoleChange, error) {
	var out RoleChange
	err := c.do(ctx, http.MethodDelete, "/admin/roles/"+capability.String()+"/"+addr.String(), nil, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RoleHolders(ctx context.Context, capability domain.Capability) ([]domain.Address, error) {
	var out struct {
		Holders []domain.Address `json:"holders"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/roles/"+capability.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Holders, nil
}

func (c *Client) MyRoles(ctx context.Context) (*RoleSummary, error) {
	var out RoleSummary
	if err := c.do(ctx, http.MethodGet, "/me/roles", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PublishMetadata stores a catalog document and returns its reference.
func (c *Client) PublishMetadata(ctx context.Context, typeValue, description string) (*Metadata, error) {
	var out Metadata
	body := map[string]string{"type": typeValue, "description": description}
	if err := c.do(ctx, http.MethodPost, "/metadata", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResolveMetadata(ctx context.Context, ref domain.MetadataRef) (*Metadata, error) {
	q := url.Values{}
	q.Set("ref", ref.String())
	var out Metadata
	if err := c.do(ctx, http.MethodGet, "/metadata", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if strings.HasPrefix(path, "/admin/") && c.adminToken != "" {
		req.Header.Set("X-Admin-Token", c.adminToken)
		if c.adminActor != "" {
			req.Header.Set("X-Admin-Actor-ID", c.adminActor)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var body struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	apiErr := &APIError{StatusCode: status, Code: dErrors.CodeInternal}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		apiErr.Code = dErrors.Code(body.Error)
		apiErr.Description = body.ErrorDescription
	} else {
		apiErr.Description = strings.TrimSpace(string(raw))
	}
	return apiErr
}
