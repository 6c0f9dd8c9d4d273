// Package client is a signed HTTP client for the NoteKeeper API.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ed25519"

	"github.com/priyanshu-verma600/notekeeper/internal/address"
	"github.com/priyanshu-verma600/notekeeper/internal/models"
	"github.com/priyanshu-verma600/notekeeper/internal/signing"
)

// ErrUnauthenticated is returned when the server rejects the request signature.
var ErrUnauthenticated = errors.New("request signature rejected")

// APIError is a server error that maps to no known error kind.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
}

// knownErrors are matched against error response bodies.
var knownErrors = []error{
	models.ErrInvalidInput,
	models.ErrDuplicateRegistration,
	models.ErrProfileNotFound,
	models.ErrNoteNotFound,
	models.ErrUnauthorizedAccess,
	models.ErrAllocationCollision,
}

// Client calls the API on behalf of one identity.
type Client struct {
	baseURL string
	http    *http.Client
	key     ed25519.PrivateKey
	addr    *address.Deriver
	now     func() time.Time
}

// New returns a Client for the server at baseURL signing with key. The
// deriver must use the server's namespace for the reported addresses to
// match.
func New(baseURL string, httpClient *http.Client, key ed25519.PrivateKey, deriver *address.Deriver) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		key:     key,
		addr:    deriver,
		now:     time.Now,
	}
}

// NewHTTPClient returns an HTTP client that trusts only the certificates
// in caFile. An empty caFile uses the system roots.
func NewHTTPClient(caFile string) (*http.Client, error) {
	if caFile == "" {
		return &http.Client{Timeout: 10 * time.Second}, nil
	}

	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			RootCAs:    caPool,
			MinVersion: tls.VersionTLS12,
		},
	}
	return &http.Client{Transport: transport, Timeout: 10 * time.Second}, nil
}

// Identity returns the identity the client signs as.
func (c *Client) Identity() models.Identity {
	return signing.IdentityOf(c.key.Public().(ed25519.PublicKey))
}

// Register creates the caller's profile and returns its address.
func (c *Client) Register(ctx context.Context, username string) (models.Address, error) {
	var resp struct {
		Address models.Address `json:"address"`
	}
	err := c.do(ctx, http.MethodPost, "/api/users", true, map[string]string{"username": username}, &resp)
	return resp.Address, err
}

// Profile fetches owner's profile.
func (c *Client) Profile(ctx context.Context, owner models.Identity) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := c.do(ctx, http.MethodGet, "/api/users/"+owner.String(), false, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Balance fetches the net lamport balance of id.
func (c *Client) Balance(ctx context.Context, id models.Identity) (int64, error) {
	var resp struct {
		Lamports int64 `json:"lamports"`
	}
	err := c.do(ctx, http.MethodGet, "/api/users/"+id.String()+"/balance", false, nil, &resp)
	return resp.Lamports, err
}

// CreateNote creates a note and returns its id and address.
func (c *Client) CreateNote(ctx context.Context, title, content string) (uint64, models.Address, error) {
	var resp struct {
		ID      uint64         `json:"id"`
		Address models.Address `json:"address"`
	}
	body := map[string]string{"title": title, "content": content}
	if err := c.do(ctx, http.MethodPost, "/api/notes", true, body, &resp); err != nil {
		return 0, models.Address{}, err
	}
	if want := c.addr.NoteAddress(c.Identity(), resp.ID); resp.Address != want {
		return 0, models.Address{}, fmt.Errorf("server reported address %s for note %d, expected %s", resp.Address, resp.ID, want)
	}
	return resp.ID, resp.Address, nil
}

// Note fetches owner's note id.
func (c *Client) Note(ctx context.Context, owner models.Identity, id uint64) (*models.Note, error) {
	var n models.Note
	path := "/api/users/" + owner.String() + "/notes/" + strconv.FormatUint(id, 10)
	if err := c.do(ctx, http.MethodGet, path, false, nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// UpdateNote replaces the content of the caller's note id.
func (c *Client) UpdateNote(ctx context.Context, id uint64, content string) error {
	path := "/api/notes/" + strconv.FormatUint(id, 10)
	return c.do(ctx, http.MethodPut, path, true, map[string]string{"content": content}, nil)
}

// DeleteNote deletes the caller's note id.
func (c *Client) DeleteNote(ctx context.Context, id uint64) error {
	return c.do(ctx, http.MethodDelete, "/api/notes/"+strconv.FormatUint(id, 10), true, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, signed bool, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if signed {
		signing.Sign(req, c.key, body, c.now())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(data))

	for _, known := range knownErrors {
		if strings.HasPrefix(msg, known.Error()) {
			return fmt.Errorf("%w%s", known, strings.TrimPrefix(msg, known.Error()))
		}
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthenticated, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", models.ErrInvalidInput, msg)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
