// Package pinata provides a content store backed by a Pinata-compatible IPFS
// pinning service: uploads pin bytes through the pinning API and return the
// resulting IPFS hash as the content id, fetches go through an IPFS gateway.
package pinata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/inkwire/publishinghub/pkg/publishing"
)

// Config options for the Pinata content store
type Config struct {
	APIURL     string // Pinning API base URL (default: https://api.pinata.cloud)
	GatewayURL string // Gateway base URL for fetches (default: https://gateway.pinata.cloud)
	APIKey     string // pinata_api_key header value
	SecretKey  string // pinata_secret_api_key header value

	// HTTPClient overrides the default client; used by tests.
	HTTPClient *http.Client
}

// Store is a Pinata-compatible implementation of the publishing.ContentStore interface
type Store struct {
	apiURL     string
	gatewayURL string
	apiKey     string
	secretKey  string
	client     *http.Client
}

var _ publishing.ContentStore = (*Store)(nil)

// New creates a new Pinata content store
func New(cfg Config) (*Store, error) {
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("pinata api key and secret key are required")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.pinata.cloud"
	}
	if cfg.GatewayURL == "" {
		cfg.GatewayURL = "https://gateway.pinata.cloud"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	return &Store{
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		gatewayURL: strings.TrimRight(cfg.GatewayURL, "/"),
		apiKey:     cfg.APIKey,
		secretKey:  cfg.SecretKey,
		client:     client,
	}, nil
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// Upload pins the bytes and returns the IPFS hash as the content id.
func (s *Store) Upload(ctx context.Context, r io.Reader, name string) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writePinBody(mw, r, name)
		mw.Close()
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/pinning/pinFileToIPFS", pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("pinata_api_key", s.apiKey)
	req.Header.Set("pinata_secret_api_key", s.secretKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("pin request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("pin request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var pinned pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&pinned); err != nil {
		return "", fmt.Errorf("failed to decode pin response: %w", err)
	}
	if pinned.IpfsHash == "" {
		return "", errors.New("pin response carried no hash")
	}
	return pinned.IpfsHash, nil
}

func writePinBody(mw *multipart.Writer, r io.Reader, name string) error {
	if name == "" {
		name = "article"
	}

	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return err
	}

	meta, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return err
	}
	if err := mw.WriteField("pinataMetadata", string(meta)); err != nil {
		return err
	}

	// cidVersion 0 keeps hashes compatible with legacy gateway links.
	return mw.WriteField("pinataOptions", `{"cidVersion":0}`)
}

// Fetch retrieves the bytes addressed by contentID through the gateway.
func (s *Store) Fetch(ctx context.Context, contentID string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.gatewayURL+"/ipfs/"+contentID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("gateway returned %d for %s", resp.StatusCode, contentID)
	}
	return resp.Body, nil
}
