package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"quorumcred/internal/platform/config"
	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/platform/circuit"
)

const (
	maxBlobSize       = 1 << 20
	defaultGatewayURL = "https://gateway.pinata.cloud/ipfs"
)

// PinningStore pins JSON documents through a pinJSONToIPFS style API and
// reads them back from an IPFS gateway. Fetched bytes are verified against
// their CID and cached locally; the cache answers reads while the breaker is
// open.
type PinningStore struct {
	pinURL     string
	gatewayURL string
	apiKey     string
	apiSecret  string
	client     *http.Client
	breaker    *circuit.Breaker
	cache      *InMemoryStore
	logger     *slog.Logger
}

type PinningOption func(*PinningStore)

func WithHTTPClient(c *http.Client) PinningOption {
	return func(s *PinningStore) {
		s.client = c
	}
}

func WithBreaker(b *circuit.Breaker) PinningOption {
	return func(s *PinningStore) {
		s.breaker = b
	}
}

func WithLogger(logger *slog.Logger) PinningOption {
	return func(s *PinningStore) {
		s.logger = logger
	}
}

func NewPinning(cfg config.MetadataConfig, opts ...PinningOption) *PinningStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	gateway := cfg.GatewayURL
	if gateway == "" {
		gateway = defaultGatewayURL
	}
	s := &PinningStore{
		pinURL:     cfg.PinURL,
		gatewayURL: strings.TrimRight(gateway, "/"),
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		client:     &http.Client{Timeout: timeout},
		cache:      NewInMemory(),
		logger:     slog.Default(),
	}
	s.breaker = circuit.New("metadata-pinning", circuit.WithStateHook(s.logTransition))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PinningStore) logTransition(name string, from, to circuit.State) {
	if to == circuit.Open {
		s.logger.Warn("metadata pinning circuit opened", "breaker", name, "from", from.String())
		return
	}
	s.logger.Info("metadata pinning circuit changed state", "breaker", name, "from", from.String(), "to", to.String())
}

type pinRequest struct {
	PinataContent json.RawMessage `json:"pinataContent"`
	PinataOptions pinOptions      `json:"pinataOptions"`
}

type pinOptions struct {
	CidVersion int `json:"cidVersion"`
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// Put pins blob, which must be a JSON document.
func (s *PinningStore) Put(ctx context.Context, blob []byte) (domain.MetadataRef, error) {
	if !json.Valid(blob) {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "metadata must be a JSON document")
	}
	body, err := json.Marshal(pinRequest{PinataContent: blob, PinataOptions: pinOptions{CidVersion: 1}})
	if err != nil {
		return "", fmt.Errorf("encode pin request: %w", err)
	}

	var resp pinResponse
	err = s.call(ctx, "pin", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.pinURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("pinata_api_key", s.apiKey)
		req.Header.Set("pinata_secret_api_key", s.apiSecret)
		return s.do(req, func(r io.Reader) error {
			return json.NewDecoder(r).Decode(&resp)
		})
	})
	if err != nil {
		return "", err
	}

	c, err := ParseRef(domain.MetadataRef(resp.IpfsHash))
	if err != nil {
		return "", fmt.Errorf("pinning service returned %q: %w", resp.IpfsHash, err)
	}
	s.cache.set(c.String(), blob)
	return refOf(c), nil
}

// Get serves from the cache when it can, otherwise from the gateway.
func (s *PinningStore) Get(ctx context.Context, ref domain.MetadataRef) ([]byte, error) {
	c, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	if blob, err := s.cache.Get(ctx, ref); err == nil {
		return blob, nil
	}

	var blob []byte
	err = s.call(ctx, "fetch", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.gatewayURL+"/"+c.String(), nil)
		if err != nil {
			return err
		}
		return s.do(req, func(r io.Reader) error {
			blob, err = io.ReadAll(io.LimitReader(r, maxBlobSize+1))
			if err != nil {
				return err
			}
			if len(blob) > maxBlobSize {
				blob = nil
				return fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBlobSize)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if err := Verify(c, blob); err != nil {
		return nil, err
	}
	s.cache.set(c.String(), blob)
	return blob, nil
}

// call runs fn through the breaker. Not-found and oversized answers are
// healthy responses and do not count as failures.
func (s *PinningStore) call(ctx context.Context, op string, fn func() error) error {
	err := s.breaker.Execute(fn, isOutage)
	switch {
	case err == nil, errors.Is(err, ErrNotFound):
		return err
	case errors.Is(err, ErrTooLarge):
		return dErrors.Wrap(err, dErrors.CodePayloadTooLarge, "metadata document exceeds the size limit")
	case errors.Is(err, circuit.ErrOpen):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "metadata store unavailable")
	}
	s.logger.ErrorContext(ctx, "metadata pinning request failed", "operation", op, "error", err)
	if s.breaker.State() == circuit.Open {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "metadata store unavailable")
	}
	return fmt.Errorf("metadata %s: %w", op, err)
}

func isOutage(err error) bool {
	return !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrTooLarge)
}

func (s *PinningStore) do(req *http.Request, decode func(io.Reader) error) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Host, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return decode(resp.Body)
}
