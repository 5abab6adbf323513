package notes_sdk

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Ratio1/notes_sdk_go/internal/config"
	"github.com/Ratio1/notes_sdk_go/internal/devseed"
	"github.com/Ratio1/notes_sdk_go/internal/httpx"
	"github.com/Ratio1/notes_sdk_go/pkg/notes"
	notesmock "github.com/Ratio1/notes_sdk_go/pkg/notes/mock"
)

const (
	envMode        = "NOTES_RUNTIME_MODE"
	envAPIURL      = "NOTES_API_URL"
	envMockSeed    = "NOTES_MOCK_SEED"
	envHTTPTimeout = "NOTES_HTTP_TIMEOUT"
	envMaxRetries  = "NOTES_MAX_RETRIES"

	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"
)

// Option adjusts how NewFromEnv builds the client.
type Option func(*settings)

type settings struct {
	log     *logrus.Entry
	baseURL string
}

// WithLogger forwards log to the HTTP transport.
func WithLogger(log *logrus.Entry) Option {
	return func(s *settings) {
		s.log = log
	}
}

// WithBaseURL overrides NOTES_API_URL. An explicit URL implies HTTP in auto mode.
func WithBaseURL(baseURL string) Option {
	return func(s *settings) {
		s.baseURL = strings.TrimSpace(baseURL)
	}
}

// NewFromEnv initialises a notes client based on environment variables and
// returns the resolved mode ("http" or "mock").
func NewFromEnv(opts ...Option) (*notes.Client, string, error) {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}

	mode := strings.ToLower(config.String(envMode, ModeAuto))
	baseURL := s.baseURL
	if baseURL == "" {
		baseURL = config.String(envAPIURL, "")
	}

	switch mode {
	case ModeAuto:
		if baseURL != "" {
			return newHTTPClient(baseURL, s)
		}
		return newMockClient()
	case ModeHTTP:
		if baseURL == "" {
			return nil, "", fmt.Errorf("notes_sdk: HTTP mode requires %s", envAPIURL)
		}
		return newHTTPClient(baseURL, s)
	case ModeMock:
		return newMockClient()
	default:
		return nil, "", fmt.Errorf("notes_sdk: unsupported %s value %q", envMode, mode)
	}
}

func newHTTPClient(baseURL string, s *settings) (*notes.Client, string, error) {
	timeout, err := config.Duration(envHTTPTimeout, 0)
	if err != nil {
		return nil, "", fmt.Errorf("notes_sdk: %w", err)
	}
	retries, err := config.Int(envMaxRetries, 0)
	if err != nil {
		return nil, "", fmt.Errorf("notes_sdk: %w", err)
	}

	policy := httpx.DefaultRetryPolicy
	policy.MaxRetries = retries
	httpOpts := []httpx.Option{
		httpx.WithTimeout(timeout),
		httpx.WithRetryPolicy(policy),
	}
	if s.log != nil {
		httpOpts = append(httpOpts, httpx.WithLogger(s.log))
	}

	client, err := notes.New(baseURL, httpOpts...)
	if err != nil {
		return nil, "", fmt.Errorf("notes_sdk: init HTTP client: %w", err)
	}
	return client, ModeHTTP, nil
}

func newMockClient() (*notes.Client, string, error) {
	store := notesmock.New()
	if path := config.String(envMockSeed, ""); path != "" {
		entries, err := devseed.LoadNotesSeed(path)
		if err != nil {
			return nil, "", fmt.Errorf("notes_sdk: load mock seed: %w", err)
		}
		if err := store.Seed(entries); err != nil {
			return nil, "", fmt.Errorf("notes_sdk: apply mock seed: %w", err)
		}
	}
	return notes.NewWithBackend(NewMockBackend(store)), ModeMock, nil
}

// MockBackend adapts a notesmock.Mock to the notes.Backend interface.
type MockBackend struct {
	store *notesmock.Mock
}

// NewMockBackend wraps store.
func NewMockBackend(store *notesmock.Mock) *MockBackend {
	return &MockBackend{store: store}
}

func (b *MockBackend) List(ctx context.Context) ([]notes.Note, error) {
	return b.store.List(ctx)
}

func (b *MockBackend) Create(ctx context.Context, text string) (notes.Note, error) {
	return b.store.Create(ctx, text)
}

func (b *MockBackend) Vote(ctx context.Context, id int64, dir notes.VoteDirection) (notes.Note, error) {
	return b.store.Vote(ctx, id, dir)
}

func (b *MockBackend) Delete(ctx context.Context, id int64) error {
	return b.store.Delete(ctx, id)
}

func (b *MockBackend) Watch(ctx context.Context, fn func(notes.Event)) error {
	events, cancel := b.store.Subscribe(notesmock.DefaultEventBuffer)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			fn(ev)
		}
	}
}
