package feed

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenking/storefront/internal/domain/product"
)

// maxDocumentSize bounds the catalog document read from any source.
const maxDocumentSize = 8 << 20

// FileSource reads the catalog document from the local filesystem.
type FileSource struct {
	Path string
}

// List reads and decodes the catalog file.
func (s FileSource) List(_ context.Context) ([]product.Product, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.Path)
	}
	return Decode(data)
}

// HTTPSource fetches the catalog document over HTTP.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource returns an HTTPSource with an instrumented client. A nil
// client uses http.DefaultTransport.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{}
	}
	transport := client.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	instrumented := *client
	instrumented.Transport = otelhttp.NewTransport(transport)
	return &HTTPSource{url: url, client: &instrumented}
}

// List fetches and decodes the catalog document.
func (s *HTTPSource) List(ctx context.Context) ([]product.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", s.url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("get %s: status %d", s.url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.url)
	}
	return Decode(data)
}
