package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nagukpo_backend/internal/platform/logger"
)

// Index is the similarity-search surface the rest of the backend uses.
type Index interface {
	Query(ctx context.Context, namespace string, vec []float32, topK int) ([]Match, error)
	Upsert(ctx context.Context, namespace string, vectors []Vector) error
	Close()
}

type Vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Config struct {
	APIKey     string
	APIVersion string
	BaseURL    string
	IndexName  string
	IndexHost  string
	Timeout    time.Duration
}

type pineconeIndex struct {
	log  *logger.Logger
	cfg  Config
	host string
	http *http.Client
}

// NewPinecone builds the process-wide index handle. The data-plane host is
// resolved once via describe_index when not configured explicitly.
func NewPinecone(log *logger.Logger, cfg Config) (Index, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing Pinecone API key")
	}
	if strings.TrimSpace(cfg.IndexName) == "" {
		return nil, fmt.Errorf("missing Pinecone index name")
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = "2025-01"
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.pinecone.io"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	idx := &pineconeIndex{
		log:  log.With("client", "PineconeIndex"),
		cfg:  cfg,
		host: strings.TrimSpace(cfg.IndexHost),
		http: &http.Client{Timeout: cfg.Timeout},
	}

	if idx.host == "" {
		desc, err := idx.describeIndex(context.Background())
		if err != nil {
			return nil, fmt.Errorf("pinecone describe_index failed: %w", err)
		}
		idx.host = desc.Host
		idx.log.Warn("PINECONE_INDEX_HOST not set; resolved via describe_index",
			"index_name", cfg.IndexName,
			"index_host", idx.host,
		)
	}
	return idx, nil
}

type indexDescription struct {
	Name      string `json:"name"`
	Host      string `json:"host"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
}

func (p *pineconeIndex) describeIndex(ctx context.Context) (*indexDescription, error) {
	u := strings.TrimRight(p.cfg.BaseURL, "/") + "/indexes/" + p.cfg.IndexName
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	p.setHeaders(req)

	raw, err := p.do(req)
	if err != nil {
		return nil, err
	}

	var out indexDescription
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pinecone describe_index decode: %w", err)
	}
	if strings.TrimSpace(out.Host) == "" {
		return nil, fmt.Errorf("pinecone describe_index returned empty host")
	}
	return &out, nil
}

type queryRequest struct {
	Namespace       string    `json:"namespace,omitempty"`
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

func (p *pineconeIndex) Query(ctx context.Context, namespace string, vec []float32, topK int) ([]Match, error) {
	body, err := json.Marshal(queryRequest{
		Namespace:       namespace,
		Vector:          vec,
		TopK:            topK,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone query encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://"+p.host+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	p.setHeaders(req)

	raw, err := p.do(req)
	if err != nil {
		return nil, err
	}

	var out queryResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pinecone query decode: %w", err)
	}
	return out.Matches, nil
}

type upsertRequest struct {
	Namespace string   `json:"namespace,omitempty"`
	Vectors   []Vector `json:"vectors"`
}

func (p *pineconeIndex) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	body, err := json.Marshal(upsertRequest{Namespace: namespace, Vectors: vectors})
	if err != nil {
		return fmt.Errorf("pinecone upsert encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://"+p.host+"/vectors/upsert", bytes.NewReader(body))
	if err != nil {
		return err
	}
	p.setHeaders(req)

	if _, err := p.do(req); err != nil {
		return err
	}
	return nil
}

func (p *pineconeIndex) Close() {
	p.http.CloseIdleConnections()
}

func (p *pineconeIndex) setHeaders(req *http.Request) {
	req.Header.Set("Api-Key", p.cfg.APIKey)
	req.Header.Set("X-Pinecone-Api-Version", p.cfg.APIVersion)
	req.Header.Set("Content-Type", "application/json")
}

func (p *pineconeIndex) do(req *http.Request) ([]byte, error) {
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pinecone request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pinecone http %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
