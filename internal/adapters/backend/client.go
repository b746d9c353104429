// Package backend provides the chain backend adapter.
// Clean Architecture: Adapter implementing ports.ChainService.
// It knows the backend's JSON contract; the domain layer doesn't.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aitoolsintegration-prog/chainref/internal/domain/entities"
)

const (
	// DefaultBaseURL is the hosted backend.
	DefaultBaseURL = "https://us-central1-link-a-verse-backend.cloudfunctions.net/"

	askPath = "askGemini"
)

// Client implements ports.ChainService over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a backend adapter. The http.Client is injected so the
// timeouts and logging transport are configured once by the caller.
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		client:  httpClient,
		logger:  logger,
	}
}

// askRequest is the backend request body.
type askRequest struct {
	Question      string `json:"question"`
	SelectedTheme string `json:"selectedTheme"`
}

// askResponse is the backend response body.
type askResponse struct {
	Theme   string        `json:"theme"`
	Summary string        `json:"summary"`
	Chain   []*chainVerse `json:"chain"`
}

type chainVerse struct {
	Order                 int                     `json:"order"`
	Reference             string                  `json:"reference"`
	Text                  string                  `json:"text"`
	LinkingPhrase         string                  `json:"linkingPhrase"`
	NextVerse             *string                 `json:"nextVerse"`
	CrossThemeConnections []*crossThemeConnection `json:"crossThemeConnections"`
}

type crossThemeConnection struct {
	Theme     string `json:"theme"`
	Reference string `json:"reference"`
	Text      string `json:"text"`
}

// Ask posts the query and decodes the chain.
func (c *Client) Ask(ctx context.Context, query entities.Query) (*entities.QueryResult, error) {
	jsonData, err := json.Marshal(askRequest{
		Question:      query.Question,
		SelectedTheme: query.Theme,
	})
	if err != nil {
		return nil, entities.NewUnexpectedError(fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+askPath, bytes.NewReader(jsonData))
	if err != nil {
		return nil, entities.NewUnexpectedError(fmt.Errorf("creating request: %w", err))
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	log := c.logger.With(zap.String("request_id", requestID))
	log.Debug("asking backend", zap.String("theme", query.Theme), zap.Int("question_len", len(query.Question)))

	resp, err := c.client.Do(req)
	if err != nil {
		log.Warn("backend unreachable", zap.Error(err))
		return nil, entities.NewNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("backend returned failure status", zap.Int("status", resp.StatusCode))
		io.Copy(io.Discard, resp.Body)
		return nil, entities.NewServerError(resp.StatusCode, reasonPhrase(resp))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn("reading backend response", zap.Error(err))
		return nil, entities.NewNetworkError(err)
	}

	result, err := decodeResult(body)
	if err != nil {
		log.Warn("malformed backend response", zap.Error(err))
		return nil, entities.NewUnexpectedError(err)
	}

	log.Debug("backend answered", zap.String("theme", result.Theme), zap.Int("chain_len", len(result.Chain)))
	return result, nil
}

// decodeResult converts the wire body to a QueryResult. Any malformed part
// fails the whole response.
func decodeResult(body []byte) (*entities.QueryResult, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty response body")
	}

	var wire *askResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if wire == nil {
		return nil, errors.New("response body is null")
	}

	result := &entities.QueryResult{
		Theme:   wire.Theme,
		Summary: wire.Summary,
		Chain:   make([]entities.ChainEntry, 0, len(wire.Chain)),
	}
	for i, v := range wire.Chain {
		if v == nil {
			return nil, fmt.Errorf("chain entry %d is null", i)
		}
		entry := entities.ChainEntry{
			Order:                 v.Order,
			Reference:             v.Reference,
			Text:                  v.Text,
			LinkingPhrase:         v.LinkingPhrase,
			NextReference:         v.NextVerse,
			CrossThemeConnections: make([]entities.CrossThemeConnection, 0, len(v.CrossThemeConnections)),
		}
		for j, conn := range v.CrossThemeConnections {
			if conn == nil {
				return nil, fmt.Errorf("chain entry %d: cross-theme connection %d is null", i, j)
			}
			entry.CrossThemeConnections = append(entry.CrossThemeConnections, entities.CrossThemeConnection{
				Theme:     conn.Theme,
				Reference: conn.Reference,
				Text:      conn.Text,
			})
		}
		result.Chain = append(result.Chain, entry)
	}
	return result, nil
}

// reasonPhrase extracts "Internal Server Error" from "500 Internal Server Error".
func reasonPhrase(resp *http.Response) string {
	status := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if status == "" {
		status = http.StatusText(resp.StatusCode)
	}
	return status
}
