// Package deckapi talks to a deck of cards HTTP service (deckofcardsapi.com
// wire format). The service owns shuffling and deck composition; this package
// only creates shoes, draws from them and returns cards.
package deckapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/blackjack/internal/models"
)

// AttemptRecorder observes every call made to the API.
type AttemptRecorder interface {
	RecordDeckAttempt(op string, duration time.Duration, err error)
}

// Config controls how the client reaches the API.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Metrics    AttemptRecorder
}

// Client is a thin HTTP client for the deck API.
type Client struct {
	baseURL    string
	httpClient httpDoer
	metrics    AttemptRecorder
}

func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:    normalizeBaseURL(cfg.BaseURL),
		httpClient: resolveHTTPClient(cfg.HTTPClient, cfg.Timeout),
		metrics:    cfg.Metrics,
	}
}

// NewDeck creates and shuffles a shoe of deckCount decks and returns its id.
func (c *Client) NewDeck(ctx context.Context, deckCount int) (string, error) {
	if deckCount <= 0 {
		deckCount = defaultDeckCount
	}
	q := url.Values{}
	q.Set("deck_count", strconv.Itoa(deckCount))

	payload, err := c.get(ctx, opNewDeck, "/deck/new/shuffle/", q)
	if err != nil {
		return "", err
	}
	if payload.DeckID == "" {
		return "", fmt.Errorf("deckapi %s: %w: missing deck_id", opNewDeck, ErrMalformedResponse)
	}
	return payload.DeckID, nil
}

// Draw takes count cards off the top of the shoe. A response with fewer cards
// than asked for is an error and none of the cards are returned.
func (c *Client) Draw(ctx context.Context, deckID string, count int) ([]models.Card, error) {
	if count <= 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("count", strconv.Itoa(count))

	payload, err := c.get(ctx, opDraw, "/deck/"+url.PathEscape(deckID)+"/draw/", q)
	if err != nil {
		return nil, err
	}
	if len(payload.Cards) != count {
		return nil, fmt.Errorf("deckapi %s: %w: asked for %d cards, got %d", opDraw, ErrMalformedResponse, count, len(payload.Cards))
	}

	cards := make([]models.Card, len(payload.Cards))
	for i, ac := range payload.Cards {
		cards[i] = mapCard(ac)
	}
	return cards, nil
}

// ReturnAll puts every drawn card back into the shoe.
func (c *Client) ReturnAll(ctx context.Context, deckID string) error {
	_, err := c.get(ctx, opReturn, "/deck/"+url.PathEscape(deckID)+"/return/", nil)
	return err
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values) (payload deckResponse, err error) {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordDeckAttempt(op, time.Since(start), err)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return payload, err
	}
	if len(q) > 0 {
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return payload, fmt.Errorf("deckapi %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return payload, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr != nil {
		return payload, fmt.Errorf("deckapi %s: %w: %v", op, ErrMalformedResponse, decodeErr)
	}
	if !payload.Success {
		msg := payload.Error
		if msg == "" {
			msg = "success=false"
		}
		return payload, fmt.Errorf("deckapi %s: %w: %s", op, ErrUnsuccessful, msg)
	}
	return payload, nil
}

func mapCard(ac apiCard) models.Card {
	return models.Card{
		Code:  ac.Code,
		Value: strings.ToUpper(ac.Value),
		Suit:  strings.ToUpper(ac.Suit),
		Image: ac.Image,
	}
}
