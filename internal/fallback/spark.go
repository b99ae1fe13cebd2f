package fallback

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"tourist-kgqa/internal/common/config"
	"tourist-kgqa/internal/common/errors"
	"tourist-kgqa/internal/common/logger"
)

// Generator produces a free-form answer for a question the local pipeline
// could not ground. Implemented by SparkClient; tests substitute a fake.
type Generator interface {
	Generate(ctx context.Context, userID string, history []Message) (string, error)
}

// SparkClient talks to the Spark X1 chat API over an HMAC-signed WebSocket.
// One Generate call is one connection: dial, send the request frame, read
// streamed frames until the final-status frame, close.
type SparkClient struct {
	cfg    config.SparkConfig
	dialer *websocket.Dialer
	log    logger.Logger
}

func NewSparkClient(cfg config.SparkConfig, log logger.Logger) *SparkClient {
	return &SparkClient{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// request/response frames for the chat protocol.

type sparkRequest struct {
	Header    sparkRequestHeader `json:"header"`
	Parameter sparkParameter     `json:"parameter"`
	Payload   sparkRequestBody   `json:"payload"`
}

type sparkRequestHeader struct {
	AppID string `json:"app_id"`
	UID   string `json:"uid"`
}

type sparkParameter struct {
	Chat sparkChatParameter `json:"chat"`
}

type sparkChatParameter struct {
	Domain      string  `json:"domain"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Auditing    string  `json:"auditing"`
}

type sparkRequestBody struct {
	Message sparkMessageList `json:"message"`
}

type sparkMessageList struct {
	Text []Message `json:"text"`
}

type sparkResponse struct {
	Header struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"header"`
	Payload struct {
		Choices struct {
			Text []struct {
				Content string `json:"content"`
			} `json:"text"`
		} `json:"choices"`
	} `json:"payload"`
}

// Generate sends the conversation history and accumulates the streamed
// completion until the API signals the final frame.
func (c *SparkClient) Generate(ctx context.Context, userID string, history []Message) (string, error) {
	if len(history) == 0 {
		return "", errors.NewFallbackFailedError(fmt.Errorf("empty conversation history"))
	}

	wsURL, err := c.signedURL(time.Now().UTC())
	if err != nil {
		return "", errors.NewFallbackFailedError(fmt.Errorf("failed to sign websocket url: %w", err))
	}

	deadline := time.Now().Add(time.Duration(c.cfg.Timeout) * time.Millisecond)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	dialCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	conn, _, err := c.dialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		return "", errors.NewFallbackFailedError(fmt.Errorf("failed to connect to spark api: %w", err))
	}
	defer conn.Close()
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)

	req := sparkRequest{
		Header: sparkRequestHeader{AppID: c.cfg.AppID, UID: userID},
		Parameter: sparkParameter{
			Chat: sparkChatParameter{
				Domain:      c.cfg.Domain,
				Temperature: c.cfg.Temp,
				MaxTokens:   c.cfg.MaxTokens,
				Auditing:    "default",
			},
		},
		Payload: sparkRequestBody{Message: sparkMessageList{Text: history}},
	}
	if err := conn.WriteJSON(req); err != nil {
		return "", errors.NewFallbackFailedError(fmt.Errorf("failed to send spark request: %w", err))
	}

	var answer string
	for {
		var resp sparkResponse
		if err := conn.ReadJSON(&resp); err != nil {
			if ctx.Err() != nil || time.Now().After(deadline) {
				return "", errors.NewFallbackTimeoutError()
			}
			return "", errors.NewFallbackFailedError(fmt.Errorf("failed to read spark response: %w", err))
		}
		if resp.Header.Code != 0 {
			return "", errors.NewFallbackFailedError(
				fmt.Errorf("spark api error %d: %s", resp.Header.Code, resp.Header.Message))
		}
		for _, t := range resp.Payload.Choices.Text {
			answer += t.Content
		}
		// status 2 marks the final frame of the stream.
		if resp.Header.Status == 2 {
			break
		}
	}
	return answer, nil
}

// signedURL builds the wss URL with the HMAC-SHA256 authorization the API
// expects: the signature covers the host, the RFC1123 GMT date, and the
// GET request line, and travels base64-wrapped in the query string.
func (c *SparkClient) signedURL(now time.Time) (string, error) {
	if c.cfg.APISecret == "" || c.cfg.APIKey == "" {
		return "", fmt.Errorf("spark credentials are not configured")
	}

	date := now.Format("Mon, 02 Jan 2006 15:04:05") + " GMT"
	origin := fmt.Sprintf("host: %s\ndate: %s\nGET %s HTTP/1.1", c.cfg.Host, date, c.cfg.Path)

	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(origin))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	authOrigin := fmt.Sprintf(
		`api_key="%s", algorithm="hmac-sha256", headers="host date request-line", signature="%s"`,
		c.cfg.APIKey, signature)
	authorization := base64.StdEncoding.EncodeToString([]byte(authOrigin))

	v := url.Values{}
	v.Set("authorization", authorization)
	v.Set("date", date)
	v.Set("host", c.cfg.Host)
	return fmt.Sprintf("wss://%s%s?%s", c.cfg.Host, c.cfg.Path, v.Encode()), nil
}
