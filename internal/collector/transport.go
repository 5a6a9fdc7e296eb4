package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raysh454/intent/internal/model"
	"github.com/raysh454/intent/internal/webclient"
	"github.com/raysh454/intent/internal/wire"
	"github.com/tidwall/gjson"
)

const (
	collectPath   = "/v1/collect"
	wsCollectPath = "/v1/ws/collect"
)

// HTTPTransport posts each batch to the gateway's collect endpoint.
type HTTPTransport struct {
	base   string
	client webclient.WebClient
}

func NewHTTPTransport(gatewayURL string, client webclient.WebClient) (*HTTPTransport, error) {
	base := strings.TrimRight(strings.TrimSpace(gatewayURL), "/")
	if base == "" {
		return nil, errors.New("gateway url is required")
	}
	if client == nil {
		return nil, errors.New("web client is required")
	}
	return &HTTPTransport{base: base, client: client}, nil
}

func (t *HTTPTransport) FetchConfig(ctx context.Context, siteID, accessKey, origin string) (*model.SiteConfig, error) {
	q := url.Values{}
	q.Set("key", accessKey)
	if origin != "" {
		q.Set("origin", origin)
	}
	resp, err := t.client.Do(ctx, &webclient.Request{
		Method: http.MethodGet,
		URL:    t.base + "/v1/sites/" + url.PathEscape(siteID) + "/config?" + q.Encode(),
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, statusError(resp)
	}
	var cfg model.SiteConfig
	if err := json.Unmarshal(resp.Body, &cfg); err != nil {
		return nil, fmt.Errorf("decode site config: %w", err)
	}
	return &cfg, nil
}

func (t *HTTPTransport) Send(ctx context.Context, meta wire.Meta, batch *model.SignalBatch) (*model.Decision, error) {
	body, err := wire.Encode(meta, batch)
	if err != nil {
		return nil, err
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	resp, err := t.client.Do(ctx, &webclient.Request{
		Method:  http.MethodPost,
		URL:     t.base + collectPath,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, statusError(resp)
	}
	return decodeDecision(resp.Body)
}

func statusError(resp *webclient.Response) error {
	msg := gjson.GetBytes(resp.Body, "error").String()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("gateway: status %d: %s", resp.StatusCode, msg)
}

func decodeDecision(data []byte) (*model.Decision, error) {
	if msg := gjson.GetBytes(data, "error"); msg.Exists() {
		return nil, fmt.Errorf("gateway: %s", msg.String())
	}
	var d model.Decision
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode decision: %w", err)
	}
	return &d, nil
}

// WSTransport streams batches over one websocket, one frame per batch and one
// reply frame per decision. The handshake still goes over HTTP.
type WSTransport struct {
	conn *websocket.Conn
	http *HTTPTransport

	mu sync.Mutex
}

// DialWS opens the collect stream on gatewayURL (http or https; the scheme
// is switched to ws or wss).
func DialWS(ctx context.Context, gatewayURL string, client webclient.WebClient) (*WSTransport, error) {
	ht, err := NewHTTPTransport(gatewayURL, client)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(ht.base + wsCollectPath)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	return &WSTransport{conn: conn, http: ht}, nil
}

func (t *WSTransport) FetchConfig(ctx context.Context, siteID, accessKey, origin string) (*model.SiteConfig, error) {
	return t.http.FetchConfig(ctx, siteID, accessKey, origin)
}

func (t *WSTransport) Send(ctx context.Context, meta wire.Meta, batch *model.SignalBatch) (*model.Decision, error) {
	body, err := wire.Encode(meta, batch)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(30 * time.Second)
	}
	_ = t.conn.SetWriteDeadline(deadline)
	if err := t.conn.WriteMessage(websocket.TextMessage, body); err != nil {
		return nil, fmt.Errorf("ws write: %w", err)
	}
	_ = t.conn.SetReadDeadline(deadline)
	_, reply, err := t.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("ws read: %w", err)
	}
	return decodeDecision(reply)
}

func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return t.conn.Close()
}
