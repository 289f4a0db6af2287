package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/render"
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/retry"
)

type wechatMarkdown struct {
	Content string `json:"content"`
}

type wechatPayload struct {
	MsgType  string         `json:"msgtype"`
	Markdown wechatMarkdown `json:"markdown"`
}

type wechatResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// WeChatNotifier pushes markdown messages to a WeChat Work group bot
// webhook.
type WeChatNotifier struct {
	webhookURL  string
	client      *http.Client
	retryConfig retry.Config
}

func NewWeChatNotifier(webhookURL string) *WeChatNotifier {
	return &WeChatNotifier{
		webhookURL:  webhookURL,
		client:      &http.Client{Timeout: 30 * time.Second},
		retryConfig: retry.DefaultConfig(),
	}
}

func (n *WeChatNotifier) Name() string {
	return "wechat"
}

func (n *WeChatNotifier) Send(ctx context.Context, msg render.Message) error {
	err := retry.WithBackoff(ctx, n.retryConfig, func(ctx context.Context) error {
		return n.push(ctx, msg.Text)
	})
	if err != nil {
		return fmt.Errorf("wechat: %w", err)
	}
	return nil
}

func (n *WeChatNotifier) push(ctx context.Context, content string) error {
	payload := wechatPayload{
		MsgType:  "markdown",
		Markdown: wechatMarkdown{Content: content},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// The bot reports failures in-band with a 200 status.
	var result wechatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("bot rejected message: errcode %d: %s", result.ErrCode, result.ErrMsg)
	}

	return nil
}
