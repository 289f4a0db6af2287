package delivery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/render"
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/retry"
)

func fastRetry() retry.Config {
	return retry.Config{MaxRetries: 2, BaseDelay: time.Millisecond}
}

func testMessage(channel, text string) render.Message {
	return render.Message{Channel: channel, Text: text, Bytes: len(text)}
}

func TestWeChatSendSuccess(t *testing.T) {
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer ts.Close()

	n := NewWeChatNotifier(ts.URL)
	n.client = ts.Client()
	n.retryConfig = fastRetry()

	err := n.Send(context.Background(), testMessage("wechat", "# digest"))
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	var payload wechatPayload
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("Invalid payload: %v", err)
	}
	if payload.MsgType != "markdown" {
		t.Errorf("Expected msgtype markdown, got %q", payload.MsgType)
	}
	if payload.Markdown.Content != "# digest" {
		t.Errorf("Unexpected content %q", payload.Markdown.Content)
	}
}

func TestWeChatSendBotError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":93000,"errmsg":"invalid webhook url"}`))
	}))
	defer ts.Close()

	n := NewWeChatNotifier(ts.URL)
	n.client = ts.Client()
	n.retryConfig = fastRetry()

	err := n.Send(context.Background(), testMessage("wechat", "text"))
	if err == nil {
		t.Fatal("Expected error for non-zero errcode")
	}
	if !strings.Contains(err.Error(), "93000") {
		t.Errorf("Expected errcode in message, got: %v", err)
	}
}

func TestWeChatSendRetriesOn5xx(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer ts.Close()

	n := NewWeChatNotifier(ts.URL)
	n.client = ts.Client()
	n.retryConfig = fastRetry()

	if err := n.Send(context.Background(), testMessage("wechat", "text")); err != nil {
		t.Fatalf("Expected success after retries, got: %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestFeishuSendSuccess(t *testing.T) {
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"code":0,"msg":"success"}`))
	}))
	defer ts.Close()

	n := NewFeishuNotifier(ts.URL)
	n.client = ts.Client()
	n.retryConfig = fastRetry()

	if err := n.Send(context.Background(), testMessage("feishu", "# digest")); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	var payload feishuPayload
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("Invalid payload: %v", err)
	}
	if payload.MsgType != "markdown" {
		t.Errorf("Expected msg_type markdown, got %q", payload.MsgType)
	}
	if payload.Content.Text != "# digest" {
		t.Errorf("Unexpected content %q", payload.Content.Text)
	}
}

func TestFeishuSendRateLimitedRetries(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`{"code":11232,"msg":"too many requests"}`))
			return
		}
		w.Write([]byte(`{"code":0,"msg":"success"}`))
	}))
	defer ts.Close()

	n := NewFeishuNotifier(ts.URL)
	n.client = ts.Client()
	n.retryConfig = fastRetry()

	if err := n.Send(context.Background(), testMessage("feishu", "text")); err != nil {
		t.Fatalf("Expected rate limit to be retried, got: %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}

func TestFeishuSendBotError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":19001,"msg":"param invalid"}`))
	}))
	defer ts.Close()

	n := NewFeishuNotifier(ts.URL)
	n.client = ts.Client()
	n.retryConfig = fastRetry()

	err := n.Send(context.Background(), testMessage("feishu", "text"))
	if err == nil {
		t.Fatal("Expected error for non-zero code")
	}
	if !strings.Contains(err.Error(), "19001") {
		t.Errorf("Expected code in message, got: %v", err)
	}
}

func TestWebViewerServesLatest(t *testing.T) {
	wv := NewWebViewer("127.0.0.1:0", nil)

	if err := wv.Send(context.Background(), testMessage("markdown", "# Daily Report")); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	rec := httptest.NewRecorder()
	wv.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(rec.Body.String(), "# Daily Report") {
		t.Errorf("Expected report in page, got %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	wv.handleRaw(rec, httptest.NewRequest(http.MethodGet, "/report.md", nil))
	if rec.Body.String() != "# Daily Report" {
		t.Errorf("Expected raw report, got %q", rec.Body.String())
	}
}

func TestWebViewerEmpty(t *testing.T) {
	wv := NewWebViewer("127.0.0.1:0", nil)

	rec := httptest.NewRecorder()
	wv.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(rec.Body.String(), "No report available yet") {
		t.Errorf("Expected placeholder page, got %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	wv.handleRaw(rec, httptest.NewRequest(http.MethodGet, "/report.md", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing report, got %d", rec.Code)
	}
}
