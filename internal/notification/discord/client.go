package discord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/assist-by/helios/internal/domain"
	"github.com/assist-by/helios/internal/notification"
)

const footerText = "Helios Trading Bot"

// Client는 Discord 웹훅 알림 클라이언트입니다
type Client struct {
	infoWebhook  string
	errorWebhook string
	tradeWebhook string
	httpClient   *http.Client
}

// ClientOption은 클라이언트 생성 옵션을 정의합니다
type ClientOption func(*Client)

// WithTimeout은 HTTP 클라이언트의 타임아웃을 설정합니다
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient는 새로운 Discord 알림 클라이언트를 생성합니다
func NewClient(infoWebhook, errorWebhook, tradeWebhook string, opts ...ClientOption) *Client {
	c := &Client{
		infoWebhook:  infoWebhook,
		errorWebhook: errorWebhook,
		tradeWebhook: tradeWebhook,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SendSignal은 트레이딩 시그널 알림을 전송합니다
func (c *Client) SendSignal(signal *domain.Signal) error {
	if !signal.IsValid() {
		return nil
	}

	embed := NewEmbed().
		SetTitle(fmt.Sprintf("트레이딩 시그널: %s %s", signal.Type, signal.Symbol)).
		SetDescription(fmt.Sprintf("**전략**: %s\n**가격**: $%.2f\n**신뢰도**: %.0f%%",
			signal.StrategyName, signal.Price, signal.Confidence*100)).
		SetColor(getColorForSignal(signal.Type)).
		SetFooter(footerText).
		SetTimestamp(signal.Timestamp)

	if signal.StopLoss > 0 {
		embed.AddField("손절가", fmt.Sprintf("$%.2f", signal.StopLoss), true)
	}
	if signal.TakeProfit > 0 {
		embed.AddField("목표가", fmt.Sprintf("$%.2f", signal.TakeProfit), true)
	}

	return c.sendToWebhook(c.infoWebhook, WebhookMessage{
		Embeds: []Embed{*embed},
	})
}

// SendError는 에러 알림을 전송합니다
func (c *Client) SendError(err error) error {
	embed := NewEmbed().
		SetTitle("에러 발생").
		SetDescription(fmt.Sprintf("```%v```", err)).
		SetColor(notification.ColorError).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	return c.sendToWebhook(c.errorWebhook, WebhookMessage{
		Embeds: []Embed{*embed},
	})
}

// SendInfo는 일반 정보 알림을 전송합니다
func (c *Client) SendInfo(message string) error {
	embed := NewEmbed().
		SetDescription(message).
		SetColor(notification.ColorInfo).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	return c.sendToWebhook(c.infoWebhook, WebhookMessage{
		Embeds: []Embed{*embed},
	})
}

// SendTradeInfo는 거래 실행 정보를 전송합니다
func (c *Client) SendTradeInfo(info notification.TradeInfo) error {
	description := fmt.Sprintf("**방향**: %s\n**수량**: %.6f\n**가격**: $%.2f",
		info.Side, info.Quantity, info.Price)
	if info.Side == domain.SideSell {
		description += fmt.Sprintf("\n**손익**: %.2f", info.PnL)
	}
	if info.Balance > 0 {
		description += fmt.Sprintf("\n**잔고**: %.2f USDT", info.Balance)
	}

	embed := NewEmbed().
		SetTitle(fmt.Sprintf("거래 실행: %s", info.Symbol)).
		SetDescription(description).
		SetColor(notification.GetColorForSide(info.Side)).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	return c.sendToWebhook(c.tradeWebhook, WebhookMessage{
		Embeds: []Embed{*embed},
	})
}

// sendToWebhook은 웹훅 URL로 메시지를 전송합니다.
// URL이 비어있으면 알림을 건너뜁니다
func (c *Client) sendToWebhook(webhookURL string, msg WebhookMessage) error {
	if webhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("웹훅 메시지 직렬화 실패: %w", err)
	}

	resp, err := c.httpClient.Post(webhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("웹훅 전송 실패: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("웹훅 응답 에러: HTTP %d", resp.StatusCode)
	}

	return nil
}

// getColorForSignal은 시그널 타입에 따른 색상을 반환합니다
func getColorForSignal(signalType domain.SignalType) int {
	switch signalType {
	case domain.Buy:
		return notification.ColorSuccess
	case domain.Sell:
		return notification.ColorError
	default:
		return notification.ColorInfo
	}
}
