// Package notify delivers operator messages over the Telegram Bot API,
// routed to forum threads by message category.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mavrykpremium/orderbot/internal/dueorders"
	"github.com/mavrykpremium/orderbot/internal/models"
	"github.com/mavrykpremium/orderbot/internal/observability"
	"github.com/mavrykpremium/orderbot/internal/supply"
)

const telegramAPI = "https://api.telegram.org"

type Telegram struct {
	token   string
	topics  *Topics
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewTelegram(token string, topics *Topics, logger *slog.Logger) *Telegram {
	return &Telegram{
		token:   token,
		topics:  topics,
		baseURL: telegramAPI,
		client:  observability.NewHTTPClient(10 * time.Second),
		logger:  logger,
	}
}

type sendMessageRequest struct {
	ChatID          int64  `json:"chat_id"`
	MessageThreadID int    `json:"message_thread_id,omitempty"`
	Text            string `json:"text"`
	ParseMode       string `json:"parse_mode"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) send(ctx context.Context, topic Topic, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:          topic.ChatID,
		MessageThreadID: topic.ThreadID,
		Text:            text,
		ParseMode:       "HTML",
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var api apiResponse
	if err := json.Unmarshal(body, &api); err != nil || !api.OK {
		return fmt.Errorf("telegram sendMessage failed: status %d: %s", resp.StatusCode, api.Description)
	}
	return nil
}

func (t *Telegram) RenewalSucceeded(ctx context.Context, o *models.RenewedOrder, amount int64) error {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ <b>Gia hạn thành công</b>\n")
	fmt.Fprintf(&b, "Mã đơn: <code>%s</code>\n", o.Code)
	fmt.Fprintf(&b, "Sản phẩm: %s\n", o.Product)
	if o.Slot != "" {
		fmt.Fprintf(&b, "Slot: %s\n", o.Slot)
	}
	fmt.Fprintf(&b, "Ngày đăng ký: %s\n", o.RegisteredOn)
	fmt.Fprintf(&b, "Hết hạn: %s\n", o.ExpiresOn)
	fmt.Fprintf(&b, "Giá bán: %s\n", formatVND(o.SalePrice))
	if amount > 0 && amount != o.SalePrice {
		fmt.Fprintf(&b, "Số tiền nhận: %s\n", formatVND(amount))
	}
	return t.send(ctx, t.topics.Renewals, b.String())
}

func (t *Telegram) RenewalSkipped(ctx context.Context, code, reason string) error {
	text := fmt.Sprintf("ℹ️ Đơn <code>%s</code>: %s", code, reason)
	return t.send(ctx, t.topics.Renewals, text)
}

func (t *Telegram) RenewalFailed(ctx context.Context, code, reason string) error {
	text := fmt.Sprintf("⚠️ <b>Gia hạn thất bại</b>\nMã đơn: <code>%s</code>\nLý do: %s", code, reason)
	return t.send(ctx, t.topics.Alerts, text)
}

func (t *Telegram) SupplierTopUp(ctx context.Context, s models.Supplier, amount int64) error {
	text := fmt.Sprintf("💰 Cộng nợ nguồn <b>%s</b>: %s", s.Name, formatVND(amount))
	return t.send(ctx, t.topics.Supply, text)
}

func (t *Telegram) OrderCreated(ctx context.Context, o *models.Order) error {
	var b strings.Builder
	fmt.Fprintf(&b, "🆕 <b>Đơn hàng mới</b>\n")
	fmt.Fprintf(&b, "Mã đơn: <code>%s</code>\n", o.Code)
	fmt.Fprintf(&b, "Sản phẩm: %s\n", o.Product)
	if o.CustomerName != "" {
		fmt.Fprintf(&b, "Khách: %s\n", o.CustomerName)
	}
	fmt.Fprintf(&b, "Hết hạn: %s\n", o.ExpiresOn)
	fmt.Fprintf(&b, "Giá bán: %s\n", formatVND(o.SalePrice))
	return t.send(ctx, t.topics.Orders, b.String())
}

func (t *Telegram) DueOrders(ctx context.Context, due []dueorders.DueOrder) error {
	var b strings.Builder
	fmt.Fprintf(&b, "⏰ <b>Đơn sắp hết hạn (%d)</b>\n", len(due))
	for _, d := range due {
		fmt.Fprintf(&b, "• <code>%s</code> %s", d.Code, d.Product)
		if d.Customer != "" {
			fmt.Fprintf(&b, " (%s)", d.Customer)
		}
		fmt.Fprintf(&b, " hết hạn %s, còn %d ngày\n", d.ExpiresOn, d.DaysLeft)
	}
	return t.send(ctx, t.topics.Renewals, b.String())
}

func (t *Telegram) SettlementDone(ctx context.Context, res *supply.Settlement, supplierName string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "🧾 <b>Đã thanh toán nguồn %s</b>\n", supplierName)
	fmt.Fprintf(&b, "Số tiền: %s\n", formatVND(res.Round.PaidAmount))
	fmt.Fprintf(&b, "Số đơn: %d\n", len(res.SettledIDs))
	return t.send(ctx, t.topics.Supply, b.String())
}

// formatVND renders an amount with dot thousand separators, "1.250.000đ".
func formatVND(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%d", v)
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}
	out := b.String() + "đ"
	if neg {
		out = "-" + out
	}
	return out
}
