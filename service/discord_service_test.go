package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"printshop-backend/infra"
	"printshop-backend/model"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDiscordSender struct {
	mu     sync.Mutex
	embeds []*discordgo.MessageEmbed
	sent   chan struct{}
}

func (s *fakeDiscordSender) ChannelMessageSendEmbed(_ string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	s.embeds = append(s.embeds, embed)
	s.mu.Unlock()
	s.sent <- struct{}{}
	return &discordgo.Message{}, nil
}

func TestHexColor(t *testing.T) {
	assert.Equal(t, 0xff7518, HexColor("#ff7518"))
	assert.Equal(t, 0x31a931, HexColor("31a931"))
	assert.Equal(t, discordColorAlert, HexColor("not-a-color"))
}

func TestBuildOrderCreatedEmbed(t *testing.T) {
	order := model.Order{
		ID:           "aB3xY9k",
		CustomerName: "Asha",
		PhoneNumber:  "+919876543210",
		Status:       model.OrderStatusPrePress,
		Pieces:       model.NewPieces([]model.PieceLine{{Type: model.PieceTypeOther, Quantity: 4}}),
	}

	embed := BuildOrderCreatedEmbed(order, true)
	assert.Equal(t, "🆕 新訂單 #aB3xY9k", embed.Title)
	assert.Equal(t, 0xff4d4d, embed.Color)
	require.Len(t, embed.Fields, 5)
	assert.Equal(t, "Asha | +919876543210", embed.Fields[0].Value)
	assert.Equal(t, "4", embed.Fields[1].Value)
	assert.Equal(t, "-", embed.Fields[2].Value)

	assert.Len(t, BuildOrderCreatedEmbed(order, false).Fields, 4)
}

func TestBuildCustomerFailureEmbed(t *testing.T) {
	customer := model.Customer{Name: "Asha", Phone: "9876543210", CountryCode: "+91"}

	warning := BuildCustomerFailureEmbed("aB3xY9k", customer, errors.New("timeout"), false)
	assert.Equal(t, discordColorWarning, warning.Color)
	assert.Equal(t, "Asha | +919876543210", warning.Fields[1].Value)
	assert.Equal(t, "timeout", warning.Fields[2].Value)

	final := BuildCustomerFailureEmbed("aB3xY9k", customer, nil, true)
	assert.Equal(t, discordColorAlert, final.Color)
	assert.Equal(t, "unknown", final.Fields[2].Value)
}

func TestBuildCustomerRecoveredEmbed(t *testing.T) {
	ts := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	embed := BuildCustomerRecoveredEmbed(&infra.CustomerWriteEvent{OrderID: "aB3xY9k", Name: "Asha", Attempt: 3, Timestamp: ts})
	assert.Equal(t, discordColorRecovered, embed.Color)
	assert.Equal(t, "3", embed.Fields[2].Value)
	assert.Equal(t, "2026-10-17T09:00:00Z", embed.Timestamp)
}

func TestDiscordServiceSendsToChannel(t *testing.T) {
	sender := &fakeDiscordSender{sent: make(chan struct{}, 1)}
	svc := &DiscordService{logger: testLogger, sender: sender, channelID: "123"}

	svc.NotifyOrderCreated(context.Background(), model.Order{ID: "aB3xY9k", Status: model.OrderStatusPress}, false)
	select {
	case <-sender.sent:
	case <-time.After(time.Second):
		t.Fatal("Discord 訊息未送出")
	}
	sender.mu.Lock()
	assert.Len(t, sender.embeds, 1)
	sender.mu.Unlock()

	// 未設定頻道時不發送
	quiet := &DiscordService{logger: testLogger, sender: sender}
	quiet.AlertCustomerWriteFailed(context.Background(), "x", model.Customer{}, nil, true)
	select {
	case <-sender.sent:
		t.Fatal("不應發送")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFormatStatusSummary(t *testing.T) {
	orders := staticOrders{
		{ID: "1", Status: model.OrderStatusPress},
		{ID: "2", Status: model.OrderStatusPress},
		{ID: "3", Status: model.OrderStatusDelivered},
	}
	svc := &DiscordService{logger: testLogger, orders: NewOrderService(testLogger, nil, orders, nil)}
	summary := svc.FormatStatusSummary()
	assert.Contains(t, summary, "• Press: 2")
	assert.Contains(t, summary, "• Delivered: 1")
	assert.Contains(t, summary, "• Pre-press: 0")

	assert.Equal(t, "訂單服務未就緒", (&DiscordService{}).FormatStatusSummary())
}
