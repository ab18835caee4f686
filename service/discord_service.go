package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"printshop-backend/infra"
	"printshop-backend/model"
	"printshop-backend/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const (
	slashCommandPing    = "ping"
	slashCommandSummary = "orders_summary"

	discordColorAlert     = 0xff0000
	discordColorWarning   = 0xffaa00
	discordColorRecovered = 0x2ecc71
)

// discordSender 發送 embed 的最小介面
type discordSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordService 建單通知、客戶寫入失敗警示與 slash command
type DiscordService struct {
	logger    zerolog.Logger
	session   *discordgo.Session
	sender    discordSender
	channelID string
	orders    *OrderService
}

// NewDiscordService 建立連線並註冊 handler
func NewDiscordService(logger zerolog.Logger, botToken, channelID string, orders *OrderService) (*DiscordService, error) {
	dg, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	s := &DiscordService{
		logger:    logger.With().Str("module", "discord_service").Logger(),
		session:   dg,
		sender:    dg,
		channelID: channelID,
		orders:    orders,
	}

	dg.AddHandler(s.ready)
	dg.AddHandler(s.interactionCreate)
	dg.Identify.Intents = discordgo.IntentsGuilds

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	s.logger.Info().Msg("Discord bot 已啟動 (Discord bot is now running)")
	return s, nil
}

func (s *DiscordService) ready(sess *discordgo.Session, r *discordgo.Ready) {
	s.logger.Info().
		Str("username", r.User.Username).
		Int("guild_count", len(r.Guilds)).
		Msg("Discord bot ready")

	commands := []*discordgo.ApplicationCommand{
		{Name: slashCommandPing, Description: "測試機器人連接狀態"},
		{Name: slashCommandSummary, Description: "各狀態訂單數量"},
	}
	for _, cmd := range commands {
		if _, err := sess.ApplicationCommandCreate(r.User.ID, "", cmd); err != nil {
			s.logger.Error().Err(err).Str("command", cmd.Name).Msg("註冊 slash command 失敗")
		}
	}
}

func (s *DiscordService) interactionCreate(sess *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	var content string
	switch i.ApplicationCommandData().Name {
	case slashCommandPing:
		content = "🏓 Pong! 機器人連接正常"
	case slashCommandSummary:
		content = s.FormatStatusSummary()
	default:
		content = "未知指令"
	}

	err := sess.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("回應指令失敗")
	}
}

// FormatStatusSummary 每種狀態一行
func (s *DiscordService) FormatStatusSummary() string {
	if s.orders == nil {
		return "訂單服務未就緒"
	}
	counts := map[model.OrderStatus]int{}
	for _, o := range s.orders.ListOrders(DefaultStatusFilters(), "") {
		counts[o.Status]++
	}
	var b strings.Builder
	b.WriteString("📋 訂單狀態統計\n")
	for _, st := range model.AllOrderStatuses() {
		fmt.Fprintf(&b, "• %s: %d\n", st, counts[st])
	}
	return b.String()
}

// NotifyOrderCreated 實作 OrderCreatedNotifier
func (s *DiscordService) NotifyOrderCreated(_ context.Context, order model.Order, customerCreated bool) {
	s.sendAsync(BuildOrderCreatedEmbed(order, customerCreated))
}

// AlertCustomerWriteFailed 實作 CustomerFailureAlerter
func (s *DiscordService) AlertCustomerWriteFailed(_ context.Context, orderID string, customer model.Customer, cause error, final bool) {
	s.sendAsync(BuildCustomerFailureEmbed(orderID, customer, cause, final))
}

func (s *DiscordService) sendAsync(embed *discordgo.MessageEmbed) {
	if s.channelID == "" || s.sender == nil {
		return
	}
	go func() {
		if _, err := s.sender.ChannelMessageSendEmbed(s.channelID, embed); err != nil {
			s.logger.Error().Err(err).Str("title", embed.Title).Msg("Discord 訊息發送失敗 (Failed to send Discord message)")
		}
	}()
}

// BuildOrderCreatedEmbed 新訂單卡片，顏色為狀態顏色
func BuildOrderCreatedEmbed(order model.Order, customerCreated bool) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "客戶", Value: utils.FormatCustomerLine(order.CustomerName, order.Phone()), Inline: false},
		{Name: "件數", Value: strconv.Itoa(order.Pieces.TotalQuantity), Inline: true},
		{Name: "交期", Value: nonEmpty(order.DeadlineFormatted), Inline: true},
		{Name: "狀態", Value: string(order.Status), Inline: true},
	}
	if customerCreated {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "新客戶", Value: "✅", Inline: true})
	}
	return &discordgo.MessageEmbed{
		Title:     "🆕 新訂單 " + utils.GetOrderShortID(order.ID),
		Color:     HexColor(order.Status.Color()),
		Fields:    fields,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// BuildCustomerFailureEmbed 客戶寫入失敗警示；final 表示重試已用盡
func BuildCustomerFailureEmbed(orderID string, customer model.Customer, cause error, final bool) *discordgo.MessageEmbed {
	title := "⚠️ 客戶寫入失敗，已排入重試"
	color := discordColorWarning
	if final {
		title = "🚨 客戶寫入重試失敗，需人工處理"
		color = discordColorAlert
	}
	errText := "unknown"
	if cause != nil {
		errText = cause.Error()
	}
	return &discordgo.MessageEmbed{
		Title: title,
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "訂單", Value: utils.GetOrderShortID(orderID), Inline: true},
			{Name: "客戶", Value: utils.FormatCustomerLine(customer.Name, customer.CountryCode+customer.Phone), Inline: true},
			{Name: "錯誤", Value: errText, Inline: false},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// HexColor "#rrggbb" 轉為 Discord 色碼，格式錯誤時為紅色
func HexColor(hex string) int {
	v, err := strconv.ParseInt(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		return discordColorAlert
	}
	return int(v)
}

func nonEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (s *DiscordService) Close() {
	if s.session != nil {
		s.session.Close()
	}
}

// AnnounceCustomerRecovered 實作 RecoveryAnnouncer
func (s *DiscordService) AnnounceCustomerRecovered(_ context.Context, event *infra.CustomerWriteEvent) {
	s.sendAsync(BuildCustomerRecoveredEmbed(event))
}

// BuildCustomerRecoveredEmbed 重試補寫成功
func BuildCustomerRecoveredEmbed(event *infra.CustomerWriteEvent) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "✅ 客戶資料已補寫",
		Color: discordColorRecovered,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "訂單", Value: utils.GetOrderShortID(event.OrderID), Inline: true},
			{Name: "客戶", Value: utils.FormatCustomerLine(event.Name, event.CountryCode+event.Phone), Inline: true},
			{Name: "重試次數", Value: strconv.Itoa(event.Attempt), Inline: true},
		},
		Timestamp: event.Timestamp.Format(time.RFC3339),
	}
}
