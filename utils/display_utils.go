package utils

import (
	"strings"
	"unicode"
)

// DigitsOnly 移除所有非數字字元
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FoldSearch 比對用的名稱正規化：去除前後空白並轉小寫
func FoldSearch(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsBlank 僅含空白
func IsBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}

// GetOrderShortID 訂單短 ID，格式為 # + 完整 ID
func GetOrderShortID(orderID string) string {
	if orderID == "" {
		return ""
	}
	return "#" + orderID
}

// FormatCustomerLine 通知訊息用的客戶資訊，格式：名稱 | 電話
func FormatCustomerLine(name, phone string) string {
	if name == "" {
		name = "未知客戶"
	}
	if phone == "" {
		phone = "無電話"
	}
	return name + " | " + phone
}
