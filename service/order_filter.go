package service

import (
	"fmt"
	"strings"

	"printshop-backend/model"
	"printshop-backend/utils"
)

// StatusFilters 勾選中的訂單狀態
type StatusFilters map[model.OrderStatus]bool

// DefaultStatusFilters 六種狀態全部勾選
func DefaultStatusFilters() StatusFilters {
	f := StatusFilters{}
	for _, s := range model.AllOrderStatuses() {
		f[s] = true
	}
	return f
}

// NewStatusFilters 僅勾選指定狀態；未指定任何狀態時使用預設
func NewStatusFilters(statuses []model.OrderStatus) StatusFilters {
	if len(statuses) == 0 {
		return DefaultStatusFilters()
	}
	f := StatusFilters{}
	for _, s := range model.AllOrderStatuses() {
		f[s] = false
	}
	for _, s := range statuses {
		f[s] = true
	}
	return f
}

// ParseStatusFilters 由字串狀態建立過濾條件，未知狀態回傳 ErrInvalidStatus
func ParseStatusFilters(values []string) (StatusFilters, error) {
	statuses := make([]model.OrderStatus, 0, len(values))
	for _, v := range values {
		s := model.OrderStatus(v)
		if !s.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, v)
		}
		statuses = append(statuses, s)
	}
	return NewStatusFilters(statuses), nil
}

// Toggle 切換單一狀態
func (f StatusFilters) Toggle(s model.OrderStatus) {
	f[s] = !f[s]
}

// Checked 依顯示順序列出勾選的狀態
func (f StatusFilters) Checked() []model.OrderStatus {
	out := []model.OrderStatus{}
	for _, s := range model.AllOrderStatuses() {
		if f[s] {
			out = append(out, s)
		}
	}
	return out
}

// OrderVisible 狀態須勾選，且名稱包含搜尋字或電話數字包含搜尋字的數字
func OrderVisible(o model.Order, filters StatusFilters, term string) bool {
	if !filters[o.Status] {
		return false
	}
	if strings.Contains(utils.FoldSearch(o.CustomerName), utils.FoldSearch(term)) {
		return true
	}
	digits := utils.DigitsOnly(term)
	return digits != "" && strings.Contains(utils.DigitsOnly(o.Phone()), digits)
}

// FilterOrders 不改變輸入順序
func FilterOrders(orders []model.Order, filters StatusFilters, term string) []model.Order {
	visible := []model.Order{}
	for _, o := range orders {
		if OrderVisible(o, filters, term) {
			visible = append(visible, o)
		}
	}
	return visible
}
