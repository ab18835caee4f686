package service

import (
	"strings"

	"printshop-backend/model"
	"printshop-backend/utils"
)

// CustomerMatcher 客戶自動完成與建單去重
type CustomerMatcher struct {
	source CustomerSource
}

func NewCustomerMatcher(source CustomerSource) *CustomerMatcher {
	return &CustomerMatcher{source: source}
}

// Suggest 名稱包含 query（不分大小寫）的客戶，保持鏡像順序
func (m *CustomerMatcher) Suggest(query string) []model.Customer {
	return SuggestCustomers(m.source.Customers(), query)
}

// IsDuplicate 是否已有三個欄位完全相同的客戶
func (m *CustomerMatcher) IsDuplicate(name, phone, countryCode string) bool {
	return IsDuplicateCustomer(m.source.Customers(), name, phone, countryCode)
}

// SuggestCustomers 空白 query 不回傳任何建議
func SuggestCustomers(customers []model.Customer, query string) []model.Customer {
	result := []model.Customer{}
	if utils.IsBlank(query) {
		return result
	}
	term := strings.ToLower(query)
	for _, c := range customers {
		if strings.Contains(strings.ToLower(c.Name), term) {
			result = append(result, c)
		}
	}
	return result
}

// IsDuplicateCustomer 區分大小寫的三欄位比對
func IsDuplicateCustomer(customers []model.Customer, name, phone, countryCode string) bool {
	for i := range customers {
		if customers[i].SameIdentity(name, phone, countryCode) {
			return true
		}
	}
	return false
}
