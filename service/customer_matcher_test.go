package service

import (
	"testing"

	"printshop-backend/model"

	"github.com/stretchr/testify/assert"
)

type staticCustomers []model.Customer

func (s staticCustomers) Customers() []model.Customer { return s }

func (s staticCustomers) Contains(id string) bool {
	for _, c := range s {
		if c.ID == id {
			return true
		}
	}
	return false
}

func TestCustomerMatcherSuggest(t *testing.T) {
	matcher := NewCustomerMatcher(staticCustomers{
		{ID: "1", Name: "Asha Rao"},
		{ID: "2", Name: "Ravi"},
		{ID: "3", Name: "NATASHA"},
	})

	testCases := []struct {
		name  string
		query string
		want  []string
	}{
		{"空字串不回傳", "", []string{}},
		{"空白不回傳", "   ", []string{}},
		{"不分大小寫並保持順序", "ASH", []string{"1", "3"}},
		{"無符合", "zz", []string{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := matcher.Suggest(tc.query)
			ids := []string{}
			for _, c := range got {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestCustomerMatcherIsDuplicate(t *testing.T) {
	matcher := NewCustomerMatcher(staticCustomers{
		{ID: "1", Name: "Asha", Phone: "9876543210", CountryCode: "+91"},
	})

	assert.True(t, matcher.IsDuplicate("Asha", "9876543210", "+91"))
	assert.False(t, matcher.IsDuplicate("Asha", "9876543211", "+91"))
	assert.False(t, matcher.IsDuplicate("asha", "9876543210", "+91"))
	assert.False(t, matcher.IsDuplicate("Asha", "9876543210", "+1"))
}
