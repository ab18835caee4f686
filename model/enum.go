package model

// OrderStatus 訂單狀態（生產進度與付款狀態）
type OrderStatus string

const (
	OrderStatusPrePress        OrderStatus = "Pre-press"        // 印前
	OrderStatusPress           OrderStatus = "Press"            // 印刷中
	OrderStatusPostPress       OrderStatus = "Post-press"       // 印後加工
	OrderStatusDelivered       OrderStatus = "Delivered"        // 已交貨
	OrderStatusPaymentPending  OrderStatus = "Payment Pending"  // 待付款
	OrderStatusPaymentReceived OrderStatus = "Payment Received" // 已收款
)

// InitialOrderStatus 新訂單的狀態
const InitialOrderStatus = OrderStatusPrePress

// UnknownStatusColor 不在列舉內的狀態顯示顏色
const UnknownStatusColor = "#ff0000"

var orderStatusColors = map[OrderStatus]string{
	OrderStatusPrePress:        "#ff4d4d",
	OrderStatusPress:           "#ff7518",
	OrderStatusPostPress:       "#ffaa00",
	OrderStatusDelivered:       "#ffd700",
	OrderStatusPaymentPending:  "#c0c000",
	OrderStatusPaymentReceived: "#31a931",
}

// AllOrderStatuses 依顯示順序回傳全部狀態
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPrePress,
		OrderStatusPress,
		OrderStatusPostPress,
		OrderStatusDelivered,
		OrderStatusPaymentPending,
		OrderStatusPaymentReceived,
	}
}

// IsValid 是否為六種狀態之一
func (s OrderStatus) IsValid() bool {
	_, ok := orderStatusColors[s]
	return ok
}

// Color 狀態顯示顏色
func (s OrderStatus) Color() string {
	if c, ok := orderStatusColors[s]; ok {
		return c
	}
	return UnknownStatusColor
}

func (s OrderStatus) String() string {
	return string(s)
}

// orderStatusTransitions 狀態轉換表，目前任意狀態皆可互轉
var orderStatusTransitions = func() map[OrderStatus]map[OrderStatus]bool {
	table := make(map[OrderStatus]map[OrderStatus]bool)
	for _, from := range AllOrderStatuses() {
		table[from] = make(map[OrderStatus]bool)
		for _, to := range AllOrderStatuses() {
			table[from][to] = true
		}
	}
	return table
}()

// CanTransition 查詢轉換表；來源狀態不在列舉內（舊資料）時只檢查目標狀態
func CanTransition(from, to OrderStatus) bool {
	if !to.IsValid() {
		return false
	}
	targets, ok := orderStatusTransitions[from]
	if !ok {
		return true
	}
	return targets[to]
}

// PieceType 印件類型
type PieceType string

const (
	PieceTypeDigitalPrinting PieceType = "Digital Printing"
	PieceTypeOffsetPrinting  PieceType = "Offset Printing"
	PieceTypePackaging       PieceType = "Packaging"
	PieceTypeOther           PieceType = "Other"
)

// AllPieceTypes 全部印件類型
func AllPieceTypes() []PieceType {
	return []PieceType{
		PieceTypeDigitalPrinting,
		PieceTypeOffsetPrinting,
		PieceTypePackaging,
		PieceTypeOther,
	}
}

// IsValid 是否為已知印件類型
func (t PieceType) IsValid() bool {
	for _, v := range AllPieceTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// TokenType JWT token 類型
type TokenType string

const (
	TokenTypeUser TokenType = "user"
)

// UserRole 用戶角色
type UserRole string

const (
	RoleManager UserRole = "manager" // 店長
	RoleSudo    UserRole = "sudo"    // 最高權限
	RoleStaff   UserRole = "staff"   // 一般員工，不可使用訂單工具
)

// CanManageOrders 是否可進入訂單管理
func (r UserRole) CanManageOrders() bool {
	return r == RoleManager || r == RoleSudo
}
