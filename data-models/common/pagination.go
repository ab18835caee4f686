package common

// BasePaginationInput 基礎分頁輸入結構，供其他結構嵌入使用
type BasePaginationInput struct {
	PageNum  int `query:"pageNum" default:"1" doc:"當前頁碼（從 1 開始計數）"`
	PageSize int `query:"pageSize" default:"0" doc:"每頁返回的數據條數，0 表示不分頁"`
}

func (p *BasePaginationInput) GetPageNum() int {
	if p.PageNum <= 0 {
		return 1
	}
	return p.PageNum
}

func (p *BasePaginationInput) GetPageSize() int {
	if p.PageSize < 0 {
		return 0
	}
	return p.PageSize
}

// PaginationInfo 分頁資訊結構，供全專案共用
type PaginationInfo struct {
	CurrentPage int `json:"currentPage" doc:"當前頁碼"`
	PageSize    int `json:"pageSize" doc:"每頁數據條數"`
	TotalItems  int `json:"totalItems" doc:"總數據條數"`
	TotalPages  int `json:"totalPages" doc:"總頁數"`
}

// NewPaginationInfo 創建分頁資訊；pageSize 為 0 時整份資料視為一頁
func NewPaginationInfo(pageNum, pageSize, totalItems int) PaginationInfo {
	if pageSize <= 0 {
		return PaginationInfo{CurrentPage: 1, PageSize: totalItems, TotalItems: totalItems, TotalPages: 1}
	}
	totalPages := (totalItems + pageSize - 1) / pageSize
	return PaginationInfo{
		CurrentPage: pageNum,
		PageSize:    pageSize,
		TotalItems:  totalItems,
		TotalPages:  totalPages,
	}
}

// Paginate 取出指定頁的切片，超出範圍時回傳空切片
func Paginate[T any](items []T, pageNum, pageSize int) []T {
	if pageSize <= 0 {
		return items
	}
	offset := (pageNum - 1) * pageSize
	if offset >= len(items) {
		return []T{}
	}
	end := offset + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
