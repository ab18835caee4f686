package utils

import (
	"crypto/rand"
	"math/big"
)

// IDAlphabet 記錄 ID 使用的 62 個英數字元
const IDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// IDLength 記錄 ID 長度
const IDLength = 7

var alphabetSize = big.NewInt(int64(len(IDAlphabet)))

// GenerateID 產生 7 碼隨機英數 ID
func GenerateID() string {
	b := make([]byte, IDLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			// crypto/rand 在支援的平台上不會失敗
			panic(err)
		}
		b[i] = IDAlphabet[n.Int64()]
	}
	return string(b)
}

// GenerateUniqueID 產生 exists 回報不存在的 ID；嘗試 maxAttempts 次後回傳最後一個候選
func GenerateUniqueID(exists func(string) bool, maxAttempts int) string {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	id := GenerateID()
	for i := 1; i < maxAttempts && exists != nil && exists(id); i++ {
		id = GenerateID()
	}
	return id
}

// IsValidID 檢查長度與字元集
func IsValidID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
