package utils

import (
	"fmt"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"

	"printshop-backend/model"
)

// NewValidator 建立已註冊自訂規則的 validator
func NewValidator() *validatorv10.Validate {
	v := validatorv10.New()

	_ = v.RegisterValidation("piece_type", func(fl validatorv10.FieldLevel) bool {
		return model.PieceType(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("order_status", func(fl validatorv10.FieldLevel) bool {
		return model.OrderStatus(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("notblank", func(fl validatorv10.FieldLevel) bool {
		return !IsBlank(fl.Field().String())
	})
	_ = v.RegisterValidation("iso_date", func(fl validatorv10.FieldLevel) bool {
		_, err := time.Parse(ISODateLayout, fl.Field().String())
		return err == nil
	})

	// 總件數必須等於明細數量總和
	v.RegisterStructValidation(piecesStructValidation, model.Pieces{})

	return v
}

func piecesStructValidation(sl validatorv10.StructLevel) {
	p := sl.Current().Interface().(model.Pieces)
	sum := model.SumQuantity(p.Details)
	if sum != p.TotalQuantity {
		sl.ReportError(p.TotalQuantity, "number_of_pieces", "TotalQuantity", "total_matches_details",
			fmt.Sprintf("details sum %d != total %d", sum, p.TotalQuantity))
	}
}

// ValidationErrorsToMap 將驗證錯誤轉為 欄位 -> 訊息
func ValidationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	if ve, ok := err.(validatorv10.ValidationErrors); ok {
		for _, fe := range ve {
			out[fe.StructNamespace()] = fe.Error()
		}
	} else if err != nil {
		out["error"] = err.Error()
	}
	return out
}
