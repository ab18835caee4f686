package infra

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName = "printshop-backend"
)

// Tracer 每次取用全域 provider，InitOpenTelemetry 之後即生效
func Tracer() trace.Tracer {
	return otel.Tracer(ServiceName)
}

// StartSpan 開始一個新的 span
func StartSpan(ctx context.Context, operationName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := Tracer().Start(ctx, operationName)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

// AddEvent 向 span 添加事件
func AddEvent(span trace.Span, eventName string, attrs ...attribute.KeyValue) {
	if span != nil {
		span.AddEvent(eventName, trace.WithAttributes(attrs...))
	}
}

// RecordError 記錄錯誤到 span
func RecordError(span trace.Span, err error, description string, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.RecordError(err)
	if description != "" {
		span.SetStatus(codes.Error, description)
	}
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
}

// MarkSuccess 標記 span 為成功
func MarkSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.SetStatus(codes.Ok, "")
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
}

func AttrString(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

func AttrInt(key string, value int) attribute.KeyValue {
	return attribute.Int(key, value)
}

func AttrBool(key string, value bool) attribute.KeyValue {
	return attribute.Bool(key, value)
}

func AttrOrderID(id string) attribute.KeyValue {
	return attribute.String("order.id", id)
}

func AttrCustomerID(id string) attribute.KeyValue {
	return attribute.String("customer.id", id)
}

func AttrDraftID(id string) attribute.KeyValue {
	return attribute.String("draft.id", id)
}

func AttrCollection(name string) attribute.KeyValue {
	return attribute.String("store.collection", name)
}

func AttrOperation(operation string) attribute.KeyValue {
	return attribute.String("service.operation", operation)
}

// StartControllerSpan controller 專用，名稱為 <controller>_<operation>
func StartControllerSpan(ctx context.Context, controller, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	baseAttrs := append([]attribute.KeyValue{AttrOperation(operation)}, attrs...)
	return StartSpan(ctx, controller+"_controller_"+operation, baseAttrs...)
}

// RecordControllerError 記錄 controller 操作失敗
func RecordControllerError(span trace.Span, err error, description string) {
	RecordError(span, err, description,
		AttrString("error", err.Error()),
		AttrBool("operation.success", false),
	)
	AddEvent(span, "operation_failed", AttrString("error", err.Error()))
}

// RecordControllerSuccess 記錄 controller 操作成功
func RecordControllerSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	AddEvent(span, "operation_completed_successfully")
	MarkSuccess(span, append(attrs, AttrBool("operation.success", true))...)
}
