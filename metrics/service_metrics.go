package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ServiceType 定義服務類型
type ServiceType string

const (
	ServiceTypeOrder    ServiceType = "order"
	ServiceTypeCustomer ServiceType = "customer"
	ServiceTypeDraft    ServiceType = "draft"
	ServiceTypeUpload   ServiceType = "upload"
)

// OperationType 定義操作類型
type OperationType string

const (
	OperationCreate       OperationType = "create"
	OperationDelete       OperationType = "delete"
	OperationUpdateStatus OperationType = "update_status"
	OperationExport       OperationType = "export"
	OperationUpsert       OperationType = "upsert"
	OperationRetry        OperationType = "retry"
	OperationUploadImage  OperationType = "upload_image"
	OperationUploadAudio  OperationType = "upload_audio"
)

// OperationStatus 定義操作狀態
type OperationStatus string

const (
	StatusSuccess OperationStatus = "success"
	StatusError   OperationStatus = "error"
	StatusSkipped OperationStatus = "skipped"
)

// OperationSource 定義操作來源
type OperationSource string

const (
	SourceWeb    OperationSource = "web"
	SourceSystem OperationSource = "system"
	SourceRetry  OperationSource = "retry"
)

var (
	serviceOperationsTotal     *prometheus.CounterVec
	serviceOperationDuration   *prometheus.HistogramVec
	customerWriteFailuresTotal *prometheus.CounterVec
	directorySize              *prometheus.GaugeVec
	snapshotsAppliedTotal      *prometheus.CounterVec
)

// InitServiceMetrics 初始化 Service 層 metrics
func InitServiceMetrics(registry *prometheus.Registry) error {
	serviceOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "service_operations_total",
			Help: "Total number of service layer operations",
		},
		[]string{"service", "operation", "status", "source"},
	)

	serviceOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "service_operation_duration_seconds",
			Help:    "Duration of service layer operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation", "source"},
	)

	customerWriteFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "customer_write_failures_total",
			Help: "Customer writes that failed after the order was persisted",
		},
		[]string{"stage"},
	)

	directorySize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "directory_records",
			Help: "Number of records currently mirrored per collection",
		},
		[]string{"collection"},
	)

	snapshotsAppliedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_snapshots_applied_total",
			Help: "Number of full snapshots applied per collection",
		},
		[]string{"collection"},
	)

	for _, c := range []prometheus.Collector{
		serviceOperationsTotal,
		serviceOperationDuration,
		customerWriteFailuresTotal,
		directorySize,
		snapshotsAppliedTotal,
	} {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordServiceOperation 記錄 Service 層操作 metrics
func RecordServiceOperation(service ServiceType, operation OperationType, status OperationStatus, source OperationSource, duration time.Duration) {
	if serviceOperationsTotal != nil && serviceOperationDuration != nil {
		serviceOperationsTotal.WithLabelValues(string(service), string(operation), string(status), string(source)).Inc()
		serviceOperationDuration.WithLabelValues(string(service), string(operation), string(source)).Observe(duration.Seconds())
	}
}

// RecordOrderOperation 專門記錄訂單操作的便利函數
func RecordOrderOperation(operation OperationType, status OperationStatus, source OperationSource, duration time.Duration) {
	RecordServiceOperation(ServiceTypeOrder, operation, status, source, duration)
}

// RecordCustomerWriteFailure stage 為 create（建單當下）或 retry（重試）
func RecordCustomerWriteFailure(stage string) {
	if customerWriteFailuresTotal != nil {
		customerWriteFailuresTotal.WithLabelValues(stage).Inc()
	}
}

// RecordSnapshotApplied 更新鏡像筆數
func RecordSnapshotApplied(collection string, size int) {
	if snapshotsAppliedTotal != nil && directorySize != nil {
		snapshotsAppliedTotal.WithLabelValues(collection).Inc()
		directorySize.WithLabelValues(collection).Set(float64(size))
	}
}
