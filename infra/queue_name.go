package infra

// QueueName 定義 RabbitMQ 隊列名稱的枚舉類型
type QueueName string

const (
	// QueueNameCustomersRetry 客戶寫入失敗後的重試隊列
	QueueNameCustomersRetry QueueName = "customers_retry_queue"

	// QueueNameCustomersDead 超過重試次數的客戶資料
	QueueNameCustomersDead QueueName = "customers_dead_queue"
)

// String 實現 Stringer 接口，返回隊列名稱字符串
func (qn QueueName) String() string {
	return string(qn)
}

// GetAllQueueNames 返回所有定義的隊列名稱
func GetAllQueueNames() []QueueName {
	return []QueueName{
		QueueNameCustomersRetry,
		QueueNameCustomersDead,
	}
}
