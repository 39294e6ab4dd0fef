package domain

// RabbitMQ 队列名称，api 与各个 worker 声明时需要保持一致
const (
	EmailQueue   = "email_queue"
	TeamingQueue = "teaming_queue"
)
