package options // import "PimSync/internal/cs-api-go/options"

import "time"

// Basic параметры подключения к CS-Cart REST API
type Basic struct {
	URL     string
	Email   string
	APIKey  string
	Options Advanced
}

// Advanced необязательные параметры транспорта
type Advanced struct {
	// Prefix путь API, по умолчанию /api/2.0/
	Prefix         string
	UserAgent      string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	RetryCount     int
	RetryWait      time.Duration
	RetryMaxWait   time.Duration
	// RPS ограничение запросов в секунду, 0 - без ограничения
	RPS int
}
