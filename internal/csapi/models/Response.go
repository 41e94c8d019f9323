package models

// ListParams блок params списочных ответов
type ListParams struct {
	Page         FlexInt `json:"page"`
	ItemsPerPage FlexInt `json:"items_per_page"`
	TotalItems   FlexInt `json:"total_items"`
}

// IDResponse ответ на создание/обновление
type IDResponse struct {
	CategoryID FlexInt `json:"category_id"`
	ProductID  FlexInt `json:"product_id"`
}

type VersionResponse struct {
	Version string `json:"Version"`
}

// ErrorResponse тело ошибки CS-Cart API
type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}
