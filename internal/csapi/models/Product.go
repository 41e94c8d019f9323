package models

// Product тело запроса создания/обновления товара
type Product struct {
	Product          string  `json:"product"`
	ProductCode      string  `json:"product_code"`
	Status           string  `json:"status"`
	Price            float64 `json:"price"`
	Weight           float64 `json:"weight,omitempty"`
	Length           float64 `json:"length,omitempty"`
	Width            float64 `json:"width,omitempty"`
	Height           float64 `json:"height,omitempty"`
	FullDescription  string  `json:"full_description"`
	ShortDescription string  `json:"short_description"`
	CategoryIDs      []int   `json:"category_ids"`
	MainCategory     int     `json:"main_category"`
	CompanyID        int     `json:"company_id"`
	StorefrontID     int     `json:"storefront_id"`
}
