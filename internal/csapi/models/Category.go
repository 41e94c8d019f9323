package models

// Category тело запроса создания/обновления категории
type Category struct {
	Category        string `json:"category"`
	Status          string `json:"status"`
	Position        int    `json:"position"`
	Description     string `json:"description"`
	MetaKeywords    string `json:"meta_keywords"`
	MetaDescription string `json:"meta_description"`
	PageTitle       string `json:"page_title"`
	SeoName         string `json:"seo_name"`
	CompanyID       int    `json:"company_id"`
	StorefrontID    int    `json:"storefront_id"`
	ParentID        int    `json:"parent_id,omitempty"`
}

// CategoryItem элемент списка категорий
type CategoryItem struct {
	CategoryID FlexInt `json:"category_id"`
	ParentID   FlexInt `json:"parent_id"`
	Category   string  `json:"category"`
	Status     string  `json:"status"`
	CompanyID  FlexInt `json:"company_id"`
	Position   FlexInt `json:"position"`
}

type CategoryList struct {
	Categories []*CategoryItem `json:"categories"`
	Params     ListParams      `json:"params"`
}
