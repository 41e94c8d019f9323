package models

type Product struct {
	ID                FlexString   `json:"id"`
	SyncUID           FlexString   `json:"syncUid"`
	Header            string       `json:"header"`
	Articul           string       `json:"articul"`
	BarCode           string       `json:"barCode"`
	Enabled           FlexBool     `json:"enabled"`
	Price             FlexFloat    `json:"price"`
	Weight            FlexFloat    `json:"weight"`
	Width             FlexFloat    `json:"width"`
	Height            FlexFloat    `json:"height"`
	Length            FlexFloat    `json:"length"`
	Content           string       `json:"content"`
	Description       string       `json:"description"`
	CatalogAdditional []FlexString `json:"catalogAdditional"`
	CatalogID         FlexString   `json:"catalogId"`
}

// UID ключ для таблицы соответствий: syncUid, а если он пуст - id.
func (p *Product) UID() string {
	if p.SyncUID != "" {
		return p.SyncUID.String()
	}
	return p.ID.String()
}

// CategoryRefs непустые идентификаторы категорий PIM из catalogAdditional.
func (p *Product) CategoryRefs() []string {
	refs := make([]string, 0, len(p.CatalogAdditional))
	for _, ref := range p.CatalogAdditional {
		if ref != "" {
			refs = append(refs, ref.String())
		}
	}
	return refs
}
