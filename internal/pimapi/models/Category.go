package models

// Category категория каталога PIM. Дерево строго иерархическое.
type Category struct {
	ID         FlexString  `json:"id"`
	SyncUID    FlexString  `json:"syncUid"`
	Header     string      `json:"header"`
	Level      int         `json:"level"`
	Enabled    FlexBool    `json:"enabled"`
	Pos        int         `json:"pos"`
	Content    string      `json:"content"`
	HtKeywords string      `json:"htKeywords"`
	HtDesc     string      `json:"htDesc"`
	HtHead     string      `json:"htHead"`
	Children   []*Category `json:"children"`
}

// IsCatalogRoot корневой узел, которым PIM оборачивает каталог.
// В витрину такой узел не переносится.
func (c *Category) IsCatalogRoot(parentID int) bool {
	return c.Level == 2 && parentID == 0
}

// UID ключ для таблицы соответствий: syncUid, а если он пуст - id.
func (c *Category) UID() string {
	if c.SyncUID != "" {
		return c.SyncUID.String()
	}
	return c.ID.String()
}

// Count количество узлов в поддереве, включая сам узел.
func (c *Category) Count() int {
	n := 1
	for _, child := range c.Children {
		n += child.Count()
	}
	return n
}
