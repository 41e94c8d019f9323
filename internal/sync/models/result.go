package models

import "time"

// Detail запись о результате обработки одной сущности
type Detail struct {
	Action    Action `json:"action"`
	PimID     string `json:"pim_id"`
	PimHeader string `json:"pim_header,omitempty"`
	TargetID  int    `json:"target_id,omitempty"`
	ParentID  int    `json:"parent_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Result struct {
	Total   int       `json:"total"`
	Created int       `json:"created"`
	Updated int       `json:"updated"`
	Failed  int       `json:"failed"`
	Details []*Detail `json:"details"`
}

// Add суммирует счетчики и дописывает детали other в конец
func (r *Result) Add(other Result) {
	r.Total += other.Total
	r.Created += other.Created
	r.Updated += other.Updated
	r.Failed += other.Failed
	r.Details = append(r.Details, other.Details...)
}

// Record учитывает исход одной сущности. skipped и mapping_failed в счетчики не входят.
func (r *Result) Record(d *Detail) {
	switch {
	case d.Action == ActionCreated:
		r.Total++
		r.Created++
	case d.Action == ActionUpdated:
		r.Total++
		r.Updated++
	case d.Action.Failed():
		r.Total++
		r.Failed++
	}
	r.Details = append(r.Details, d)
}

// Affected созданные и обновленные
func (r *Result) Affected() int {
	return r.Created + r.Updated
}

// Errors тексты ошибок из деталей
func (r *Result) Errors() []string {
	var errs []string
	for _, d := range r.Details {
		if d.Error != "" {
			errs = append(errs, d.PimID+": "+d.Error)
		}
	}
	return errs
}

type SyncRun struct {
	RunID        string    `json:"run_id"`
	Status       Status    `json:"status"`
	Type         SyncType  `json:"type"`
	CatalogID    string    `json:"catalog_id"`
	CompanyID    int       `json:"company_id"`
	StorefrontID int       `json:"storefront_id"`
	Categories   Result    `json:"categories"`
	Products     Result    `json:"products"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Error        string    `json:"error,omitempty"`
}

func (r *SyncRun) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// ConnectionStatus результат проверки одного API
type ConnectionStatus struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type ConnectionReport struct {
	PIM        ConnectionStatus `json:"pim"`
	Storefront ConnectionStatus `json:"storefront"`
}

func (r ConnectionReport) OK() bool {
	return r.PIM.Success && r.Storefront.Success
}
