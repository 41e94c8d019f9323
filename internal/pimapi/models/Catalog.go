package models

type Catalog struct {
	ID      FlexString `json:"id"`
	SyncUID FlexString `json:"syncUid"`
	Header  string     `json:"header"`
	Enabled FlexBool   `json:"enabled"`
}
