package models

type DiveSite struct {
	Name string `json:"name"`
}
