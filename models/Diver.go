package models

type Diver struct {
	Name string `json:"name"`
}
