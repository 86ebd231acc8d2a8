package server

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

const formDateLayout = "2006-01-02"

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type diveForm struct {
	Date    string `form:"date" json:"date" binding:"required"`
	Diver   string `form:"diver" json:"diver" binding:"required,notblank"`
	Site    string `form:"site" json:"site" binding:"required,notblank"`
	Remarks string `form:"remarks" json:"remarks"`
}

type nameForm struct {
	Name string `form:"name" json:"name"`
}

type userForm struct {
	Username  string `form:"username" binding:"required,notblank"`
	Name      string `form:"name" binding:"required,notblank"`
	Role      string `form:"role" binding:"required,oneof=user admin"`
	Password  string `form:"password" binding:"required"`
	Password2 string `form:"password2"`
}

type passwordForm struct {
	Username  string `form:"username" binding:"required"`
	Password  string `form:"password"`
	Password2 string `form:"password2"`
}

// failedField returns the name of the first struct field that failed
// validation, or "" when err is not a validation error.
func failedField(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field()
	}
	return ""
}

func parseFormDate(v string) (time.Time, error) {
	return time.Parse(formDateLayout, v)
}
