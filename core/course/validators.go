package course

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

type NewCourse struct {
	Title       string `json:"title" validate:"required,min=10,max=200"`
	Description string `json:"description" validate:"required"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

type NewMaterial struct {
	Name string `json:"name" validate:"required,max=255"`
	File string `json:"file" validate:"required"`
}

func (nm *NewMaterial) Validate(validate *validator.Validate) error {
	nm.Name = core.CleanString(nm.Name)
	nm.File = core.CleanString(nm.File)
	return validate.Struct(nm)
}

type NewFeedback struct {
	Text string `json:"text" validate:"required"`
}

func (nf *NewFeedback) Validate(validate *validator.Validate) error {
	nf.Text = core.CleanString(nf.Text)
	return validate.Struct(nf)
}
