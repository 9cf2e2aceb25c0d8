package validation

import (
	"strings"

	"github.com/pranjalb21/kaviosPix/internal/apperr"
)

type AlbumInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

type AlbumPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type ShareInput struct {
	Users []string `json:"users"`
}

func NewAlbum(in AlbumInput) (AlbumInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	ve := &apperr.ValidationError{}
	collect(ve, in)
	return in, ve.OrNil()
}

func UpdateAlbum(p AlbumPatch) (AlbumPatch, error) {
	ve := &apperr.ValidationError{}
	if p.Name == nil && p.Description == nil {
		ve.Add("No fields to update.")
		return p, ve
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
		checkVar(ve, "name", name, "required,max=100")
	}
	if p.Description != nil {
		desc := strings.TrimSpace(*p.Description)
		p.Description = &desc
		checkVar(ve, "description", desc, "max=1000")
	}
	return p, ve.OrNil()
}

func Share(in ShareInput) ([]string, error) {
	uids, err := UserRefs("users", in.Users)
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return nil, apperr.NewValidation("users is required.")
	}
	return uids, nil
}
