package validation

import (
	"strconv"
	"strings"

	"github.com/pranjalb21/kaviosPix/internal/apperr"
)

// ImageMetadata is the multipart form sent alongside an upload.
type ImageMetadata struct {
	AlbumID       string   `json:"albumId" validate:"required,uuid"`
	Tags          []string `json:"tags" validate:"max=50,dive,max=50"`
	PersonsTagged []string `json:"personsTagged" validate:"max=100,dive,uuid"`
	IsFavorite    string   `json:"isFavorite"`
	Comments      []string `json:"comments" validate:"max=100,dive,max=500"`
}

// ImageFields is the normalized form of ImageMetadata.
type ImageFields struct {
	AlbumUID   string
	Tags       []string
	PersonUIDs []string
	IsFavorite bool
	Comments   []string
}

// ImagePatch carries only the fields a caller wants to change.
type ImagePatch struct {
	Name          *string   `json:"name"`
	AlbumID       *string   `json:"albumId"`
	Tags          *[]string `json:"tags"`
	PersonsTagged *[]string `json:"personsTagged"`
	IsFavorite    *bool     `json:"isFavorite"`
	Comments      *[]string `json:"comments"`
}

func (p ImagePatch) Empty() bool {
	return p.Name == nil && p.AlbumID == nil && p.Tags == nil &&
		p.PersonsTagged == nil && p.IsFavorite == nil && p.Comments == nil
}

// NormalizeTags trims, lowercases and dedupes tags, dropping empty ones.
func NormalizeTags(tags []string) []string {
	return dedupe(trimAll(tags), true)
}

func NewImage(in ImageMetadata) (ImageFields, error) {
	in.AlbumID = strings.TrimSpace(in.AlbumID)
	in.Tags = NormalizeTags(in.Tags)
	in.PersonsTagged = dedupe(trimAll(in.PersonsTagged), false)
	in.Comments = trimAll(in.Comments)

	ve := &apperr.ValidationError{}
	collect(ve, in)

	fav := false
	if s := strings.TrimSpace(in.IsFavorite); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			ve.Add("isFavorite must be true or false.")
		}
		fav = b
	}
	if err := ve.OrNil(); err != nil {
		return ImageFields{}, err
	}
	return ImageFields{
		AlbumUID:   in.AlbumID,
		Tags:       in.Tags,
		PersonUIDs: in.PersonsTagged,
		IsFavorite: fav,
		Comments:   in.Comments,
	}, nil
}

func UpdateImage(p ImagePatch) (ImagePatch, error) {
	ve := &apperr.ValidationError{}
	if p.Empty() {
		ve.Add("No fields to update.")
		return p, ve
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
		checkVar(ve, "name", name, "required,max=200")
	}
	if p.AlbumID != nil {
		id := strings.TrimSpace(*p.AlbumID)
		p.AlbumID = &id
		checkVar(ve, "albumId", id, "required,uuid")
	}
	if p.Tags != nil {
		tags := NormalizeTags(*p.Tags)
		p.Tags = &tags
		checkVar(ve, "tags", tags, "max=50,dive,max=50")
	}
	if p.PersonsTagged != nil {
		persons, err := UserRefs("personsTagged", *p.PersonsTagged)
		if err != nil {
			ve.Messages = append(ve.Messages, err.(*apperr.ValidationError).Messages...)
		}
		p.PersonsTagged = &persons
	}
	if p.Comments != nil {
		comments := trimAll(*p.Comments)
		p.Comments = &comments
		checkVar(ve, "comments", comments, "max=100,dive,max=500")
	}
	return p, ve.OrNil()
}
