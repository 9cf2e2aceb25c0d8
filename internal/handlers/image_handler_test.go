package handlers

import (
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormList(t *testing.T) {
	form := &multipart.Form{Value: map[string][]string{
		"tags":          {"Cat, dog", " "},
		"tags[]":        {"bird"},
		"personsTagged": {"u-1,u-2"},
	}}

	assert.Equal(t, []string{"Cat", "dog", "bird"}, formList(form, "tags"))
	assert.Equal(t, []string{"u-1", "u-2"}, formList(form, "personsTagged"))
	assert.Empty(t, formList(form, "missing"))
	assert.Equal(t, "u-1,u-2", formValue(form, "personsTagged"))
	assert.Equal(t, "", formValue(form, "missing"))
}
