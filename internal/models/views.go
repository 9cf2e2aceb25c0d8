package models

import "time"

// Views are read-time joins of stored records. They are built fresh for each
// response and never written back.

type UserSummary struct {
	UserUID string `json:"userUid"`
	Email   string `json:"email"`
}

type AlbumSummary struct {
	AlbumUID    string `json:"albumUid"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ImageView struct {
	ImageUID      string        `json:"imageUid"`
	Name          string        `json:"name"`
	ImageInfo     MediaRef      `json:"imageInfo"`
	Album         AlbumSummary  `json:"album"`
	Owner         UserSummary   `json:"owner"`
	Tags          []string      `json:"tags"`
	PersonsTagged []UserSummary `json:"personsTagged"`
	IsFavorite    bool          `json:"isFavorite"`
	Comments      []string      `json:"comments"`
	Size          int64         `json:"size"`
	ContentType   string        `json:"contentType,omitempty"`
	UploadedAt    time.Time     `json:"uploadedAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type AlbumView struct {
	AlbumUID    string        `json:"albumUid"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Owner       UserSummary   `json:"owner"`
	SharedUsers []UserSummary `json:"sharedUsers"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type SignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
