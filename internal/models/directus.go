package models

// DirectusUser represents a user record in the Directus CMS
type DirectusUser struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	Role               string `json:"role"`
	Status             string `json:"status,omitempty"`
	Provider           string `json:"provider,omitempty"`
	ExternalIdentifier string `json:"external_identifier,omitempty"`
	FirstName          string `json:"first_name,omitempty"`
	LastName           string `json:"last_name,omitempty"`
}

// NewDirectusUser is the create payload for a user record
type NewDirectusUser struct {
	Email              string `json:"email"`
	Password           string `json:"password"`
	Role               string `json:"role"`
	Status             string `json:"status"`
	Provider           string `json:"provider"`
	ExternalIdentifier string `json:"external_identifier"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
}

// FileRef is a reference to a Directus file with its download name
type FileRef struct {
	ID               string `json:"id"`
	FilenameDownload string `json:"filename_download"`
}

// BlogPost is a published blog entry
type BlogPost struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"`
	Sort        int      `json:"sort"`
	UserCreated string   `json:"user_created"`
	UserUpdated string   `json:"user_updated"`
	DateCreated string   `json:"date_created"`
	DateUpdated string   `json:"date_updated"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Header      *FileRef `json:"header"`
}

// NewsItem is a published news entry; same shape as a blog post
type NewsItem = BlogPost

// GalleryFile links a gallery to one of its images
type GalleryFile struct {
	ID              string  `json:"id"`
	GalleryID       string  `json:"gallery_id"`
	DirectusFilesID FileRef `json:"directus_files_id"`
}

// Gallery is a published image gallery
type Gallery struct {
	ID           string        `json:"id"`
	Status       string        `json:"status"`
	Sort         int           `json:"sort"`
	DateUpdated  string        `json:"date_updated"`
	Title        string        `json:"title"`
	Header       *FileRef      `json:"header"`
	GalleryFiles []GalleryFile `json:"gallery_files"`
}

// RulesSection is a published section of the rules-of-participation page
type RulesSection struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"`
	Sort        int      `json:"sort"`
	DateUpdated string   `json:"date_updated"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Header      *FileRef `json:"header"`
}
