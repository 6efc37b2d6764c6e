package models

// Artist is the normalized form of one lineup row from the artists sheet.
// Field names match what the frontend lineup page reads.
type Artist struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	InstagramHandle string `json:"instagramHandle"`
	InstagramURL    string `json:"instagramUrl"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}
