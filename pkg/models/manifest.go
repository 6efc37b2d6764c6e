package models

// FlyerManifest is written as flyers/manifest.json.
type FlyerManifest struct {
	Files []string `json:"files"`
}

// GalleryManifest is written as manifest.json for gallery-style folders.
type GalleryManifest struct {
	Images []string `json:"images"`
}
