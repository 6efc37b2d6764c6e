// Package media keeps the bundled festival media (flyers, gallery and venue
// photos) present under the public assets directory. Archives are pulled
// from a GitHub release, extracted beside the live directory and swapped in,
// then each directory gets a fresh manifest.
package media

import (
	"net/url"
	"path"
	"strings"

	"freakfest/internal/manifest"
)

const (
	DefaultReleaseBase = "https://github.com/Flufscut/FreakFest2/releases"
	DefaultReleaseTag  = "v1.0.1"
	LatestTag          = "latest"
)

// Target is one archive and the directory it unpacks into.
type Target struct {
	Name    string
	Dir     string // relative to the assets root, slash separated
	Archive string
	Strip   int
	Kind    manifest.Kind
	// UseSlots orders the manifest by the configured flyer slots.
	UseSlots bool
}

func DefaultTargets() []Target {
	return []Target{
		{Name: "flyers", Dir: "flyers", Archive: "flyers.tar.gz", Strip: 1, Kind: manifest.KindFlyers, UseSlots: true},
		{Name: "gallery", Dir: "gallery/freakfest", Archive: "gallery-freakfest.tar.gz", Strip: 2, Kind: manifest.KindGallery},
		{Name: "venue", Dir: "venue", Archive: "venue.tar.gz", Strip: 1, Kind: manifest.KindGallery},
	}
}

// ReleaseURL builds the download URL of file in the release tagged tag.
// The "latest" tag uses GitHub's redirecting latest-release path.
func ReleaseURL(base, tag, file string) string {
	base = strings.TrimRight(base, "/")
	if tag == LatestTag {
		return base + "/latest/download/" + url.PathEscape(file)
	}
	return base + "/download/" + url.PathEscape(tag) + "/" + url.PathEscape(file)
}

// owns reports whether the asset path rel (slash separated, relative to the
// assets root) lives inside t.
func (t Target) owns(rel string) bool {
	dir := path.Clean(t.Dir)
	rel = path.Clean(rel)
	return strings.HasPrefix(rel, dir+"/")
}
