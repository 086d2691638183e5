// Package model contains simple struct definitions shared across packages.
package model

import (
	"time"
)

// Kind classifies the primary media type of an asset. In Go a type declared
// via "type X string" creates a new named type with string as the underlying
// representation, enabling better type safety than using plain strings.
type Kind string

const (
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindAudio   Kind = "audio"
	KindUnknown Kind = "unknown"
)

// SubtypeLivePhoto marks assets that carry a paired motion clip alongside the
// still image. The flag name is part of the wire format.
const SubtypeLivePhoto = "livePhoto"

// Location is an optional GPS fix attached to an asset.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

// Asset holds the metadata for one item in the media catalog. Struct tags such
// as `json:"id"` instruct the encoding/json package to use custom field names
// when marshalling/unmarshalling.
type Asset struct {
	// ID is stable and opaque; it may contain slashes, so it is always
	// percent-encoded when embedded in a URL path.
	ID              string     `json:"id"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
	ModifiedAt      *time.Time `json:"modifiedAt,omitempty"`
	Kind            Kind       `json:"kind"`
	Subtypes        []string   `json:"subtypes,omitempty"`
	Width           int        `json:"width,omitempty"`
	Height          int        `json:"height,omitempty"`
	DurationSeconds float64    `json:"durationSeconds,omitempty"`
	IsFavorite      bool       `json:"isFavorite"`
	IsHidden        bool       `json:"isHidden"`
	Location        *Location  `json:"location,omitempty"`
}

// HasSubtype reports whether the asset carries the given subtype flag.
func (a *Asset) HasSubtype(flag string) bool {
	for _, s := range a.Subtypes {
		if s == flag {
			return true
		}
	}
	return false
}

// IsLivePhoto reports whether the asset is a composite still+motion pair.
func (a *Asset) IsLivePhoto() bool {
	return a.HasSubtype(SubtypeLivePhoto)
}

// ListResponse is the JSON body returned by the /photos listing endpoint.
type ListResponse struct {
	Count  int     `json:"count"`
	Photos []Asset `json:"photos"`
}
