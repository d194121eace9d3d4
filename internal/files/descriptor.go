// Package files defines the file descriptor shared by scanning, filtering,
// duplicate grouping, and transcoding.
package files

import (
	"path/filepath"
	"strings"
	"time"
)

// Kind is a coarse, extension-derived file classification.
type Kind int

const (
	KindOther Kind = iota
	KindImage
	KindVideo
	KindDocument
	KindArchive
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	case KindDocument:
		return "document"
	case KindArchive:
		return "archive"
	default:
		return "other"
	}
}

// Extension → kind (lowercase, no leading dot).
var kindByExt = map[string]Kind{
	"jpg": KindImage, "jpeg": KindImage, "png": KindImage, "gif": KindImage,
	"bmp": KindImage, "webp": KindImage, "svg": KindImage, "tif": KindImage, "tiff": KindImage,

	"mp4": KindVideo, "avi": KindVideo, "mkv": KindVideo, "mov": KindVideo,
	"wmv": KindVideo, "flv": KindVideo, "webm": KindVideo,

	"pdf": KindDocument, "doc": KindDocument, "docx": KindDocument,
	"txt": KindDocument, "rtf": KindDocument, "odt": KindDocument,

	"zip": KindArchive, "rar": KindArchive, "7z": KindArchive,
	"tar": KindArchive, "gz": KindArchive, "bz2": KindArchive,
}

// KindOf classifies path by its extension, case-insensitively.
func KindOf(path string) Kind {
	return kindByExt[Ext(path)]
}

// Ext returns the lowercase extension of path without the leading dot.
func Ext(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Descriptor is an immutable record of a regular file. Hash is empty until
// content hashing has been performed.
type Descriptor struct {
	Path     string
	Size     int64
	Modified time.Time
	Kind     Kind
	Hash     string
}

// New builds a descriptor for path, classifying it by extension.
func New(path string, size int64, modified time.Time) Descriptor {
	return Descriptor{
		Path:     path,
		Size:     size,
		Modified: modified,
		Kind:     KindOf(path),
	}
}

// Name returns the base name of the described file.
func (d Descriptor) Name() string {
	return filepath.Base(d.Path)
}

// Ext returns the lowercase extension without the leading dot.
func (d Descriptor) Ext() string {
	return Ext(d.Path)
}

// WithHash returns a copy of d carrying hash.
func (d Descriptor) WithHash(hash string) Descriptor {
	d.Hash = hash
	return d
}

// TotalSize sums the sizes of descs.
func TotalSize(descs []Descriptor) int64 {
	var n int64
	for _, d := range descs {
		n += d.Size
	}
	return n
}
