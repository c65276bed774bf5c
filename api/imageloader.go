package api

import (
	"image"
	"io"

	"github.com/spf13/afero"
	"vincit.fi/jpeg-rotator/api/apitype"
)

// ImageCodec is the boundary to the JPEG implementation.
type ImageCodec interface {
	Decode(reader io.Reader) (image.Image, *apitype.ExifData, error)
	DecodeScaled(reader io.Reader, size apitype.Size) (image.Image, *apitype.ExifData, error)
	Rotate(img image.Image, rotation apitype.Rotation) image.Image
	Encode(writer io.Writer, img image.Image, exifData *apitype.ExifData) error
}

// Committer rewrites one file on disk with its pixels and orientation tag
// rotated by rotation.
type Committer interface {
	Commit(path string, rotation apitype.Rotation) error
}

// PreviewRenderer draws the images next to their rotated versions.
type PreviewRenderer interface {
	Render(images []*apitype.ImageFile) (image.Image, error)
	WriteJpeg(fs afero.Fs, path string, images []*apitype.ImageFile) error
}
