package preview

import (
	"bufio"
	"errors"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/spf13/afero"
	"vincit.fi/jpeg-rotator/api"
	"vincit.fi/jpeg-rotator/api/apitype"
	"vincit.fi/jpeg-rotator/common/logger"
)

const cellPadding = 4

var background = color.White

var ErrNoImages = errors.New("no images to preview")

// SheetRenderer draws a contact sheet with one row per image: the image
// as it is on disk on the left and as it will be after the commit on the
// right.
type SheetRenderer struct {
	codec    api.ImageCodec
	cellSize apitype.Size
}

func NewSheetRenderer(codec api.ImageCodec, cellSize apitype.Size) *SheetRenderer {
	return &SheetRenderer{
		codec:    codec,
		cellSize: cellSize,
	}
}

func (s *SheetRenderer) Render(images []*apitype.ImageFile) (image.Image, error) {
	var rows []*apitype.ImageFile
	for _, imageFile := range images {
		if imageFile.Thumbnail() == nil {
			logger.Debug.Printf("No thumbnail for '%s', leaving it out", imageFile.FileName())
			continue
		}
		rows = append(rows, imageFile)
	}
	if len(rows) == 0 {
		return nil, ErrNoImages
	}

	cellWidth := s.cellSize.Width() + 2*cellPadding
	cellHeight := s.cellSize.Height() + 2*cellPadding
	sheet := imaging.New(2*cellWidth, len(rows)*cellHeight, background)

	for i, imageFile := range rows {
		thumbnail := imageFile.Thumbnail()
		y := i * cellHeight
		sheet = s.pasteCentered(sheet, thumbnail, 0, y)
		sheet = s.pasteCentered(sheet, s.codec.Rotate(thumbnail, imageFile.TargetRotation()), cellWidth, y)
	}
	logger.Debug.Printf("Rendered preview of %d images", len(rows))
	return sheet, nil
}

// WriteJpeg renders the sheet and writes it as a JPEG to path.
func (s *SheetRenderer) WriteJpeg(fs afero.Fs, path string, images []*apitype.ImageFile) error {
	sheet, err := s.Render(images)
	if err != nil {
		return err
	}

	file, err := fs.Create(path)
	if err != nil {
		return err
	}
	writer := bufio.NewWriter(file)
	err = s.codec.Encode(writer, sheet, apitype.NewInvalidExifData())
	if err == nil {
		err = writer.Flush()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = fs.Remove(path)
		return err
	}
	logger.Info.Printf("Preview written to '%s'", path)
	return nil
}

func (s *SheetRenderer) pasteCentered(sheet *image.NRGBA, img image.Image, cellX int, cellY int) *image.NRGBA {
	bounds := img.Bounds()
	width, height := apitype.ScaleToFit(bounds.Dx(), bounds.Dy(), s.cellSize.Width(), s.cellSize.Height())
	if width != bounds.Dx() || height != bounds.Dy() {
		img = resize.Resize(uint(width), uint(height), img, resize.Bilinear)
	}
	x := cellX + cellPadding + (s.cellSize.Width()-width)/2
	y := cellY + cellPadding + (s.cellSize.Height()-height)/2
	return imaging.Paste(sheet, img, image.Pt(x, y))
}
