package apitype

type Size struct {
	width  int
	height int
}

func (s Size) Height() int {
	return s.height
}

func (s Size) Width() int {
	return s.width
}

func (s Size) IsZero() bool {
	return s.width <= 0 || s.height <= 0
}

func SizeOf(width int, height int) Size {
	return Size{width, height}
}

// SquareSize is the bounding box used for thumbnails.
func SquareSize(side int) Size {
	return Size{side, side}
}

// ScaleToFit returns the largest size with the source aspect ratio that
// fits in the target. Sources already smaller than the target are kept.
func ScaleToFit(sourceWidth int, sourceHeight int, targetWidth int, targetHeight int) (int, int) {
	if sourceWidth <= targetWidth && sourceHeight <= targetHeight {
		return sourceWidth, sourceHeight
	}
	if sourceHeight == 0 {
		return targetWidth, 0
	}

	ratio := float32(sourceWidth) / float32(sourceHeight)
	newWidth := int(float32(targetHeight) * ratio)
	newHeight := targetHeight

	if newWidth > targetWidth {
		newWidth = targetWidth
		newHeight = int(float32(targetWidth) / ratio)
	}
	return newWidth, newHeight
}
