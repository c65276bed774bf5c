package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pixiv/go-libjpeg/jpeg"
	"vincit.fi/jpeg-rotator/api"
	"vincit.fi/jpeg-rotator/api/apitype"
	"vincit.fi/jpeg-rotator/common/logger"
)

const DefaultQuality = 95

var decoderOptions = &jpeg.DecoderOptions{}

// LibJPEGCodec decodes and encodes JPEG files with libjpeg and keeps the
// EXIF segment of the source when re-encoding.
type LibJPEGCodec struct {
	quality int

	api.ImageCodec
}

func NewLibJPEGCodec(quality int) *LibJPEGCodec {
	if quality <= 0 || quality > 100 {
		logger.Warn.Printf("Invalid JPEG quality %d, using %d", quality, DefaultQuality)
		quality = DefaultQuality
	}
	return &LibJPEGCodec{
		quality: quality,
	}
}

func (s *LibJPEGCodec) Quality() int {
	return s.quality
}

func (s *LibJPEGCodec) Decode(reader io.Reader) (image.Image, *apitype.ExifData, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, err
	}

	img, err := jpeg.Decode(bytes.NewReader(data), decoderOptions)
	if err != nil {
		return nil, nil, err
	}
	return img, loadExifData(data), nil
}

// DecodeScaled lets libjpeg decode at the smallest scale that still covers
// size and then fits the result in size.
func (s *LibJPEGCodec) DecodeScaled(reader io.Reader, size apitype.Size) (image.Image, *apitype.ExifData, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, err
	}

	img, err := jpeg.Decode(bytes.NewReader(data), &jpeg.DecoderOptions{
		ScaleTarget: image.Rect(0, 0, size.Width(), size.Height()),
	})
	if err != nil {
		return nil, nil, err
	}

	bounds := img.Bounds()
	width, height := apitype.ScaleToFit(bounds.Dx(), bounds.Dy(), size.Width(), size.Height())
	if width != bounds.Dx() || height != bounds.Dy() {
		img = resize.Thumbnail(uint(width), uint(height), img, resize.Lanczos3)
	}
	return img, loadExifData(data), nil
}

func loadExifData(data []byte) *apitype.ExifData {
	exifData, err := apitype.LoadExifData(bytes.NewReader(data))
	if err != nil {
		logger.Debug.Printf("No usable Exif data: %s", err)
	}
	return exifData
}

// Rotate turns the image clockwise by the rotation. imaging rotates
// counter-clockwise, hence the swapped 90 and 270.
func (s *LibJPEGCodec) Rotate(img image.Image, rotation apitype.Rotation) image.Image {
	switch rotation {
	case apitype.RotatedCW90:
		return imaging.Rotate270(img)
	case apitype.Rotated180:
		return imaging.Rotate180(img)
	case apitype.RotatedCCW90:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

func (s *LibJPEGCodec) Encode(writer io.Writer, img image.Image, exifData *apitype.ExifData) error {
	jpegBuffer := bytes.NewBuffer([]byte{})
	encodingOptions := &jpeg.EncoderOptions{
		Quality:        s.quality,
		OptimizeCoding: true,
	}
	if err := jpeg.Encode(jpegBuffer, toEncodable(img), encodingOptions); err != nil {
		logger.Error.Println("Could not encode image", err)
		return err
	}
	return writeJpegWithExifData(writer, jpegBuffer, exifData)
}

// libjpeg only takes YCbCr, Gray and RGBA images
func toEncodable(img image.Image) image.Image {
	switch typed := img.(type) {
	case *image.YCbCr, *image.Gray, *image.RGBA:
		return img
	case *image.NRGBA:
		return convertNrgbaToRgba(typed)
	default:
		bounds := img.Bounds()
		rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
		return rgba
	}
}

func convertNrgbaToRgba(n *image.NRGBA) *image.RGBA {
	rgba := image.NewRGBA(image.Rect(0, 0, n.Rect.Dx(), n.Rect.Dy()))
	for x := 0; x < n.Rect.Dx(); x++ {
		for y := 0; y < n.Rect.Dy(); y++ {
			pix := n.NRGBAAt(n.Rect.Min.X+x, n.Rect.Min.Y+y)
			r, g, b, a := pix.RGBA()
			c := color.RGBA{
				R: uint8(r / 256),
				G: uint8(g / 256),
				B: uint8(b / 256),
				A: uint8(a / 256),
			}
			rgba.SetRGBA(x, y, c)
		}
	}
	return rgba
}

var (
	startOfImage = []byte{0xFF, 0xD8}
	app0Marker   = []byte{0xFF, 0xE0}
	app1Marker   = []byte{0xFF, 0xE1}
)

const exifHeader = "Exif\x00\x00"

// Segment length includes the two length bytes
const segmentLengthBytes = 2
const maxSegmentLength = 0xFFFF

var errInvalidJpeg = errors.New("encoder output does not start with SOI")

// writeJpegWithExifData writes SOI, the JFIF APP0 block if the encoder
// wrote one, the EXIF APP1 block and then the rest of the encoded image.
func writeJpegWithExifData(destination io.Writer, buffer *bytes.Buffer, exifData *apitype.ExifData) error {
	if !bytes.HasPrefix(buffer.Bytes(), startOfImage) {
		return errInvalidJpeg
	}
	hasExif := exifData != nil && exifData.HasRawExifData()
	capacity := buffer.Len()
	if hasExif {
		capacity += exifData.RawExifDataLength() + len(exifHeader) + 4
	}
	out := bytes.NewBuffer(make([]byte, 0, capacity))

	// 0xFF 0xD8: Start of JPEG
	out.Write(buffer.Next(len(startOfImage)))

	if err := writeJfifBlock(out, buffer); err != nil {
		return err
	}
	if hasExif {
		if err := writeExifBlock(out, exifData); err != nil {
			return err
		}
	}

	// Write rest of file
	out.Write(buffer.Bytes())
	_, err := destination.Write(out.Bytes())
	return err
}

func writeExifBlock(writer *bytes.Buffer, data *apitype.ExifData) error {
	dataLength := data.RawExifDataLength() + len(exifHeader) + segmentLengthBytes
	if dataLength > maxSegmentLength {
		return fmt.Errorf("exif data too large: %d bytes", data.RawExifDataLength())
	}
	writer.Write(app1Marker)
	writer.WriteByte(byte(dataLength >> 8))
	writer.WriteByte(byte(dataLength))
	writer.WriteString(exifHeader)
	writer.Write(data.RawExifData())
	return nil
}

func writeJfifBlock(writer *bytes.Buffer, bw *bytes.Buffer) error {
	if !bytes.HasPrefix(bw.Bytes(), app0Marker) {
		return nil
	}
	if bw.Len() < len(app0Marker)+segmentLengthBytes {
		return errInvalidJpeg
	}
	writer.Write(bw.Next(len(app0Marker)))
	lengthBytes := bw.Next(segmentLengthBytes)
	// Length includes the length bytes, so we need to subtract when reading
	blockLength := (int(lengthBytes[0])<<8 | int(lengthBytes[1])) - segmentLengthBytes
	if blockLength < 0 || blockLength > bw.Len() {
		return errInvalidJpeg
	}
	writer.Write(lengthBytes)
	writer.Write(bw.Next(blockLength))
	return nil
}
