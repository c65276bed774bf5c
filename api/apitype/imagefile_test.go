package apitype

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEmptyImageFile(t *testing.T) {
	a := assert.New(t)

	imageFile := GetEmptyImageFile()

	a.False(imageFile.IsValid())
	a.Equal(NoImage, imageFile.Id())
}

func TestImageFile_String(t *testing.T) {
	a := assert.New(t)

	var nilImageFile *ImageFile
	a.Equal("ImageFile<nil>", nilImageFile.String())
	a.Equal("ImageFile<invalid>", NewImageFile("", "").String())
	a.Equal("ImageFile{file.jpeg}", NewImageFileWithId("2", "/some/dir", "file.jpeg").String())
}

func TestValidImageFile(t *testing.T) {
	a := assert.New(t)

	imageFile := NewImageFileWithId("1", "some/dir", "file.jpeg")
	imageFile.SetByteSize(1024)

	t.Run("Validity", func(t *testing.T) {
		a.True(imageFile.IsValid())
	})
	t.Run("Properties", func(t *testing.T) {
		a.Equal(ImageId("1"), imageFile.Id())
		a.Equal("file.jpeg", imageFile.FileName())
		a.Equal("some/dir", imageFile.Directory())
		a.Equal(filepath.Join("some", "dir", "file.jpeg"), imageFile.Path())
		a.Equal(int64(1024), imageFile.ByteSize())
		a.Equal(Upright, imageFile.LoadedRotation())
		a.Equal(Upright, imageFile.TargetRotation())
		a.False(imageFile.IsRotated())
	})
}

func TestNewImageFile_UniqueIds(t *testing.T) {
	a := assert.New(t)

	first := NewImageFile("dir", "a.jpg")
	second := NewImageFile("dir", "a.jpg")

	a.NotEqual(NoImage, first.Id())
	a.NotEqual(first.Id(), second.Id())
}

func TestNilImageFile(t *testing.T) {
	a := assert.New(t)

	var imageFile *ImageFile

	t.Run("Validity", func(t *testing.T) {
		a.False(imageFile.IsValid())
	})
	t.Run("Properties", func(t *testing.T) {
		a.Equal(NoImage, imageFile.Id())
		a.Equal("", imageFile.FileName())
		a.Equal("", imageFile.Directory())
		a.Equal("", imageFile.Path())
		a.Equal(int64(0), imageFile.ByteSize())
	})
}

func TestImageFile_Rotate(t *testing.T) {
	a := assert.New(t)

	t.Run("Clockwise", func(t *testing.T) {
		imageFile := NewImageFile("dir", "a.jpg")
		a.Equal(RotatedCW90, imageFile.RotateClockwise())
		a.Equal(Rotated180, imageFile.RotateClockwise())
		a.True(imageFile.IsRotated())
		a.Equal(Upright, imageFile.LoadedRotation())
	})

	t.Run("Counter clockwise", func(t *testing.T) {
		imageFile := NewImageFile("dir", "a.jpg")
		a.Equal(RotatedCCW90, imageFile.RotateCounterClockwise())
	})

	t.Run("Back to upright", func(t *testing.T) {
		imageFile := NewImageFile("dir", "a.jpg")
		imageFile.RotateClockwise()
		imageFile.RotateCounterClockwise()
		a.False(imageFile.IsRotated())
	})

	t.Run("Set normalizes", func(t *testing.T) {
		imageFile := NewImageFile("dir", "a.jpg")
		imageFile.SetTargetRotation(Rotation(5))
		a.Equal(RotatedCW90, imageFile.TargetRotation())
		imageFile.SetTargetRotation(Rotation(-1))
		a.Equal(RotatedCCW90, imageFile.TargetRotation())
	})
}

func TestImageFile_MarkCommitted(t *testing.T) {
	a := assert.New(t)

	t.Run("Composes rotations", func(t *testing.T) {
		imageFile := NewImageFile("dir", "a.jpg")
		imageFile.SetLoadedRotation(RotatedCW90)
		imageFile.RotateClockwise()

		imageFile.MarkCommitted(nil)

		a.Equal(Rotated180, imageFile.LoadedRotation())
		a.Equal(Upright, imageFile.TargetRotation())
		a.False(imageFile.IsRotated())
	})

	t.Run("Rotates thumbnail", func(t *testing.T) {
		imageFile := NewImageFile("dir", "a.jpg")
		imageFile.SetThumbnail(image.NewRGBA(image.Rect(0, 0, 4, 2)))
		imageFile.RotateCounterClockwise()

		var rotatedBy Rotation
		imageFile.MarkCommitted(func(img image.Image, rotation Rotation) image.Image {
			rotatedBy = rotation
			return image.NewRGBA(image.Rect(0, 0, img.Bounds().Dy(), img.Bounds().Dx()))
		})

		a.Equal(RotatedCCW90, rotatedBy)
		a.Equal(2, imageFile.Thumbnail().Bounds().Dx())
		a.Equal(4, imageFile.Thumbnail().Bounds().Dy())
		a.Equal(RotatedCCW90, imageFile.LoadedRotation())
	})

	t.Run("Without thumbnail", func(t *testing.T) {
		imageFile := NewImageFile("dir", "a.jpg")
		imageFile.RotateClockwise()
		called := false

		imageFile.MarkCommitted(func(img image.Image, rotation Rotation) image.Image {
			called = true
			return img
		})

		a.False(called)
		a.Nil(imageFile.Thumbnail())
		a.Equal(RotatedCW90, imageFile.LoadedRotation())
	})
}

func TestIsSupported(t *testing.T) {
	a := assert.New(t)

	t.Run("Valid", func(t *testing.T) {
		validValues := []string{
			"jpeg", "JPEG", "jpg", "JPG", "Jpeg",
		}
		for _, value := range validValues {
			a.True(isSupported("." + value))
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		invalidValues := []string{
			"exe", "EXE", "png", "tif", "",
		}
		for _, value := range invalidValues {
			a.False(isSupported("." + value))
		}
	})
}

func TestLoadImageFiles(t *testing.T) {
	a := assert.New(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/photos/sub", 0755))
	for _, name := range []string{"c.jpg", "a.JPG", "b.jpeg", "notes.txt", "sub/d.jpg"} {
		require.NoError(t, afero.WriteFile(fs, filepath.Join("/photos", name), []byte("data"), 0644))
	}
	require.NoError(t, fs.MkdirAll("/photos/folder.jpg", 0755))

	t.Run("Lists supported files sorted by name", func(t *testing.T) {
		imageFiles, err := LoadImageFiles(fs, "/photos")

		require.NoError(t, err)
		require.Len(t, imageFiles, 3)
		a.Equal("a.JPG", imageFiles[0].FileName())
		a.Equal("b.jpeg", imageFiles[1].FileName())
		a.Equal("c.jpg", imageFiles[2].FileName())
		a.Equal(filepath.Join("/photos", "c.jpg"), imageFiles[2].Path())
		a.Equal(int64(4), imageFiles[2].ByteSize())
	})

	t.Run("Missing directory", func(t *testing.T) {
		_, err := LoadImageFiles(fs, "/missing")

		a.NotNil(err)
	})
}
