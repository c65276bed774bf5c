package library

import (
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"vincit.fi/jpeg-rotator/api"
	"vincit.fi/jpeg-rotator/api/apitype"
)

const testDir = "/photos"

// StubCodec decodes files whose content is an EXIF orientation code into
// a 4x2 image. Any other content fails to decode.
type StubCodec struct {
	api.ImageCodec
}

func (s *StubCodec) DecodeScaled(reader io.Reader, _ apitype.Size) (image.Image, *apitype.ExifData, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, err
	}
	code, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		return nil, nil, fmt.Errorf("not an image: %w", err)
	}
	exifData := apitype.NewInvalidExifData()
	if code > 1 {
		if err := exifData.SetOrientation(code); err != nil {
			return nil, nil, err
		}
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 2)), exifData, nil
}

func (s *StubCodec) Rotate(img image.Image, rotation apitype.Rotation) image.Image {
	bounds := img.Bounds()
	if rotation == apitype.RotatedCW90 || rotation == apitype.RotatedCCW90 {
		return image.NewRGBA(image.Rect(0, 0, bounds.Dy(), bounds.Dx()))
	}
	return img
}

type MockCommitter struct {
	api.Committer
	mock.Mock
}

func (s *MockCommitter) Commit(path string, rotation apitype.Rotation) error {
	return s.Called(path, rotation).Error(0)
}

type progressUpdate struct {
	current int
	total   int
}

type RecordingProgressReporter struct {
	api.ProgressReporter

	mux      sync.Mutex
	updates  []progressUpdate
	finished []int
	onUpdate func(current int)
}

func (s *RecordingProgressReporter) Update(_ string, current int, total int, _ bool, _ bool) {
	s.mux.Lock()
	s.updates = append(s.updates, progressUpdate{current: current, total: total})
	onUpdate := s.onUpdate
	s.mux.Unlock()
	if onUpdate != nil {
		onUpdate(current)
	}
}

func (s *RecordingProgressReporter) Finished(_ string, _ int, failures int) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.finished = append(s.finished, failures)
}

func pathOf(name string) string {
	return filepath.Join(testDir, name)
}

func createFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	require.NoError(t, fs.MkdirAll(testDir, 0755))
	for name, content := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(pathOf(name)), 0755))
		require.NoError(t, afero.WriteFile(fs, pathOf(name), []byte(content), 0644))
	}
}

func newTestLibrary(t *testing.T, files map[string]string) (*Library, *MockCommitter, *RecordingProgressReporter) {
	fs := afero.NewMemMapFs()
	createFiles(t, fs, files)
	committer := &MockCommitter{}
	reporter := &RecordingProgressReporter{}
	return NewImageLibrary(fs, &StubCodec{}, committer, apitype.SquareSize(140), reporter), committer, reporter
}

func fiveImages() map[string]string {
	return map[string]string{
		"1.jpg": "1",
		"2.jpg": "1",
		"3.jpg": "1",
		"4.jpg": "1",
		"5.jpg": "1",
	}
}

func loadAndRotateAll(t *testing.T, sut *Library) []*apitype.ImageFile {
	_, _, err := sut.InitializeFromDirectory(testDir)
	require.NoError(t, err)
	images := sut.GetImages()
	for _, imageFile := range images {
		_, err := sut.RotateClockwise(imageFile.Id())
		require.NoError(t, err)
	}
	return images
}

func TestLibrary_InitializeFromDirectory(t *testing.T) {
	a := assert.New(t)
	sut, _, reporter := newTestLibrary(t, map[string]string{
		"a.jpg":      "1",
		"b.JPG":      "6",
		"c.jpeg":     "broken",
		"d.txt":      "1",
		"e.jpeg":     "8",
		"sub/f.jpg":  "1",
		"sub/g.jpeg": "1",
	})

	loaded, skipped, err := sut.InitializeFromDirectory(testDir)

	a.Nil(err)
	a.Equal(3, loaded)
	a.Equal([]string{"c.jpeg"}, skipped)
	a.Equal(3, sut.TotalImages())
	a.Equal(0, sut.RotatedImages())

	images := sut.GetImages()
	if a.Equal(3, len(images)) {
		a.Equal("a.jpg", images[0].FileName())
		a.Equal(apitype.Upright, images[0].LoadedRotation())
		a.Equal("b.JPG", images[1].FileName())
		a.Equal(apitype.RotatedCW90, images[1].LoadedRotation())
		a.Equal(apitype.Upright, images[1].TargetRotation())
		a.Equal("e.jpeg", images[2].FileName())
		a.Equal(apitype.RotatedCCW90, images[2].LoadedRotation())
		a.NotNil(images[0].Thumbnail())
	}

	a.Equal([]progressUpdate{{0, 4}, {1, 4}, {2, 4}, {3, 4}}, reporter.updates)
	a.Equal([]int{1}, reporter.finished)
}

func TestLibrary_InitializeFromDirectory_MissingDirectory(t *testing.T) {
	a := assert.New(t)
	sut := NewImageLibrary(afero.NewMemMapFs(), &StubCodec{}, &MockCommitter{}, apitype.SquareSize(140), nil)

	_, _, err := sut.InitializeFromDirectory("/does/not/exist")

	a.NotNil(err)
	a.Equal(0, sut.TotalImages())
}

func TestLibrary_InitializeFromDirectory_Stop(t *testing.T) {
	a := assert.New(t)
	sut, _, reporter := newTestLibrary(t, fiveImages())
	reporter.onUpdate = func(current int) {
		if current == 1 {
			sut.RequestStop()
		}
	}

	loaded, skipped, err := sut.InitializeFromDirectory(testDir)

	a.Nil(err)
	a.Equal(2, loaded)
	a.Empty(skipped)
	a.True(sut.Stopped())
	a.Equal(2, sut.TotalImages())
}

func TestLibrary_Rotate(t *testing.T) {
	a := assert.New(t)
	sut, _, _ := newTestLibrary(t, map[string]string{"a.jpg": "1", "b.jpg": "6"})
	_, _, err := sut.InitializeFromDirectory(testDir)
	require.NoError(t, err)
	imageA := sut.GetImageByName("a.jpg")
	imageB := sut.GetImageByName("b.jpg")
	require.True(t, imageA.IsValid())
	require.True(t, imageB.IsValid())

	t.Run("Clockwise", func(t *testing.T) {
		imageFile, err := sut.RotateClockwise(imageA.Id())
		a.Nil(err)
		a.Equal(apitype.RotatedCW90, imageFile.TargetRotation())
		a.Equal(1, sut.RotatedImages())
	})

	t.Run("Counter-clockwise back to upright", func(t *testing.T) {
		imageFile, err := sut.RotateCounterClockwise(imageA.Id())
		a.Nil(err)
		a.Equal(apitype.Upright, imageFile.TargetRotation())
		a.Equal(0, sut.RotatedImages())
	})

	t.Run("Set rotation", func(t *testing.T) {
		imageFile, err := sut.SetRotation(imageB.Id(), apitype.Rotated180)
		a.Nil(err)
		a.Equal(apitype.Rotated180, imageFile.TargetRotation())
		a.Equal(apitype.RotatedCW90, imageFile.LoadedRotation())
		a.Equal([]*apitype.ImageFile{imageB}, sut.GetRotatedImages())
	})

	t.Run("Invalid rotation", func(t *testing.T) {
		_, err := sut.SetRotation(imageB.Id(), apitype.Rotation(9))
		a.True(errors.Is(err, apitype.ErrUnsupportedRotation))
		a.Equal(apitype.Rotated180, imageB.TargetRotation())
	})

	t.Run("Unknown image", func(t *testing.T) {
		_, err := sut.RotateClockwise(apitype.ImageId("unknown"))
		a.NotNil(err)
		a.False(sut.GetImageById("unknown").IsValid())
		a.False(sut.GetImageByName("unknown.jpg").IsValid())
	})
}

func TestLibrary_CommitRotations(t *testing.T) {
	a := assert.New(t)
	sut, committer, reporter := newTestLibrary(t, fiveImages())
	images := loadAndRotateAll(t, sut)
	reporter.updates = nil
	reporter.finished = nil

	failure := apitype.NewCommitError(apitype.ErrCommitFailed, pathOf("3.jpg"), errors.New("rename failed"))
	committer.On("Commit", pathOf("3.jpg"), apitype.RotatedCW90).Return(failure)
	committer.On("Commit", mock.Anything, apitype.RotatedCW90).Return(nil)

	result := sut.CommitRotations()

	a.Equal(5, result.Total)
	a.Equal(4, len(result.Committed))
	a.Equal(1, result.FailureCount())
	a.Equal([]string{pathOf("3.jpg")}, result.FailedPaths())
	a.False(result.Cancelled)
	a.Nil(result.Unrecoverable)
	committer.AssertNumberOfCalls(t, "Commit", 5)

	for _, imageFile := range images {
		if imageFile.FileName() == "3.jpg" {
			a.Equal(apitype.RotatedCW90, imageFile.TargetRotation())
			a.Equal(apitype.Upright, imageFile.LoadedRotation())
		} else {
			a.Equal(apitype.Upright, imageFile.TargetRotation())
			a.Equal(apitype.RotatedCW90, imageFile.LoadedRotation())
			a.Equal(2, imageFile.Thumbnail().Bounds().Dx())
		}
	}
	a.Equal(1, sut.RotatedImages())
	a.Equal(5, sut.TotalImages())

	a.Equal([]progressUpdate{{0, 5}, {1, 5}, {2, 5}, {3, 5}, {4, 5}}, reporter.updates)
	a.Equal([]int{1}, reporter.finished)
}

func TestLibrary_CommitRotations_AppliesSelectedRotation(t *testing.T) {
	a := assert.New(t)
	sut, committer, _ := newTestLibrary(t, map[string]string{"a.jpg": "6"})
	_, _, err := sut.InitializeFromDirectory(testDir)
	require.NoError(t, err)
	imageFile := sut.GetImageByName("a.jpg")
	_, err = sut.RotateClockwise(imageFile.Id())
	require.NoError(t, err)

	committer.On("Commit", pathOf("a.jpg"), apitype.RotatedCW90).Return(nil)

	result := sut.CommitRotations()

	a.Equal(0, result.FailureCount())
	committer.AssertExpectations(t)
	a.Equal(apitype.Rotated180, imageFile.LoadedRotation())
	a.Equal(apitype.Upright, imageFile.TargetRotation())
}

func TestLibrary_CommitRotations_UnrecoverableHalts(t *testing.T) {
	a := assert.New(t)
	sut, committer, _ := newTestLibrary(t, fiveImages())
	loadAndRotateAll(t, sut)

	unrecoverable := apitype.NewCommitError(apitype.ErrUnrecoverableWrite, pathOf("2.jpg"), errors.New("restore failed"))
	unrecoverable.BackupPath = "/tmp/2.jpg"
	committer.On("Commit", pathOf("2.jpg"), apitype.RotatedCW90).Return(unrecoverable)
	committer.On("Commit", mock.Anything, apitype.RotatedCW90).Return(nil)

	result := sut.CommitRotations()

	a.Equal(1, len(result.Committed))
	a.Equal(1, result.FailureCount())
	a.True(apitype.IsUnrecoverable(result.Unrecoverable))
	committer.AssertNumberOfCalls(t, "Commit", 2)
	committer.AssertNotCalled(t, "Commit", pathOf("3.jpg"), mock.Anything)
	a.Equal(4, sut.RotatedImages())
}

func TestLibrary_CommitRotations_Stop(t *testing.T) {
	a := assert.New(t)
	sut, committer, _ := newTestLibrary(t, fiveImages())
	loadAndRotateAll(t, sut)

	committer.On("Commit", pathOf("2.jpg"), apitype.RotatedCW90).
		Run(func(mock.Arguments) { sut.RequestStop() }).
		Return(nil)
	committer.On("Commit", mock.Anything, apitype.RotatedCW90).Return(nil)

	result := sut.CommitRotations()

	a.True(result.Cancelled)
	a.Equal(2, len(result.Committed))
	a.Equal(0, result.FailureCount())
	committer.AssertNumberOfCalls(t, "Commit", 2)
	a.Equal(3, sut.RotatedImages())
}

func TestLibrary_CommitRotations_Nothing(t *testing.T) {
	a := assert.New(t)
	sut, committer, _ := newTestLibrary(t, fiveImages())
	_, _, err := sut.InitializeFromDirectory(testDir)
	require.NoError(t, err)

	result := sut.CommitRotations()

	a.Equal(0, result.Total)
	a.Empty(result.Committed)
	committer.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything)
}
