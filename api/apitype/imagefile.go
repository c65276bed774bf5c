package apitype

import (
	"image"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"vincit.fi/jpeg-rotator/common/logger"
)

type ImageId string

const NoImage = ImageId("")

// ImageFile is one loaded photo: where it is, which rotation its EXIF tag
// had when it was loaded and which rotation the user has selected.
type ImageFile struct {
	id             ImageId
	directory      string
	filename       string
	path           string
	byteSize       int64
	loadedRotation Rotation
	targetRotation Rotation
	thumbnail      image.Image
	mux            sync.RWMutex
}

var (
	EmptyImageFile       = ImageFile{id: NoImage, path: ""}
	supportedFileEndings = map[string]bool{".jpg": true, ".jpeg": true}
)

func NewImageFileWithId(id ImageId, fileDir string, fileName string) *ImageFile {
	return &ImageFile{
		id:             id,
		directory:      fileDir,
		filename:       fileName,
		path:           filepath.Join(fileDir, fileName),
		loadedRotation: Upright,
		targetRotation: Upright,
	}
}

func NewImageFile(fileDir string, fileName string) *ImageFile {
	return NewImageFileWithId(ImageId(uuid.NewString()), fileDir, fileName)
}

func GetEmptyImageFile() *ImageFile {
	return &EmptyImageFile
}

func (s *ImageFile) IsValid() bool {
	return s != nil && s.path != ""
}

func (s *ImageFile) Id() ImageId {
	if s != nil {
		return s.id
	} else {
		return NoImage
	}
}

func (s *ImageFile) String() string {
	if s != nil {
		if s.IsValid() {
			return "ImageFile{" + s.filename + "}"
		} else {
			return "ImageFile<invalid>"
		}
	} else {
		return "ImageFile<nil>"
	}
}

func (s *ImageFile) Path() string {
	if s != nil {
		return s.path
	} else {
		return ""
	}
}

func (s *ImageFile) Directory() string {
	if s != nil {
		return s.directory
	} else {
		return ""
	}
}

func (s *ImageFile) FileName() string {
	if s != nil {
		return s.filename
	} else {
		return ""
	}
}

func (s *ImageFile) SetByteSize(length int64) {
	s.byteSize = length
}

func (s *ImageFile) ByteSize() int64 {
	if s != nil {
		return s.byteSize
	} else {
		return 0
	}
}

func (s *ImageFile) SetLoadedRotation(rotation Rotation) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.loadedRotation = rotation
}

// LoadedRotation is the rotation decoded from the file's EXIF tag.
func (s *ImageFile) LoadedRotation() Rotation {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.loadedRotation
}

// TargetRotation is the rotation selected by the user that has not been
// committed yet.
func (s *ImageFile) TargetRotation() Rotation {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.targetRotation
}

func (s *ImageFile) SetTargetRotation(rotation Rotation) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.targetRotation = rotation.normalize()
}

func (s *ImageFile) RotateClockwise() Rotation {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.targetRotation = RotateClockwiseStep(s.targetRotation)
	return s.targetRotation
}

func (s *ImageFile) RotateCounterClockwise() Rotation {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.targetRotation = RotateCounterClockwiseStep(s.targetRotation)
	return s.targetRotation
}

func (s *ImageFile) IsRotated() bool {
	return s.TargetRotation() != Upright
}

func (s *ImageFile) SetThumbnail(thumbnail image.Image) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.thumbnail = thumbnail
}

func (s *ImageFile) Thumbnail() image.Image {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.thumbnail
}

// MarkCommitted records that the target rotation has been written to disk.
// The on-disk rotation becomes the composition of the two and the target
// resets to Upright. rotateThumbnail, when given, turns the thumbnail so
// that it matches the new pixels on disk.
func (s *ImageFile) MarkCommitted(rotateThumbnail func(image.Image, Rotation) image.Image) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.thumbnail != nil && rotateThumbnail != nil {
		s.thumbnail = rotateThumbnail(s.thumbnail, s.targetRotation)
	}
	s.loadedRotation = Compose(s.loadedRotation, s.targetRotation)
	s.targetRotation = Upright
}

// LoadImageFiles lists the supported images directly under dir, sorted
// by file name.
func LoadImageFiles(fs afero.Fs, dir string) ([]*ImageFile, error) {
	var imageFiles []*ImageFile
	files, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}

	logger.Debug.Printf("Scanning directory '%s'", dir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		extension := filepath.Ext(file.Name())
		if isSupported(extension) {
			imageFile := NewImageFile(dir, file.Name())
			imageFile.SetByteSize(file.Size())
			imageFiles = append(imageFiles, imageFile)
		}
	}
	sort.Slice(imageFiles, func(i, j int) bool {
		return imageFiles[i].filename < imageFiles[j].filename
	})
	logger.Debug.Printf("Found %d images", len(imageFiles))

	return imageFiles, nil
}

func isSupported(extension string) bool {
	return supportedFileEndings[strings.ToLower(extension)]
}
