package commit

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"vincit.fi/jpeg-rotator/api"
	"vincit.fi/jpeg-rotator/api/apitype"
	"vincit.fi/jpeg-rotator/common/logger"
)

const tempFilePattern = "jpeg-rotator-*"

// Backups of earlier commits that were left behind are never overwritten,
// a numbered name is used instead.
const maxBackupSuffix = 100

// Committer rewrites JPEG files in place. The original is copied to a
// backup in tempDir before anything destructive happens and the rotated
// image is staged in tempDir too, so at every point at least one readable
// copy of the photo exists.
type Committer struct {
	fs      afero.Fs
	codec   api.ImageCodec
	tempDir string

	api.Committer
}

func NewCommitter(fs afero.Fs, codec api.ImageCodec, tempDir string) *Committer {
	return &Committer{
		fs:      fs,
		codec:   codec,
		tempDir: tempDir,
	}
}

// BackupPath is where the backup of path is made in tempDir.
func BackupPath(tempDir string, path string) string {
	return filepath.Join(tempDir, filepath.Base(path))
}

func (s *Committer) Commit(path string, rotation apitype.Rotation) error {
	if !rotation.IsValid() {
		return apitype.NewCommitError(apitype.ErrUnsupportedRotation, path,
			fmt.Errorf("rotation %d", int(rotation)))
	}
	if rotation == apitype.Upright {
		logger.Debug.Printf("'%s' is upright, nothing to commit", path)
		return nil
	}

	logger.Debug.Printf("Committing rotation '%s' to '%s'", rotation, path)

	info, err := s.fs.Stat(path)
	if err != nil {
		return apitype.NewCommitError(apitype.ErrBackupFailed, path, err)
	}

	backupPath, err := s.backup(path, info.Mode())
	if err != nil {
		return apitype.NewCommitError(apitype.ErrBackupFailed, path, err)
	}

	img, exifData, err := s.decode(path)
	if err != nil {
		s.removeBackup(backupPath)
		return apitype.NewCommitError(apitype.ErrDecodeFailed, path, err)
	}

	newRotation := apitype.Compose(exifData.Rotation(), rotation)
	if err := setRotation(exifData, newRotation); err != nil {
		s.removeBackup(backupPath)
		return apitype.NewCommitError(apitype.ErrEncodeFailed, path, err)
	}
	rotated := s.codec.Rotate(img, rotation)

	tempPath, err := s.writeTemp(rotated, exifData, info.Mode())
	if err != nil {
		s.removeBackup(backupPath)
		return apitype.NewCommitError(apitype.ErrEncodeFailed, path, err)
	}
	logger.Debug.Printf("Rotated image written to '%s'", tempPath)

	if err := s.fs.Remove(path); err != nil {
		if exists, _ := afero.Exists(s.fs, path); exists {
			logger.Warn.Printf("Could not remove '%s': %s", path, err)
			s.remove(tempPath)
			s.removeBackup(backupPath)
			return apitype.NewCommitError(apitype.ErrCommitFailed, path, err)
		}
		return s.restore(path, backupPath, tempPath, err)
	}

	if err := move(s.fs, tempPath, path); err != nil {
		return s.restore(path, backupPath, tempPath, err)
	}

	s.removeBackup(backupPath)
	logger.Info.Printf("Rotated '%s' by %d degrees (orientation now '%s')", path, rotation.Degrees(), newRotation)
	return nil
}

func setRotation(exifData *apitype.ExifData, rotation apitype.Rotation) error {
	code, err := apitype.EncodeExif(rotation)
	if err != nil {
		return err
	}
	return exifData.SetOrientation(code)
}

// backup copies path to a free backup location and returns it.
func (s *Committer) backup(path string, mode os.FileMode) (string, error) {
	if err := s.fs.MkdirAll(s.tempDir, 0700); err != nil {
		return "", err
	}
	backupPath, err := s.freeBackupPath(path)
	if err != nil {
		return "", err
	}
	logger.Debug.Printf("Backing up '%s' to '%s'", path, backupPath)
	if err := copyFile(s.fs, path, backupPath, mode); err != nil {
		s.remove(backupPath)
		return "", err
	}
	return backupPath, nil
}

func (s *Committer) freeBackupPath(path string) (string, error) {
	backupPath := BackupPath(s.tempDir, path)
	extension := filepath.Ext(backupPath)
	base := strings.TrimSuffix(backupPath, extension)
	for i := 0; i <= maxBackupSuffix; i++ {
		candidate := backupPath
		if i > 0 {
			candidate = fmt.Sprintf("%s.%d%s", base, i, extension)
		}
		exists, err := afero.Exists(s.fs, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			if i > 0 {
				logger.Warn.Printf("Backup '%s' already exists, using '%s'", backupPath, candidate)
			}
			return candidate, nil
		}
	}
	return "", fmt.Errorf("too many old backups of '%s' in '%s'", filepath.Base(path), s.tempDir)
}

func (s *Committer) decode(path string) (image.Image, *apitype.ExifData, error) {
	file, err := s.fs.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	img, exifData, err := s.codec.Decode(bufio.NewReader(file))
	if err != nil {
		return nil, nil, err
	}
	if exifData == nil {
		exifData = apitype.NewInvalidExifData()
	}
	return img, exifData, nil
}

// writeTemp encodes the image to a new file in tempDir. The file is
// removed again if anything fails.
func (s *Committer) writeTemp(img image.Image, exifData *apitype.ExifData, mode os.FileMode) (string, error) {
	file, err := afero.TempFile(s.fs, s.tempDir, tempFilePattern)
	if err != nil {
		return "", err
	}
	tempPath := file.Name()

	writer := bufio.NewWriter(file)
	err = s.codec.Encode(writer, img, exifData)
	if err == nil {
		err = writer.Flush()
	}
	if err == nil {
		err = file.Sync()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = s.fs.Chmod(tempPath, mode.Perm())
	}

	if err != nil {
		s.remove(tempPath)
		return "", err
	}
	return tempPath, nil
}

// restore puts the backup back to path after the original has been
// removed but the rotated file could not be moved in its place.
func (s *Committer) restore(path string, backupPath string, tempPath string, cause error) error {
	logger.Warn.Printf("Could not replace '%s': %s. Restoring original from '%s'", path, cause, backupPath)
	s.remove(tempPath)

	if err := move(s.fs, backupPath, path); err != nil {
		commitErr := apitype.NewCommitError(apitype.ErrUnrecoverableWrite, path, errors.Join(cause, err))
		commitErr.BackupPath = backupPath
		logger.Error.Printf("Could not restore '%s': %s. The original photo is at '%s'", path, err, backupPath)
		return commitErr
	}

	logger.Info.Printf("Restored original '%s'", path)
	return apitype.NewCommitError(apitype.ErrCommitFailed, path, cause)
}

func (s *Committer) removeBackup(backupPath string) {
	if err := s.fs.Remove(backupPath); err != nil && !os.IsNotExist(err) {
		logger.Warn.Printf("Could not remove backup '%s': %s", backupPath, err)
	}
}

func (s *Committer) remove(path string) {
	if err := s.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Debug.Printf("Could not remove '%s': %s", path, err)
	}
}

// move renames src to dst. When they are on different devices the file
// is copied and src removed.
func move(fs afero.Fs, src string, dst string) error {
	err := fs.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}

	logger.Debug.Printf("'%s' and '%s' are on different devices, copying", src, dst)
	info, err := fs.Stat(src)
	if err != nil {
		return err
	}
	if err := copyFile(fs, src, dst, info.Mode()); err != nil {
		_ = fs.Remove(dst)
		return err
	}
	if err := fs.Remove(src); err != nil {
		logger.Warn.Printf("Could not remove '%s' after copying it: %s", src, err)
	}
	return nil
}

func copyFile(fs afero.Fs, src string, dst string, mode os.FileMode) error {
	source, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(destination, source); err != nil {
		destination.Close()
		return err
	}
	if err := destination.Sync(); err != nil {
		destination.Close()
		return err
	}
	return destination.Close()
}
