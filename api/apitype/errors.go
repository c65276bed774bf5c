package apitype

import (
	"errors"
	"fmt"
)

var (
	ErrBackupFailed        = errors.New("backup failed")
	ErrDecodeFailed        = errors.New("decode failed")
	ErrEncodeFailed        = errors.New("encode failed")
	ErrCommitFailed        = errors.New("commit failed, original restored")
	ErrUnrecoverableWrite  = errors.New("unrecoverable write")
	ErrUnsupportedRotation = errors.New("unsupported rotation")
)

// CommitError describes a failed commit of a single file. Kind is one of
// the Err* sentinels above. BackupPath is only set when the backup copy is
// the last remaining copy of the photo.
type CommitError struct {
	Kind       error
	Path       string
	BackupPath string
	Err        error
}

func NewCommitError(kind error, path string, err error) *CommitError {
	return &CommitError{
		Kind: kind,
		Path: path,
		Err:  err,
	}
}

func (s *CommitError) Error() string {
	message := fmt.Sprintf("%s: '%s'", s.Kind, s.Path)
	if s.BackupPath != "" {
		message = fmt.Sprintf("%s (original photo is at '%s')", message, s.BackupPath)
	}
	if s.Err != nil {
		message = fmt.Sprintf("%s: %s", message, s.Err)
	}
	return message
}

func (s *CommitError) Unwrap() []error {
	if s.Err == nil {
		return []error{s.Kind}
	}
	return []error{s.Kind, s.Err}
}

func IsUnrecoverable(err error) bool {
	return errors.Is(err, ErrUnrecoverableWrite)
}
