package storage

import "errors"

var (
	ErrInvalidConfig       = errors.New("invalid storage configuration")
	ErrFailedToLoadConfig  = errors.New("failed to load AWS configuration")
	ErrUnsupportedMIMEType = errors.New("unsupported photo type")
	ErrPhotoTooLarge       = errors.New("photo exceeds size limit")
	ErrUploadFailed        = errors.New("photo upload failed")
	ErrDeleteFailed        = errors.New("photo delete failed")
)
