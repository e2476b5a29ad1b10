package repository

import "errors"

var (
	// ErrArtifactWrite indicates the local copy of an artifact could not be written
	ErrArtifactWrite = errors.New("artifact write failed")

	// ErrMirrorWrite indicates the remote copy of an artifact could not be written
	ErrMirrorWrite = errors.New("artifact mirror write failed")

	// ErrEncodeResult indicates a detection result could not be serialized
	ErrEncodeResult = errors.New("failed to encode detection result")
)
