package adapter

import (
	"github.com/gowebpki/jcs"
)

// JCS canonicalizes JSON per RFC 8785. Event payloads are canonicalized
// before publishing so downstream digests are byte-stable.
//
//go:generate mockgen -source=jsc.go -destination=../mocks/jsc.go -package=mocks -mock_names=JCS=MockJCS
type JCS interface {
	Transform(data []byte) ([]byte, error)
}

// RealJCS delegates to gowebpki/jcs
type RealJCS struct{}

// NewJCS returns the gowebpki backed implementation
func NewJCS() JCS {
	return &RealJCS{}
}

func (j *RealJCS) Transform(data []byte) ([]byte, error) {
	return jcs.Transform(data)
}
