package dlib

// Dim is the ResNet descriptor length.
const Dim = 128

const (
	cropPadding = 0.25
	jpegQuality = 95
)
