package me

import "fmt"

// ErrBadMagic means a required magic constant did not match.
type ErrBadMagic struct {
	Expected, Actual []byte
}

func (err *ErrBadMagic) Error() string {
	return fmt.Sprintf("bad magic: expected %q, got %q", err.Expected, err.Actual)
}

// ErrNoFpt means the $FPT scan exhausted the image without a match.
type ErrNoFpt struct{}

func (ErrNoFpt) Error() string {
	return "no $FPT found in image"
}

// ErrNoFit means the FIT pointer is absent or misaligned.
type ErrNoFit struct {
	Reason string
}

func (err *ErrNoFit) Error() string {
	return fmt.Sprintf("no FIT: %s", err.Reason)
}

// ErrUnknownFitType is a soft, per-entry note: an entry's type is not one
// of the EntryType constants. Types in reserved ranges are not told apart
// and are reported with this note as well.
type ErrUnknownFitType struct {
	Type byte
}

func (err *ErrUnknownFitType) Error() string {
	return fmt.Sprintf("unknown FIT entry type 0x%02x", err.Type)
}
