package meditation

import "errors"

var (
	// ErrSegmentNotFound indicates no segment with the given ID exists in the sequence.
	ErrSegmentNotFound = errors.New("segment not found")
	// ErrFieldNotApplicable indicates a patch field that the segment's variant does not carry.
	ErrFieldNotApplicable = errors.New("field not applicable to segment type")
	// ErrUnknownKind indicates a segment type outside text, pause and sound.
	ErrUnknownKind = errors.New("unknown segment type")
	// ErrInvalidVisibility indicates a visibility outside public and private.
	ErrInvalidVisibility = errors.New("invalid visibility")
)
