package section

const (
	// VersionTag is the version tag of the supported FCS revision.
	VersionTag = "FCS3.1"

	// VersionPrefix is the family prefix shared by all FCS revisions.
	// Tags with this prefix but a different revision decode with a warning.
	VersionPrefix = "FCS"

	// VersionTagSize is the byte length of the version tag field.
	VersionTagSize = 6

	// ReservedSize is the number of reserved (space) bytes after the tag.
	ReservedSize = 4

	// OffsetFieldWidth is the width of one right-justified ASCII decimal
	// offset field in the fixed header.
	OffsetFieldWidth = 8

	// HeaderSize is the total size of the fixed header: tag, reserved
	// bytes, and three (begin, end) offset pairs.
	HeaderSize = VersionTagSize + ReservedSize + 6*OffsetFieldWidth

	// MaxHeaderOffset is the largest offset an 8-digit header field can
	// encode. Larger DATA offsets use the zero sentinel and the
	// $BEGINDATA/$ENDDATA fallback keywords.
	MaxHeaderOffset = 99_999_999
)
