package domain

// TagColor is the display colour derived from a tag label.
type TagColor int

// Tag colours. TagWhite is the fallback for unknown labels.
const (
	TagWhite TagColor = iota
	TagRed
	TagYellow
	TagGreen
)

// String returns the colour name.
func (c TagColor) String() string {
	switch c {
	case TagRed:
		return "red"
	case TagYellow:
		return "yellow"
	case TagGreen:
		return "green"
	default:
		return "white"
	}
}

// ColorOf maps a tag label to its colour. Matching is exact and case-sensitive.
func ColorOf(label string) TagColor {
	switch label {
	case "urgent":
		return TagRed
	case "bug":
		return TagYellow
	case "feature":
		return TagGreen
	default:
		return TagWhite
	}
}
