package ids

// Location is a source range inside a single file.
type Location struct {
	FilePath    string `json:"file_path" yaml:"file_path"`
	StartLine   int    `json:"start_line" yaml:"start_line"`
	StartColumn int    `json:"start_column" yaml:"start_column"`
	EndLine     int    `json:"end_line" yaml:"end_line"`
	EndColumn   int    `json:"end_column" yaml:"end_column"`
}

// IsZero reports whether the location was never set.
func (l Location) IsZero() bool {
	return l == Location{}
}

// Contains reports whether other lies within l. Both must be in the same file.
func (l Location) Contains(other Location) bool {
	if l.FilePath != other.FilePath {
		return false
	}
	if other.StartLine < l.StartLine || other.EndLine > l.EndLine {
		return false
	}
	if other.StartLine == l.StartLine && other.StartColumn < l.StartColumn {
		return false
	}
	if other.EndLine == l.EndLine && other.EndColumn > l.EndColumn {
		return false
	}
	return true
}

// SpansLine reports whether line falls inside the location's line range.
func (l Location) SpansLine(line int) bool {
	return line >= l.StartLine && line <= l.EndLine
}

// Span is the number of lines covered, used to pick the innermost of nested ranges.
func (l Location) Span() int {
	return l.EndLine - l.StartLine
}
