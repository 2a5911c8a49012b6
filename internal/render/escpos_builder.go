package render

// escposBuilder is the common surface both thermal dialects expose
// to the shared receipt layout in receipt.go. Only the commands the
// layout actually needs are modeled.
type escposBuilder interface {
	AlignCenter()
	AlignLeft()
	AlignRight()
	Bold(on bool)
	DoubleHeight(on bool)
	Text(line string)
	Rule()
	Feed(lines int)
	Cut()
	// Bytes returns the accumulated command stream.
	Bytes() []byte
}

func newEscposBuilder(dialect string) escposBuilder {
	if dialect == "star" {
		return newStarBuilder()
	}
	return newEpsonBuilder()
}
