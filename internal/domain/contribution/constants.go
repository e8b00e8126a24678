package contribution

const (
	ModeOverwrite = "overwrite"
	ModeAppend    = "append"
)

func ModeName(overwrite bool) string {
	if overwrite {
		return ModeOverwrite
	}
	return ModeAppend
}
