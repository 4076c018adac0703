package models

// InputKind tags the shape of a document handed to the dispatcher.
type InputKind int

const (
	InputRawText InputKind = iota + 1
	InputRecord
	InputFile
	InputPath
)

func (k InputKind) String() string {
	switch k {
	case InputRawText:
		return "raw_text"
	case InputRecord:
		return "structured_record"
	case InputFile:
		return "file_handle"
	case InputPath:
		return "filesystem_path"
	default:
		return "invalid"
	}
}

// Input is the tagged union of accepted document shapes. Build it with
// RawText, Record, File or Path; only the fields of its Kind are set.
type Input struct {
	Kind InputKind
	// Name is the filename hint. For files it is the uploaded object name.
	Name   string
	Text   string
	Record map[string]any
	Data   []byte
	Path   string
}

// RawText wraps free text. name may be empty.
func RawText(text, name string) Input {
	return Input{Kind: InputRawText, Text: text, Name: name}
}

// Record wraps an already decoded structured record.
func Record(record map[string]any) Input {
	return Input{Kind: InputRecord, Record: record}
}

// File wraps an uploaded file's name and content.
func File(name string, data []byte) Input {
	return Input{Kind: InputFile, Name: name, Data: data}
}

// Path references a file on the local filesystem.
func Path(path string) Input {
	return Input{Kind: InputPath, Path: path, Name: path}
}
