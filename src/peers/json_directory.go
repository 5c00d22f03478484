package peers

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"sync"

	"github.com/ugorji/go/codec"
)

const jsonDirectoryPath = "federation.json"

// JSONDirectory is used to provide Directory persistence on disk in the form
// of a JSON file.
type JSONDirectory struct {
	l    sync.Mutex
	path string
}

// NewJSONDirectory creates a new JSONDirectory with reference to a base
// directory where the JSON file resides.
func NewJSONDirectory(base string) *JSONDirectory {
	return &JSONDirectory{
		path: filepath.Join(base, jsonDirectoryPath),
	}
}

// Path ...
func (j *JSONDirectory) Path() string {
	return j.path
}

func jsonHandle() *codec.JsonHandle {
	jh := &codec.JsonHandle{}
	jh.Indent = 2
	jh.HTMLCharsAsIs = true
	return jh
}

// Directory parses the underlying JSON file. It returns nil, nil when the
// file is empty.
func (j *JSONDirectory) Directory() (*Directory, error) {
	j.l.Lock()
	defer j.l.Unlock()

	buf, err := ioutil.ReadFile(j.path)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(buf)) == 0 {
		return nil, nil
	}

	var d Directory
	dec := codec.NewDecoderBytes(buf, jsonHandle())
	if err := dec.Decode(&d); err != nil {
		return nil, err
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return &d, nil
}

// Write persists a Directory to the JSON file.
func (j *JSONDirectory) Write(d *Directory) error {
	j.l.Lock()
	defer j.l.Unlock()

	var buf []byte
	enc := codec.NewEncoderBytes(&buf, jsonHandle())
	if err := enc.Encode(d); err != nil {
		return err
	}

	return ioutil.WriteFile(j.path, append(buf, '\n'), 0644)
}
