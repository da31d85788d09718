package document

import "fmt"

// Destination is where an extraction writes: either one combined file or
// a directory holding one file per bookmark. Build it with SingleFile or
// Directory.
type Destination struct {
	path string
	dir  bool
}

// SingleFile merges every extracted range into the PDF at path.
func SingleFile(path string) Destination { return Destination{path: path} }

// Directory writes one PDF per extracted bookmark into path.
func Directory(path string) Destination { return Destination{path: path, dir: true} }

func (d Destination) Path() string { return d.path }
func (d Destination) IsDir() bool  { return d.dir }
func (d Destination) IsZero() bool { return d.path == "" }

func (d Destination) String() string {
	if d.dir {
		return fmt.Sprintf("directory %s", d.path)
	}
	return fmt.Sprintf("file %s", d.path)
}
