// Package annotation parses ground truth files in the PASCAL Annotation
// Version 1.00 text format used by the INRIA person dataset.
package annotation

import (
	"bufio"
	"image"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Header is the mandatory first line of an annotation file.
const Header = "# PASCAL Annotation Version 1.00"

var (
	filenamePattern = regexp.MustCompile(`^Image filename : "(.*)"$`)
	sizePattern     = regexp.MustCompile(`^Image size \(X x Y x C\) : (\d+) x (\d+) x (\d)$`)
	databasePattern = regexp.MustCompile(`^Database : "(.*)"`)
	labelPattern    = regexp.MustCompile(`^Original label for object (\d+) "(.*)" : "(.*)"$`)
	centerPattern   = regexp.MustCompile(`^Center point on object (\d+) "(.*)" \(X, Y\) : \((\d+), (\d+)\)`)
	boxPattern      = regexp.MustCompile(`^Bounding box for object (\d+) "(.*)" \(Xmin, Ymin\) - \(Xmax, Ymax\) : \((\d+), (\d+)\) - \((\d+), (\d+)\)`)
)

// ErrInvalidHeader is returned for files not starting with Header.
var ErrInvalidHeader = errors.New("invalid annotation file")

// Object is one annotated person.
type Object struct {
	ID            int
	Label         string
	OriginalLabel string
	Center        image.Point
	BoundingBox   image.Rectangle
}

// File is the content of an annotation file.
type File struct {
	ImageFilename string
	Width         int
	Height        int
	Channels      int
	Database      string
	Objects       []Object
}

// Load parses the annotation file at path.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open annotation")
	}
	defer f.Close()

	a, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return a, nil
}

// Parse reads an annotation from r. Blank lines, comments and
// unrecognized lines are ignored.
func Parse(r io.Reader) (*File, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() || strings.TrimRight(sc.Text(), "\r") != Header {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, ErrInvalidHeader
	}

	a := &File{}
	lineNo := 1
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r\n")
		if line == "" || line[0] == '#' {
			continue
		}
		if err := a.parseLine(line); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *File) parseLine(line string) error {
	if m := filenamePattern.FindStringSubmatch(line); m != nil {
		a.ImageFilename = m[1]
		return nil
	}
	if m := sizePattern.FindStringSubmatch(line); m != nil {
		a.Width, a.Height, a.Channels = atoi(m[1]), atoi(m[2]), atoi(m[3])
		return nil
	}
	if m := databasePattern.FindStringSubmatch(line); m != nil {
		a.Database = m[1]
		return nil
	}
	if m := labelPattern.FindStringSubmatch(line); m != nil {
		a.Objects = append(a.Objects, Object{
			ID:            atoi(m[1]),
			Label:         m[2],
			OriginalLabel: m[3],
		})
		return nil
	}
	if m := centerPattern.FindStringSubmatch(line); m != nil {
		o := a.object(atoi(m[1]))
		if o == nil {
			return errors.Errorf("center point for unknown object %s", m[1])
		}
		o.Center = image.Pt(atoi(m[3]), atoi(m[4]))
		return nil
	}
	if m := boxPattern.FindStringSubmatch(line); m != nil {
		o := a.object(atoi(m[1]))
		if o == nil {
			return errors.Errorf("bounding box for unknown object %s", m[1])
		}
		o.BoundingBox = image.Rect(atoi(m[3]), atoi(m[4]), atoi(m[5]), atoi(m[6]))
		return nil
	}
	return nil
}

func (a *File) object(id int) *Object {
	for i := range a.Objects {
		if a.Objects[i].ID == id {
			return &a.Objects[i]
		}
	}
	return nil
}

// Boxes returns the bounding boxes of all objects.
func (a *File) Boxes() []image.Rectangle {
	boxes := make([]image.Rectangle, 0, len(a.Objects))
	for _, o := range a.Objects {
		boxes = append(boxes, o.BoundingBox)
	}
	return boxes
}

// atoi converts a string the patterns already matched as digits.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
