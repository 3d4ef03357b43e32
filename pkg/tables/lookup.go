package tables

import (
	"strings"

	"github.com/lemonberrylabs/bufr-resolve/pkg/types"
)

// LookupElement scans element.table for the first row whose code column
// equals code. A missing row is not an error.
func (r *Reader) LookupElement(code string) (*types.Element, bool, error) {
	lines, err := r.store.Lines(r.paths.Element)
	if err != nil {
		return nil, false, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, false, nil
	}

	for _, line := range lines {
		fields := strings.Split(strings.TrimSpace(line), "|")
		if strings.TrimSpace(fields[0]) != code {
			continue
		}
		return types.ElementFromFields(fields), true, nil
	}
	return nil, false, nil
}

// LookupCentre scans the centre code table for the first row whose leading
// field equals id. Rows look like "98 98 European Centre ...", with the code
// repeated in the second column.
func (r *Reader) LookupCentre(id string) (*types.Centre, bool, error) {
	lines, err := r.store.Lines(r.paths.Centre)
	if err != nil {
		return nil, false, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false, nil
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != id {
			continue
		}
		rest := fields[1:]
		if len(rest) > 0 && rest[0] == fields[0] {
			rest = rest[1:]
		}
		return &types.Centre{
			Code: id,
			Name: strings.Join(rest, " "),
			Line: line,
		}, true, nil
	}
	return nil, false, nil
}
