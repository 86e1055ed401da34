package grid

import (
	"bufio"
	"os"
	"strings"

	"github.com/ChicagoDave/daylight/pkg/errs"
)

// LoadRoomLabels reads user-supplied room labels, one per line. Blank lines
// and lines starting with # are skipped; surrounding whitespace is trimmed.
func LoadRoomLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Input(path, err)
	}
	defer f.Close()

	var labels []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		labels = append(labels, text)
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Input(path, err)
	}
	return labels, nil
}
