package csvfile

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// decode strips a UTF-8 BOM and transcodes Shift-JIS input to UTF-8.
// Checkup CSVs exported from Japanese desktop tools commonly arrive as
// CP932; valid UTF-8 passes through untouched.
func decode(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, bomUTF8) {
		data = data[len(bomUTF8):]
	}
	if utf8.Valid(data) {
		return data, nil
	}

	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("%w: not valid UTF-8 or Shift-JIS: %v", ErrBadEncoding, err)
	}
	return decoded, nil
}
