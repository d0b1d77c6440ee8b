package clientresult

import (
	"archive/zip"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/cidaily/cidaily/internal/cidaily/outcome"
)

// scanResults builds the test-name to outcome mapping from a downloaded
// result artifact. Entries ending in the result-code suffix carry a numeric
// return code; the stripped entry name is the test identifier. The archive
// only lives in memory for the duration of the scan.
func scanResults(blob []byte) (map[string]outcome.Outcome, error) {
	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return nil, errors.Wrap(err, "couldn't open result artifact")
	}
	results := make(map[string]outcome.Outcome, len(zr.File))
	for _, entry := range zr.File {
		if !strings.HasSuffix(entry.Name, resultSuffix) {
			continue
		}
		code, err := readReturnCode(entry)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(entry.Name, resultSuffix)
		results[name] = outcome.FromReturnCode(code)
	}
	return results, nil
}

func readReturnCode(entry *zip.File) (int, error) {
	rd, err := entry.Open()
	if err != nil {
		return 0, errors.Wrapf(err, "couldn't open artifact entry %s", entry.Name)
	}
	defer rd.Close()

	data, err := io.ReadAll(rd)
	if err != nil {
		return 0, errors.Wrapf(err, "couldn't read artifact entry %s", entry.Name)
	}
	code, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, &ContractViolationError{Reason: "non-numeric result code", Detail: entry.Name}
	}
	return code, nil
}
