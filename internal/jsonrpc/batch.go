package jsonrpc

import (
	"encoding/json"
	"errors"
)

// ErrEmptyBatch is returned by ParseMessage for a syntactically valid but
// empty batch array, which the protocol treats as an invalid request.
var ErrEmptyBatch = errors.New("jsonrpc: empty batch")

// ParseMessage decodes a raw frame into one or more requests. It reports
// whether the frame was a batch (a JSON array) so callers can mirror the
// shape in the response. Parse failures return an error; the caller is
// expected to answer with a parse-error response carrying a null id.
func ParseMessage(data []byte) (reqs []*Request, batch bool, err error) {
	if isBatch(data) {
		if err := json.Unmarshal(data, &reqs); err != nil {
			return nil, true, err
		}
		if len(reqs) == 0 {
			return nil, true, ErrEmptyBatch
		}
		return reqs, true, nil
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, false, err
	}
	return []*Request{&req}, false, nil
}

// isBatch reports whether the first non-whitespace byte opens a JSON array.
func isBatch(data []byte) bool {
	for _, c := range data {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return c == '['
	}
	return false
}
