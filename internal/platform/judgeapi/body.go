package judgeapi

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
)

// maxBodyBytes caps a single page body.
const maxBodyBytes = 64 << 20

// readBody reads a response body, decoding gzip when the server sent it
// compressed in reply to our explicit Accept-Encoding.
func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(io.LimitReader(r, maxBodyBytes))
}
