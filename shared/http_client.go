package shared

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/sirupsen/logrus"
)

// BrowserUserAgent is the desktop Chrome user agent sent upstream
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

var gzipMagic = []byte{0x1f, 0x8b}

// SetBrowserLikeHeaders configures request headers to mimic a browser XHR call
func SetBrowserLikeHeaders(header *http.Header) {
	header.Set("User-Agent", BrowserUserAgent)
	header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	header.Set("Accept-Language", "en-US,en;q=0.9")
	header.Set("Referer", "https://www.google.com/")
	header.Set("Origin", "https://www.google.com")
	header.Set("Accept-Encoding", "gzip, deflate, br")
}

// DecodeResponseBody undoes the Content-Encoding of a response body.
// Because Accept-Encoding is set explicitly the transport hands bodies back
// still encoded; gzip bodies that were already inflated pass through.
func DecodeResponseBody(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))
	if encoding == "" || encoding == "identity" || len(body) == 0 {
		return body, nil
	}

	var reader io.Reader
	switch {
	case strings.Contains(encoding, "br"):
		reader = brotli.NewReader(bytes.NewReader(body))
	case strings.Contains(encoding, "gzip"):
		if !bytes.HasPrefix(body, gzipMagic) {
			return body, nil
		}
		gzipReader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip body: %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	case strings.Contains(encoding, "deflate"):
		return decodeDeflate(body)
	default:
		logrus.WithFields(logrus.Fields{
			"component":        "HTTPClient",
			"content_encoding": contentEncoding,
		}).Warn("Unknown content encoding, passing body through")
		return body, nil
	}

	decoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s body: %w", encoding, err)
	}
	return decoded, nil
}

// decodeDeflate reads an HTTP deflate body, which is zlib framed. Some servers
// send raw deflate instead, so a stream that is not valid zlib is retried as raw.
func decodeDeflate(body []byte) ([]byte, error) {
	if zlibReader, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
		decoded, readErr := io.ReadAll(zlibReader)
		zlibReader.Close()
		if readErr == nil {
			return decoded, nil
		}
	}

	flateReader := flate.NewReader(bytes.NewReader(body))
	defer flateReader.Close()

	decoded, err := io.ReadAll(flateReader)
	if err != nil {
		return nil, fmt.Errorf("failed to decode deflate body: %w", err)
	}
	return decoded, nil
}
