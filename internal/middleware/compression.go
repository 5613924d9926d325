// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package middleware

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// MinGzipSize is the smallest body worth compressing.
const MinGzipSize = 1024

// Compression gzips responses larger than MinGzipSize for clients that send
// Accept-Encoding: gzip. Content type sniffing, Vary and Content-Length
// handling come from gzhttp.
func Compression(next http.Handler) http.Handler {
	return gzipWrapper(next)
}

var gzipWrapper = mustGzipWrapper()

func mustGzipWrapper() func(http.Handler) http.HandlerFunc {
	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(MinGzipSize))
	if err != nil {
		panic("middleware: gzip wrapper: " + err.Error())
	}
	return wrap
}
