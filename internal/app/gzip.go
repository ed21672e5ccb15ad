package app

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
)

func gzipMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			// оборачиваем writer
			cw := newCompressWriter(w)
			defer cw.Close()
			w = cw
		}

		if strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
			// тело запроса приходит сжатым, распаковываем прозрачно
			cr, err := newCompressReader(r.Body)
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			defer cr.Close()
			r.Body = cr
		}

		h.ServeHTTP(w, r)
	})
}

type compressWriter struct {
	w           http.ResponseWriter
	zw          *gzip.Writer
	compressing bool
}

func newCompressWriter(w http.ResponseWriter) *compressWriter {
	return &compressWriter{
		w:  w,
		zw: gzip.NewWriter(w),
	}
}

func (w *compressWriter) Header() http.Header {
	return w.w.Header()
}

func (w *compressWriter) Write(buf []byte) (int, error) {
	if w.compressing {
		return w.zw.Write(buf)
	}
	return w.w.Write(buf)
}

func (w *compressWriter) WriteHeader(statusCode int) {
	if statusCode < 300 && statusCode >= 200 {
		w.w.Header().Set("Content-Encoding", "gzip")
		w.compressing = true
	}
	w.w.WriteHeader(statusCode)
}

func (w *compressWriter) Close() error {
	if !w.compressing {
		return nil
	}
	return w.zw.Close()
}

type compressReader struct {
	r  io.ReadCloser
	zr *gzip.Reader
}

func newCompressReader(r io.ReadCloser) (*compressReader, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &compressReader{r: r, zr: zr}, nil
}

func (r *compressReader) Read(p []byte) (n int, err error) {
	return r.zr.Read(p)
}

func (r *compressReader) Close() error {
	if err := r.r.Close(); err != nil {
		return err
	}
	return r.zr.Close()
}
