package security

import (
	"mime"
	"net/http"

	"github.com/noah-isme/backend-offers/internal/common"
)

// BodyLimit guards request bodies. Bodies declaring more than Max bytes get
// 413 up front, undeclared ones are cut off by http.MaxBytesReader. With
// JSONOnly, write requests carrying a non-JSON body get 415.
type BodyLimit struct {
	Max      int64
	JSONOnly bool
}

func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
			next.ServeHTTP(w, r)
			return
		}
		if b.JSONOnly && !isJSON(r.Header.Get("Content-Type")) {
			common.JSONError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "request body must be application/json", nil)
			return
		}
		if b.Max > 0 {
			if r.ContentLength > b.Max {
				common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request entity too large", map[string]int64{"max_bytes": b.Max})
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		}
		next.ServeHTTP(w, r)
	})
}

// isJSON accepts application/json with any parameters. A missing header is
// tolerated since curl and most clients omit it on small bodies.
func isJSON(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}
