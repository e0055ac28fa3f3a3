package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unkn0wn-root/kvstore"
)

const (
	StatusSuccess = "Success"
	StatusError   = "Error"
)

// Response is the envelope of every /v1 reply.
type Response struct {
	Status  string `json:"status"`
	Reason  string `json:"reason"`
	ID      string `json:"id"`
	Route   string `json:"route"`
	Content any    `json:"content"`
}

const (
	reasonInvalidSignature  = "Invalid signature"
	reasonNotFound          = "Data not found"
	reasonSerialization     = "Data serialization failed"
	reasonDeserialization   = "Data deserialization failed"
	reasonDBInsertion       = "DB insertion failed"
	reasonCacheInsertion    = "Cache insertion failed"
	reasonDBQuery           = "Data fetch on db failed"
	reasonCacheQuery        = "Data fetch on cache failed"
	reasonValueDelete       = "Value deletion failed"
	reasonCacheDelete       = "Cache deletion failed"
	reasonExpireUnsupported = "Expiry not supported by backend"
	reasonBadRequest        = "Invalid request"
)

// failure maps a store error to a status code and reason. durable selects
// between the DB and cache wording.
func failure(err error, durable bool) (int, string) {
	pick := func(db, cache string) string {
		if durable {
			return db
		}
		return cache
	}
	switch kvstore.KindOf(err) {
	case kvstore.KindSerializationFailed:
		return http.StatusBadRequest, reasonSerialization
	case kvstore.KindDeserializationFailed:
		return http.StatusInternalServerError, reasonDeserialization
	case kvstore.KindBackendWriteFailed:
		return http.StatusInternalServerError, pick(reasonDBInsertion, reasonCacheInsertion)
	case kvstore.KindBackendReadFailed:
		return http.StatusInternalServerError, pick(reasonDBQuery, reasonCacheQuery)
	case kvstore.KindBackendDeleteFailed:
		return http.StatusInternalServerError, pick(reasonValueDelete, reasonCacheDelete)
	case kvstore.KindUnsupported:
		return http.StatusNotImplemented, reasonExpireUnsupported
	default:
		return http.StatusInternalServerError, "Generic error: " + err.Error()
	}
}

func reply(c *gin.Context, code int, reason string, content any) {
	status := StatusSuccess
	if code >= http.StatusBadRequest {
		status = StatusError
	}
	c.JSON(code, Response{
		Status:  status,
		Reason:  reason,
		ID:      c.GetString(requestIDKey),
		Route:   c.FullPath(),
		Content: content,
	})
}
