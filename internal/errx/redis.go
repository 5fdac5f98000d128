package errx

import (
	"net/http"
)

// SessionErrorMessage is shown when the session backend cannot be reached.
const SessionErrorMessage = "세션을 불러올 수 없습니다. 잠시 후 다시 시도해 주세요."

// WrapRedis maps a Redis failure to a 502 AppError. Callers handle redis.Nil
// themselves since a missing key is not a failure.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, SessionErrorMessage)
}
