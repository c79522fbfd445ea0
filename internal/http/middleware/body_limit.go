package middleware

import "net/http"

// BodyLimit ограничивает размер тела запроса. Чтение сверх лимита
// возвращает *http.MaxBytesError. n<=0 - без ограничения.
func BodyLimit(n int64) Middleware {
	return func(next http.Handler) http.Handler {
		if n <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
