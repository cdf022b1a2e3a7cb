package redisx

import "time"

const (
	// Generation counter listing produk; di-INCR setiap ada write supaya cache lama tidak terbaca.
	KeyProductListGen = "products:list:gen"

	// Cache listing produk: products:list:{gen}:{normalized query}
	KeyProductList = "products:list:%d:%s"

	// Fixed-window throttle: throttle:{scope}:{ident}:{window_start_unix}
	KeyThrottle = "throttle:%s:%s:%d"

	// Dedup task processing: dedup:{service}:{task_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLProductList = 15 * time.Minute
	TTLDedup       = 48 * time.Hour
)
