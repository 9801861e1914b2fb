package s3xml

// IsSuccess reports whether statusCode counts as success for a call whose
// acceptable codes are listed in accept. An empty accept list means "any
// 2xx or 3xx", the default for most operations; GetObject passes {200, 206}
// explicitly since a Range request succeeding with 206 is the documented
// outcome, not a 2xx/3xx accident.
func IsSuccess(statusCode int, accept ...int) bool {
	if len(accept) == 0 {
		return statusCode >= 200 && statusCode < 400
	}
	for _, code := range accept {
		if statusCode == code {
			return true
		}
	}
	return false
}
