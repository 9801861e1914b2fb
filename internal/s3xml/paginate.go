package s3xml

import "iter"

// FetchPage retrieves one page given the marker returned by the previous
// page (empty marker means "first page") and reports whether more pages
// follow along with the marker to request next.
type FetchPage[T any] func(marker string) (rows []T, isTruncated bool, nextMarker string, err error)

// Paginate turns repeated FetchPage calls into a lazy sequence: pages are
// fetched as the consumer ranges over the result, not materialized
// upfront. Iteration stops, yielding the error once, the moment a page
// fetch fails; it never fetches a page the consumer didn't ask for.
func Paginate[T any](fetch FetchPage[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		marker := ""
		for {
			rows, isTruncated, nextMarker, err := fetch(marker)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}

			for _, row := range rows {
				if !yield(row, nil) {
					return
				}
			}

			if !isTruncated {
				return
			}
			marker = nextMarker
		}
	}
}
