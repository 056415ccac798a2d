package services

// scanPages drives a 1-based page loop until the fetcher returns an
// empty page, visit asks to stop, or maxPages is reached. The page cap
// guarantees termination even if the remote API keeps returning results.
func scanPages[T any](maxPages int, fetch func(page int) ([]T, error), visit func(item T) (stop bool)) error {
	for page := 1; page <= maxPages; page++ {
		items, err := fetch(page)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for _, item := range items {
			if visit(item) {
				return nil
			}
		}
	}
	return nil
}

// fetchPages collects every item across pages, subject to the same cap.
func fetchPages[T any](maxPages int, fetch func(page int) ([]T, error)) ([]T, error) {
	var all []T
	err := scanPages(maxPages, fetch, func(item T) bool {
		all = append(all, item)
		return false
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}
