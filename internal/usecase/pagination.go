package usecase

// pageState is the repository listing cursor: either the next page to
// request or Done once the listing is exhausted.
type pageState struct {
	Page int
	Done bool
}

func firstPage() pageState {
	return pageState{Page: 1}
}

// nextPageState advances the cursor after a page holding n items was fetched.
// An empty or short page is the last one.
func nextPageState(s pageState, n, perPage int) pageState {
	if n == 0 || n < perPage {
		return pageState{Page: s.Page, Done: true}
	}
	return pageState{Page: s.Page + 1}
}
