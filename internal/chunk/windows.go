// Package chunk implements the token-window chunker: pure window math in
// this file, tokenizer plumbing in tokenizer.go, and the store-backed
// orchestration (C3 in spec.md) in chunk.go.
package chunk

// Window is one token-offset span within a document's token sequence,
// expressed as a half-open range [Start, End).
type Window struct {
	Start int
	End   int
}

// Len reports the number of tokens in the window.
func (w Window) Len() int { return w.End - w.Start }

// Windows forms token windows of size target advancing by (target -
// overlap), absorbing a final short window into the previous one whenever
// it would hold fewer than overlap tokens (spec.md §4.3 step 3). It is a
// pure function over token count so it can be exhaustively unit tested
// without a tokenizer or database.
//
// Preconditions: target > 0 and 0 <= overlap < target. total is the number
// of tokens in the document; total == 0 returns nil (spec.md §4.3 step 2
// handles the empty-document case at the call site, since it also needs to
// leave existing chunks untouched).
func Windows(total, target, overlap int) []Window {
	if total <= 0 || target <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= target {
		overlap = target - 1
	}
	stride := target - overlap

	var windows []Window
	start := 0
	for start < total {
		end := start + target
		if end > total {
			end = total
		}

		if end-start < overlap && len(windows) > 0 {
			// Absorb the short tail into the previous window instead of
			// emitting a window narrower than the configured overlap.
			windows[len(windows)-1].End = total
			break
		}

		windows = append(windows, Window{Start: start, End: end})
		if end == total {
			break
		}
		start += stride
	}

	return windows
}

// Cap prefix-truncates windows to at most max entries (spec.md §4.3 step 4).
// max <= 0 means no cap.
func Cap(windows []Window, max int) []Window {
	if max <= 0 || len(windows) <= max {
		return windows
	}
	return windows[:max]
}
