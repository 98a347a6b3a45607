package convert

// normalizeOutline rewrites heading levels so the outline never skips a
// level: a heading sits at most one level below the nearest shallower
// heading before it. Levels carry across page boundaries.
func normalizeOutline(pages [][]block) {
	// raw levels of the headings still open above the current position
	var stack []int
	for _, blocks := range pages {
		for i := range blocks {
			b := &blocks[i]
			if b.kind != blockHeading {
				continue
			}
			// trim stack to the parent of this heading
			for len(stack) > 0 && stack[len(stack)-1] >= b.level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, b.level)
			b.level = min(len(stack), 3)
		}
	}
}
